// Package recorder captures the sample stream to WAV files from a
// background worker.
package recorder

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

const (
	componentRecorder = "recorder"

	wavFormatPCM = 1
	dirPerm      = 0o750
)

// ErrUnsupportedBitDepth is returned for bit depths other than 16, 24 or 32.
var ErrUnsupportedBitDepth = errors.Newf("unsupported bit depth").
	Component(componentRecorder).
	Category(errors.CategoryValidation).
	Build()

// Metrics receives recorder activity. *metrics.RecorderMetrics satisfies it.
type Metrics interface {
	RecordFileOpened()
	RecordWrite(frames, bytes int, sampleRate float64)
	RecordError(operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordFileOpened()             {}
func (noopMetrics) RecordWrite(int, int, float64) {}
func (noopMetrics) RecordError(string)            {}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Recorder) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder is a handoff task writing X and Y (and optionally Z) as channels
// of a PCM WAV file. A new file is started whenever the sample rate changes.
type Recorder struct {
	settings conf.RecorderSettings
	log      logger.Logger
	metrics  Metrics
	now      func() time.Time

	mu         sync.Mutex
	sampleRate float64
	file       *os.File
	enc        *wav.Encoder
	path       string
	files      []string
	buf        audio.IntBuffer
}

// New validates settings and returns a recorder. No file is created until
// the first batch arrives.
func New(settings conf.RecorderSettings, opts ...Option) (*Recorder, error) {
	switch settings.BitDepth {
	case 16, 24, 32:
	default:
		return nil, errors.New(ErrUnsupportedBitDepth).
			Component(componentRecorder).
			Context("bit_depth", settings.BitDepth).
			Build()
	}
	if settings.BatchBlocks < 1 {
		settings.BatchBlocks = 1
	}
	if settings.Prefix == "" {
		settings.Prefix = "oscigo"
	}

	r := &Recorder{
		settings: settings,
		log:      logger.Global().Module(componentRecorder),
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.buf.Format = &audio.Format{NumChannels: r.channels()}
	r.buf.SourceBitDepth = settings.BitDepth
	return r, nil
}

func (r *Recorder) channels() int {
	if r.settings.IncludeZ {
		return 3
	}
	return 2
}

// Prepare finalizes the current file if the sample rate changed and
// requests batches of BatchBlocks audio blocks.
func (r *Recorder) Prepare(sampleRate float64, blockSize int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc != nil && sampleRate != r.sampleRate {
		if err := r.finalizeLocked(); err != nil {
			return 0, err
		}
	}
	r.sampleRate = sampleRate
	r.buf.Format.SampleRate = int(math.Round(sampleRate))

	return blockSize * r.settings.BatchBlocks, nil
}

// Run appends batch to the current file, opening one if needed.
func (r *Recorder) Run(batch []shape.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		if err := r.openLocked(); err != nil {
			return err
		}
	}

	channels := r.channels()
	scale := float64(int64(1)<<(r.settings.BitDepth-1) - 1)
	r.buf.Data = r.buf.Data[:0]
	for _, p := range batch {
		r.buf.Data = append(r.buf.Data, quantize(p.X, scale), quantize(p.Y, scale))
		if channels == 3 {
			r.buf.Data = append(r.buf.Data, quantize(p.Z, scale))
		}
	}

	if err := r.enc.Write(&r.buf); err != nil {
		r.metrics.RecordError("write")
		return errors.New(err).
			Component(componentRecorder).
			Category(errors.CategoryFileIO).
			Context("operation", "write_batch").
			Context("path", r.path).
			Build()
	}
	r.metrics.RecordWrite(len(batch), len(r.buf.Data)*r.settings.BitDepth/8, r.sampleRate)
	return nil
}

// quantize clamps v to [-1, 1] and scales it to a signed PCM integer.
func quantize(v, scale float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
}

func (r *Recorder) openLocked() error {
	if err := os.MkdirAll(r.settings.Path, dirPerm); err != nil {
		r.metrics.RecordError("open")
		return errors.New(err).
			Component(componentRecorder).
			Category(errors.CategoryFileIO).
			Context("operation", "create_directory").
			Context("path", r.settings.Path).
			Build()
	}

	name := fmt.Sprintf("%s-%s-%dhz.wav",
		r.settings.Prefix, r.now().Format("20060102T150405.000"), r.buf.Format.SampleRate)
	path := filepath.Join(r.settings.Path, name)

	f, err := os.Create(path) //nolint:gosec // path is built from configuration
	if err != nil {
		r.metrics.RecordError("open")
		return errors.New(err).
			Component(componentRecorder).
			Category(errors.CategoryFileIO).
			Context("operation", "create_file").
			Context("path", path).
			Build()
	}

	r.file = f
	r.path = path
	r.files = append(r.files, path)
	r.enc = wav.NewEncoder(f, r.buf.Format.SampleRate, r.settings.BitDepth, r.channels(), wavFormatPCM)
	r.metrics.RecordFileOpened()

	r.log.Info("recording started",
		logger.String("path", path),
		logger.Int("sample_rate", r.buf.Format.SampleRate),
		logger.Int("bit_depth", r.settings.BitDepth),
		logger.Int("channels", r.channels()))
	return nil
}

// finalizeLocked rewrites the WAV header sizes and closes the file.
func (r *Recorder) finalizeLocked() error {
	if r.enc == nil {
		return nil
	}
	encErr := r.enc.Close()
	closeErr := r.file.Close()
	path := r.path
	r.enc, r.file, r.path = nil, nil, ""

	if err := errors.Join(encErr, closeErr); err != nil {
		r.metrics.RecordError("close")
		return errors.New(err).
			Component(componentRecorder).
			Category(errors.CategoryFileIO).
			Context("operation", "finalize").
			Context("path", path).
			Build()
	}
	r.log.Info("recording finalized", logger.String("path", path))
	return nil
}

// Files lists every file opened so far, oldest first.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// Close finalizes the current file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalizeLocked()
}
