package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

type countingMetrics struct {
	files, frames, bytes int
	errs                 []string
}

func (c *countingMetrics) RecordFileOpened() { c.files++ }
func (c *countingMetrics) RecordWrite(frames, bytes int, _ float64) {
	c.frames += frames
	c.bytes += bytes
}
func (c *countingMetrics) RecordError(op string) { c.errs = append(c.errs, op) }

func newTestRecorder(t *testing.T, mutate func(*conf.RecorderSettings), opts ...Option) *Recorder {
	t.Helper()
	settings := conf.RecorderSettings{
		Path:        t.TempDir(),
		Prefix:      "test",
		BitDepth:    16,
		BatchBlocks: 4,
	}
	if mutate != nil {
		mutate(&settings)
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithLogger(logger.NewDiscardLogger()),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	}, opts...)
	r, err := New(settings, opts...)
	require.NoError(t, err)
	return r
}

func decode(t *testing.T, path string) *wav.Decoder {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test fixture path
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	return d
}

func TestNewRejectsBitDepth(t *testing.T) {
	t.Parallel()

	_, err := New(conf.RecorderSettings{BitDepth: 12})
	require.ErrorIs(t, err, ErrUnsupportedBitDepth)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestPrepareCapacity(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, nil)
	capacity, err := r.Prepare(48000, 256)
	require.NoError(t, err)
	assert.Equal(t, 1024, capacity)
	assert.Empty(t, r.Files(), "no file before the first batch")
	require.NoError(t, r.Close())
}

func TestRecordsStereo16Bit(t *testing.T) {
	t.Parallel()

	metrics := &countingMetrics{}
	r := newTestRecorder(t, nil, WithMetrics(metrics))
	_, err := r.Prepare(44100, 2)
	require.NoError(t, err)

	require.NoError(t, r.Run([]shape.Point{shape.Pt(0, 0), shape.Pt(1, -1)}))
	require.NoError(t, r.Run([]shape.Point{shape.Pt(0.5, -0.5), shape.Pt(3, -3)}))
	require.NoError(t, r.Close())

	files := r.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "test-20260301T120001.000-44100hz.wav", filepath.Base(files[0]))

	d := decode(t, files[0])
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 44100, buf.Format.SampleRate)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, uint16(16), d.BitDepth)
	assert.Equal(t, []int{0, 0, 32767, -32767, 16384, -16384, 32767, -32767}, buf.Data)

	assert.Equal(t, 1, metrics.files)
	assert.Equal(t, 4, metrics.frames)
	assert.Equal(t, 16, metrics.bytes)
	assert.Empty(t, metrics.errs)
}

func TestRecordsZChannel24Bit(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, func(s *conf.RecorderSettings) {
		s.BitDepth = 24
		s.IncludeZ = true
	})
	_, err := r.Prepare(48000, 1)
	require.NoError(t, err)
	require.NoError(t, r.Run([]shape.Point{{X: 1, Y: 0, Z: -1}}))
	require.NoError(t, r.Close())

	d := decode(t, r.Files()[0])
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Format.NumChannels)
	assert.Equal(t, []int{8388607, 0, -8388607}, buf.Data)
}

func TestSampleRateChangeStartsNewFile(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, nil)
	_, err := r.Prepare(48000, 1)
	require.NoError(t, err)
	require.NoError(t, r.Run([]shape.Point{shape.Pt(0.1, 0.1)}))

	// same rate keeps appending
	_, err = r.Prepare(48000, 4)
	require.NoError(t, err)
	require.NoError(t, r.Run([]shape.Point{shape.Pt(0.2, 0.2)}))
	assert.Len(t, r.Files(), 1)

	_, err = r.Prepare(96000, 4)
	require.NoError(t, err)
	require.NoError(t, r.Run([]shape.Point{shape.Pt(0.3, 0.3)}))
	require.NoError(t, r.Close())

	files := r.Files()
	require.Len(t, files, 2)
	first, err := decode(t, files[0]).FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 48000, first.Format.SampleRate)
	assert.Len(t, first.Data, 4)

	second, err := decode(t, files[1]).FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 96000, second.Format.SampleRate)
	assert.Len(t, second.Data, 2)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, nil)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestOpenFailureIsReported(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	metrics := &countingMetrics{}
	r := newTestRecorder(t, func(s *conf.RecorderSettings) { s.Path = blocker }, WithMetrics(metrics))
	_, err := r.Prepare(48000, 1)
	require.NoError(t, err)

	err = r.Run([]shape.Point{shape.Pt(0, 0)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.Equal(t, []string{"open"}, metrics.errs)
}

func TestQuantize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"zero", 0, 0},
		{"full scale", 1, 100},
		{"negative full scale", -1, -100},
		{"clamped high", 7, 100},
		{"clamped low", -7, -100},
		{"half", 0.5, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quantize(tt.in, 100))
		})
	}
}
