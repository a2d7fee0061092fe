package engine

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
)

// MalgoDriver plays the X/Y signal on a sound card. Its data callback is the
// engine's Process.
type MalgoDriver struct {
	sampleRate float64
	blockSize  int
	channels   int
	deviceName string
	log        logger.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMalgoDriver configures a playback driver. An empty deviceName selects
// the system default device; otherwise the first device whose name contains
// deviceName is used.
func NewMalgoDriver(sampleRate float64, blockSize, channels int, deviceName string, log logger.Logger) *MalgoDriver {
	if log == nil {
		log = logger.Global().Module(componentEngine)
	}
	return &MalgoDriver{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		channels:   max(2, channels),
		deviceName: deviceName,
		log:        log.Module("malgo"),
	}
}

func (d *MalgoDriver) SampleRate() float64 { return d.sampleRate }
func (d *MalgoDriver) BlockSize() int      { return d.blockSize }

func backends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

func deviceError(err error, op string) error {
	return errors.New(err).
		Component(componentEngine).
		Category(errors.CategoryAudioDevice).
		Context("operation", op).
		Build()
}

// Start opens the playback device and starts the stream.
func (d *MalgoDriver) Start(p Processor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		return nil
	}

	ctx, err := malgo.InitContext(backends(), malgo.ContextConfig{}, func(message string) {
		d.log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return deviceError(err, "init_context")
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(d.channels)
	cfg.SampleRate = uint32(d.sampleRate)
	cfg.PeriodSizeInFrames = uint32(d.blockSize)
	cfg.Alsa.NoMMap = 1

	if d.deviceName != "" {
		id, err := findPlaybackDevice(ctx, d.deviceName)
		if err != nil {
			_ = ctx.Uninit()
			ctx.Free()
			return err
		}
		cfg.Playback.DeviceID = id.Pointer()
	}

	channels := d.channels
	onSamples := func(output, _ []byte, frameCount uint32) {
		n := int(frameCount) * channels
		if len(output) < n*4 {
			return
		}
		out := unsafe.Slice((*float32)(unsafe.Pointer(&output[0])), n)
		p.Process(out, channels, int(frameCount))
	}
	onStop := func() {
		d.log.Debug("playback device stopped")
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSamples, Stop: onStop})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return deviceError(err, "init_device")
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return deviceError(err, "start_device")
	}

	d.ctx = ctx
	d.device = device
	d.log.Info("playback started",
		logger.Int("sample_rate", int(device.SampleRate())),
		logger.Int("channels", int(device.PlaybackChannels())),
		logger.Int("period_frames", d.blockSize))
	return nil
}

// findPlaybackDevice returns the first device whose name contains name.
func findPlaybackDevice(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceID, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, deviceError(err, "list_devices")
	}
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), strings.ToLower(name)) {
			return &infos[i].ID, nil
		}
	}
	return nil, errors.Newf("playback device %q not found", name).
		Component(componentEngine).
		Category(errors.CategoryNotFound).
		Build()
}

// Stop stops the device and releases the audio context.
func (d *MalgoDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	stopErr := d.device.Stop()
	d.device.Uninit()
	uninitErr := d.ctx.Uninit()
	d.ctx.Free()
	d.device, d.ctx = nil, nil
	if err := errors.Join(stopErr, uninitErr); err != nil {
		return deviceError(err, "stop_device")
	}
	return nil
}
