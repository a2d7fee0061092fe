package shape

import (
	"math"
	"sync"

	"github.com/osci-render/osci-go/internal/errors"
)

// Generator produces one sample per audio frame. Next is called on the
// real-time path and must not allocate or block.
type Generator interface {
	Next() Point
	SetSampleRate(sampleRate float64)
}

// LissajousConfig parameterizes a Lissajous figure
type LissajousConfig struct {
	FrequencyX    float64 // Hz
	FrequencyY    float64 // Hz
	Phase         float64 // radians added to the Y oscillator
	Amplitude     float64 // peak value of X and Y before rotation
	RotationSpeed float64 // revolutions per second around Z
}

// Validate rejects parameters that cannot drive an output device
func (c LissajousConfig) Validate() error {
	for name, v := range map[string]float64{
		"frequency_x":    c.FrequencyX,
		"frequency_y":    c.FrequencyY,
		"phase":          c.Phase,
		"rotation_speed": c.RotationSpeed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf("%s must be finite", name).
				Component("shape").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	if c.FrequencyX < 0 || c.FrequencyY < 0 {
		return errors.Newf("frequencies must not be negative").
			Component("shape").
			Category(errors.CategoryValidation).
			Context("frequency_x", c.FrequencyX).
			Context("frequency_y", c.FrequencyY).
			Build()
	}
	if !(c.Amplitude >= 0 && c.Amplitude <= 1) {
		return errors.Newf("amplitude must be within [0, 1]").
			Component("shape").
			Category(errors.CategoryValidation).
			Context("amplitude", c.Amplitude).
			Build()
	}
	return nil
}

// Lissajous draws x = A·sin(2π·fx·t), y = A·sin(2π·fy·t + φ), optionally
// rotating the figure. Z carries the normalized rotation angle in [0, 1).
//
// Configure may be called from a control goroutine while Next runs on the
// audio thread; Next takes the latest configuration at the start of each call.
type Lissajous struct {
	mu sync.Mutex
	// guarded by mu
	cfg     LissajousConfig
	pending *LissajousConfig

	// audio thread only
	sampleRate float64
	phaseX     float64
	phaseY     float64
	angle      float64
}

// NewLissajous creates a generator running at sampleRate
func NewLissajous(cfg LissajousConfig, sampleRate float64) *Lissajous {
	return &Lissajous{cfg: cfg, sampleRate: sampleRate}
}

// Configure replaces the figure parameters without resetting phase
func (l *Lissajous) Configure(cfg LissajousConfig) {
	l.mu.Lock()
	l.pending = &cfg
	l.mu.Unlock()
}

// Config returns the most recently configured parameters, including ones
// Next has not picked up yet.
func (l *Lissajous) Config() LissajousConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		return *l.pending
	}
	return l.cfg
}

// SetSampleRate changes the clock. Call it only while Next is not running.
func (l *Lissajous) SetSampleRate(sampleRate float64) {
	if sampleRate > 0 {
		l.sampleRate = sampleRate
	}
}

// Next advances by one frame
func (l *Lissajous) Next() Point {
	if l.mu.TryLock() {
		if l.pending != nil {
			l.cfg = *l.pending
			l.pending = nil
		}
		l.mu.Unlock()
	}

	cfg := l.cfg
	p := Point{
		X: cfg.Amplitude * math.Sin(l.phaseX),
		Y: cfg.Amplitude * math.Sin(l.phaseY+cfg.Phase),
		Z: l.angle / (2 * math.Pi),
	}
	if l.angle != 0 {
		p = p.Rotate(l.angle)
	}

	if l.sampleRate > 0 {
		l.phaseX = advance(l.phaseX, cfg.FrequencyX, l.sampleRate)
		l.phaseY = advance(l.phaseY, cfg.FrequencyY, l.sampleRate)
		l.angle = advance(l.angle, cfg.RotationSpeed, l.sampleRate)
	}
	return p
}

// advance moves phase by one sample of frequency and wraps to [0, 2π)
func advance(phase, frequency, sampleRate float64) float64 {
	phase += 2 * math.Pi * frequency / sampleRate
	phase = math.Mod(phase, 2*math.Pi)
	if phase < 0 {
		phase += 2 * math.Pi
	}
	return phase
}
