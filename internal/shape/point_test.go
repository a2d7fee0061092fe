package shape

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/errors"
)

const eps = 1e-9

func TestPointTransforms(t *testing.T) {
	p := Point{X: 1, Y: 0, Z: 0.5}

	r := p.Rotate(math.Pi / 2)
	assert.InDelta(t, 0, r.X, eps)
	assert.InDelta(t, 1, r.Y, eps)
	assert.InDelta(t, 0.5, r.Z, eps)

	assert.Equal(t, Point{X: 2, Y: 0, Z: 0.5}, p.Scale(2, 3))
	assert.Equal(t, Point{X: 1.5, Y: -1, Z: 0.5}, p.Translate(0.5, -1))
	assert.Equal(t, Point{X: 1, Y: 2, Z: 0.5}, p.ReflectRelativeToVector(1, 1))

	// value semantics
	assert.Equal(t, Point{X: 1, Y: 0, Z: 0.5}, p)
}

func TestMagnitudeAndClamp(t *testing.T) {
	assert.InDelta(t, 3, Point{X: 1, Y: 2, Z: 2}.Magnitude(), eps)
	assert.InDelta(t, 0, Point{}.Magnitude(), eps)

	assert.Equal(t, Point{X: 1, Y: -1, Z: 0.25}, Point{X: 4, Y: -2, Z: 0.25}.Clamp(1))
	assert.Equal(t, Pt(0.5, 0.25), Point{X: 0.5, Y: 0.25})
}

func TestLissajousCircle(t *testing.T) {
	const sampleRate = 1000.0
	gen := NewLissajous(LissajousConfig{
		FrequencyX: 10,
		FrequencyY: 10,
		Phase:      math.Pi / 2,
		Amplitude:  0.5,
	}, sampleRate)

	// equal frequencies with a quarter-turn phase trace a circle
	for range 250 {
		p := gen.Next()
		assert.InDelta(t, 0.5, math.Hypot(p.X, p.Y), 1e-6)
	}
}

func TestLissajousPeriodicity(t *testing.T) {
	gen := NewLissajous(LissajousConfig{FrequencyX: 100, FrequencyY: 50, Amplitude: 1}, 1000)

	first := gen.Next()
	for range 19 {
		gen.Next()
	}
	// 20 samples is one full period of the 50 Hz oscillator
	again := gen.Next()
	assert.InDelta(t, first.X, again.X, 1e-6)
	assert.InDelta(t, first.Y, again.Y, 1e-6)
}

func TestLissajousConfigureAppliesOnNextSample(t *testing.T) {
	gen := NewLissajous(LissajousConfig{FrequencyX: 1, FrequencyY: 1, Amplitude: 1}, 100)
	gen.Next()

	gen.Configure(LissajousConfig{Amplitude: 0})
	p := gen.Next()
	assert.InDelta(t, 0, p.X, eps)
	assert.InDelta(t, 0, p.Y, eps)
}

func TestLissajousRotationFillsZ(t *testing.T) {
	gen := NewLissajous(LissajousConfig{Amplitude: 1, RotationSpeed: 1}, 4)

	zs := make([]float64, 0, 4)
	for range 4 {
		zs = append(zs, gen.Next().Z)
	}
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75}, zs, 1e-9)
}

func TestLissajousConfigReportsPendingParameters(t *testing.T) {
	gen := NewLissajous(LissajousConfig{FrequencyX: 1, Amplitude: 1}, 100)
	assert.Equal(t, LissajousConfig{FrequencyX: 1, Amplitude: 1}, gen.Config())

	next := LissajousConfig{FrequencyX: 2, FrequencyY: 3, Amplitude: 0.5}
	gen.Configure(next)
	assert.Equal(t, next, gen.Config())

	gen.Next()
	assert.Equal(t, next, gen.Config())
}

func TestLissajousConfigValidate(t *testing.T) {
	assert.NoError(t, LissajousConfig{FrequencyX: 220, FrequencyY: 330, Amplitude: 0.8}.Validate())
	assert.NoError(t, LissajousConfig{}.Validate())

	for name, cfg := range map[string]LissajousConfig{
		"negative frequency": {FrequencyX: -1, Amplitude: 0.5},
		"amplitude too high": {Amplitude: 1.5},
		"amplitude NaN":      {Amplitude: math.NaN()},
		"infinite rotation":  {Amplitude: 0.5, RotationSpeed: math.Inf(1)},
	} {
		err := cfg.Validate()
		require.Error(t, err, name)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), name)
	}
}
