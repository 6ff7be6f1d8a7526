package effect_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/pixel"
)

func TestRainbowToggle(t *testing.T) {
	r := NewRainbow(0)
	assert.False(t, r.Enabled())
	assert.Equal(t, DefaultRainbowSpeed, r.Toggle())
	assert.True(t, r.Enabled())
	assert.Equal(t, 0.0, r.Toggle())
	assert.False(t, r.Enabled())

	assert.Equal(t, 90.0, r.SetUnits(3))
	assert.Equal(t, 0.0, r.Toggle())
}

func TestRainbowTransform(t *testing.T) {
	src := []pixel.Pixel{{R: 255}, {R: 255}}
	r := &Rainbow{Speed: 240}

	out := r.Transform(src)
	assert.Equal(t, []pixel.RGB{{R: 255}, {G: 255}}, out)

	r.Speed = 0
	assert.Equal(t, []pixel.RGB{{R: 255}, {R: 255}}, r.Transform(src))
}

func TestRainbowLeavesBufferAlone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	buf := pixel.NewBuffer(32)
	for i := range buf.Pixels {
		buf.Pixels[i] = pixel.Pixel{R: float64(rng.Intn(256)), G: float64(rng.Intn(256)), B: float64(rng.Intn(256))}
	}
	before := append([]pixel.Pixel(nil), buf.Pixels...)

	r := &Rainbow{Speed: 270}
	first := r.Transform(buf.Pixels)
	second := r.Transform(buf.Pixels)
	assert.Equal(t, first, second)
	assert.Equal(t, before, buf.Pixels)
}

func TestFaderConverges(t *testing.T) {
	for _, f := range []Fader{IdleFade, AlertFade} {
		buf := pixel.NewBuffer(8)
		buf.Fill(pixel.Pixel{R: 255, G: 0.3, B: 17})
		buf.Pixels[3] = pixel.Pixel{G: 0.01}

		steps := 0
		for f.Apply(buf) {
			steps++
			require.LessOrEqual(t, steps, f.MaxSteps())
		}
		for _, p := range buf.Pixels {
			assert.Less(t, p.Peak(), f.Threshold+1)
		}
	}
}

func TestIdleFadeReachesBlack(t *testing.T) {
	buf := pixel.NewBuffer(4)
	buf.Fill(pixel.Pixel{R: 200, G: 100, B: 1})
	for IdleFade.Apply(buf) {
	}
	assert.True(t, buf.IsBlack())
}

func TestAlertFadeStopsAtThreshold(t *testing.T) {
	buf := pixel.NewBuffer(2)
	buf.Fill(pixel.Pixel{B: 255})
	buf.Pixels[1] = pixel.Pixel{B: 9}
	for AlertFade.Apply(buf) {
	}
	assert.Less(t, buf.Pixels[0].B, 10.0)
	assert.Greater(t, buf.Pixels[0].B, 0.0)
	assert.Equal(t, 9.0, buf.Pixels[1].B)
}

func TestAlertFadeOutpacesIdleFade(t *testing.T) {
	idle, alert := pixel.NewBuffer(1), pixel.NewBuffer(1)
	idle.Fill(pixel.Pixel{B: 255})
	alert.Fill(pixel.Pixel{B: 255})

	IdleFade.Apply(idle)
	IdleFade.Apply(idle)
	assert.InDelta(t, 255*0.95*0.95, idle.Pixels[0].B, 0.001)

	AlertFade.Apply(alert)
	AlertFade.Apply(alert)
	assert.InDelta(t, 255*0.9*0.9, alert.Pixels[0].B, 0.001)
}

func TestAudioVisProcess(t *testing.T) {
	src := make([]pixel.Pixel, 20)
	for i := range src {
		src[i].R = 100
	}
	a := NewAudioVis(len(src))
	assert.True(t, a.Toggle())
	assert.Equal(t, GainMin, a.Gain())

	a.Process(src)
	center := a.Frame()[10]
	assert.InDelta(t, 120, center.R, 1e-9)
	assert.InDelta(t, 90, center.G, 1e-9)
	assert.InDelta(t, 100, center.B, 1e-9)
	assert.InDelta(t, GainMin+0.001, a.Gain(), 1e-9)
}

func TestAudioVisGainClamp(t *testing.T) {
	src := make([]pixel.Pixel, 10)
	for i := range src {
		src[i].R = 255
	}
	a := NewAudioVis(len(src))
	a.Toggle()
	for i := 0; i < 100; i++ {
		a.Process(src)
	}
	// 255*1.2 already exceeds full scale, so the gain is pinned to the floor.
	assert.Equal(t, GainMin, a.Gain())

	dim := make([]pixel.Pixel, 10)
	for i := range dim {
		dim[i].R = 1
	}
	for i := 0; i < 5000; i++ {
		a.Process(dim)
	}
	assert.Equal(t, GainMax, a.Gain())
}

func TestAudioVisEmptyBands(t *testing.T) {
	a := NewAudioVis(2)
	a.Toggle()
	a.Process([]pixel.Pixel{{R: 50}, {R: 50}})
	// n=2: low [0,0) and mid [0,1), high [1,2)
	assert.Equal(t, pixel.Pixel{R: 0, G: 45, B: 50}, a.Frame()[1])
}

func TestAudioVisTickMirrors(t *testing.T) {
	a := NewAudioVis(5)
	a.Seed([]pixel.Pixel{{}, {}, {R: 100}, {}, {}})

	a.Tick()
	f := a.Frame()
	assert.Equal(t, pixel.Pixel{}, f[0])
	assert.InDelta(t, 80, f[1].R, 1e-9)
	assert.Equal(t, f[1], f[3])
	assert.Equal(t, 100.0, f[2].R)

	a.Tick()
	assert.InDelta(t, 64, f[0].R, 1e-9)
	assert.Equal(t, f[0], f[4])
}

func TestAudioVisToggleResetsGain(t *testing.T) {
	a := NewAudioVis(4)
	a.Toggle()
	a.Process([]pixel.Pixel{{R: 1}, {R: 1}, {R: 1}, {R: 1}})
	assert.Greater(t, a.Gain(), GainMin)
	assert.False(t, a.Toggle())
	assert.True(t, a.Toggle())
	assert.Equal(t, GainMin, a.Gain())
}
