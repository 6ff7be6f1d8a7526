package effect

import (
	"math"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Adaptive gain band for the synthetic equalizer.
const (
	GainMin  = 1.0
	GainMax  = 3.0
	gainStep = 0.001
)

type band struct {
	lo, hi float64
	weight float64
}

var bands = [3]band{
	{0, 0.15, 1.2},
	{0.25, 0.50, 0.9},
	{0.50, 1.0, 1.0},
}

// AudioVis is a fake three band equalizer driven by the red channel of the
// stored buffer. It keeps its own frame; the scheduler copies it into the
// buffer after each step.
type AudioVis struct {
	enabled bool
	gain    float64
	frame   []pixel.Pixel
}

func NewAudioVis(n int) *AudioVis {
	return &AudioVis{gain: GainMin, frame: make([]pixel.Pixel, n)}
}

func (a *AudioVis) Enabled() bool { return a.enabled }

// Toggle flips the effect. Turning it on resets the gain.
func (a *AudioVis) Toggle() bool {
	a.enabled = !a.enabled
	if a.enabled {
		a.gain = GainMin
	}
	return a.enabled
}

func (a *AudioVis) Gain() float64 { return a.gain }

func (a *AudioVis) Frame() []pixel.Pixel { return a.frame }

// Seed replaces the frame with src.
func (a *AudioVis) Seed(src []pixel.Pixel) {
	copy(a.frame, src)
}

// Process samples src into the center of the frame. Each channel is the red
// mean of one band of src, weighted and scaled by the gain. The gain then
// creeps up, limited so the sample stays within full scale and within
// [GainMin, GainMax].
func (a *AudioVis) Process(src []pixel.Pixel) {
	if len(a.frame) == 0 {
		return
	}
	var ch [3]float64
	for i, b := range bands {
		ch[i] = redMean(src, b.lo, b.hi) * b.weight * a.gain
	}
	sample := pixel.Pixel{R: ch[0], G: ch[1], B: ch[2]}

	a.gain += gainStep
	if peak := sample.Peak(); peak > 0 {
		a.gain = math.Min(a.gain, 255/peak)
	}
	a.gain = math.Max(GainMin, math.Min(a.gain, GainMax))

	a.frame[len(a.frame)/2] = sample
}

// Tick scrolls the frame one step outward from the center, fading each moved
// pixel by 1/n of its peak, and mirrors the left half onto the right.
func (a *AudioVis) Tick() {
	n := len(a.frame)
	for i := 0; i < n/2; i++ {
		a.frame[i] = a.frame[i+1]
		a.frame[i].Fade(0, 1/float64(n), 0)
		a.frame[n-i-1] = a.frame[i]
	}
}

func redMean(src []pixel.Pixel, lo, hi float64) float64 {
	start, end := pixel.RatioIndex(lo, len(src)), pixel.RatioIndex(hi, len(src))
	if end <= start {
		return 0
	}
	var sum float64
	for _, p := range src[start:end] {
		sum += p.R
	}
	return sum / float64(end-start)
}
