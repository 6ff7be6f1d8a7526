// Package effect holds the animations the scheduler layers on top of the
// stored pixel buffer.
package effect

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/stripcast/internal/pixel"
)

const (
	// DefaultRainbowSpeed is the hue spread used by the on/off toggle.
	DefaultRainbowSpeed = 270.0
	// RainbowUnit converts the numeric speed command into degrees.
	RainbowUnit = 30.0
)

// Rainbow spreads Speed degrees of hue rotation across the strip. It is a
// view transform: the buffer it reads is never touched.
type Rainbow struct {
	Speed   float64
	Default float64
}

func NewRainbow(def float64) *Rainbow {
	if def <= 0 {
		def = DefaultRainbowSpeed
	}
	return &Rainbow{Default: def}
}

func (r *Rainbow) Enabled() bool { return r.Speed != 0 }

// Toggle switches between off and the default speed and returns the new speed.
func (r *Rainbow) Toggle() float64 {
	if r.Speed > 0 {
		r.Speed = 0
	} else {
		r.Speed = r.Default
	}
	return r.Speed
}

// SetUnits sets the speed from the numeric command form.
func (r *Rainbow) SetUnits(n uint8) float64 {
	r.Speed = RainbowUnit * float64(n)
	return r.Speed
}

// Transform returns the 8-bit frame with pixel i of n rotated by Speed*i/n
// degrees of hue.
func (r *Rainbow) Transform(src []pixel.Pixel) []pixel.RGB {
	out := make([]pixel.RGB, len(src))
	n := float64(len(src))
	for i, p := range src {
		c := p.RGB()
		if r.Speed == 0 {
			out[i] = c
			continue
		}
		h, s, v := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}.Hsv()
		h = math.Mod(h+r.Speed*float64(i)/n, 360)
		if h < 0 {
			h += 360
		}
		out[i].R, out[i].G, out[i].B = colorful.Hsv(h, s, v).Clamped().RGB255()
	}
	return out
}
