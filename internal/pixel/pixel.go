package pixel

import "math"

// Pixel is one addressable position. Channels are additive and nominally in
// [0,255]; they stay floating point so decay can accumulate below one step.
type Pixel struct {
	R, G, B float64
}

// RGB is the 8-bit form handed to sinks.
type RGB struct {
	R, G, B uint8
}

// FromRGB widens an 8-bit color.
func FromRGB(c RGB) Pixel {
	return Pixel{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

// RGB truncates each channel toward zero, saturating at 0 and 255.
func (p Pixel) RGB() RGB {
	return RGB{R: channel8(p.R), G: channel8(p.G), B: channel8(p.B)}
}

// Peak returns the largest channel.
func (p Pixel) Peak() float64 {
	return math.Max(p.R, math.Max(p.G, p.B))
}

// Fade lowers every channel by max(Peak*factor, minStep), never below zero.
// Pixels whose peak is below threshold are left alone. It reports whether the
// pixel changed.
func (p *Pixel) Fade(threshold, factor, minStep float64) bool {
	peak := p.Peak()
	if peak <= 0 || peak < threshold || (factor <= 0 && minStep <= 0) {
		return false
	}
	step := math.Max(peak*factor, minStep)
	next := Pixel{
		R: math.Max(0, p.R-step),
		G: math.Max(0, p.G-step),
		B: math.Max(0, p.B-step),
	}
	changed := next != *p
	*p = next
	return changed
}

func channel8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// RatioIndex converts a fraction of length into an index: ratio <= 0 maps to 0,
// ratio >= 1 maps to length, anything between is truncated.
func RatioIndex(ratio float64, length int) int {
	switch {
	case ratio <= 0:
		return 0
	case ratio >= 1:
		return length
	}
	return int(ratio * float64(length))
}
