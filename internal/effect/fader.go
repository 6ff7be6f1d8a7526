package effect

import "github.com/coreman2200/stripcast/internal/pixel"

// Fader decays a buffer toward black. Each step lowers every channel of a
// pixel by max(peak*Factor, MinStep); pixels with a peak under Threshold are
// skipped. A positive MinStep bounds the number of steps to black.
type Fader struct {
	Threshold float64
	Factor    float64
	MinStep   float64
}

var (
	// IdleFade runs once the idle deadline fires and ends at exact black.
	IdleFade = Fader{Threshold: 0, Factor: 0.05, MinStep: 0.25}
	// AlertFade decays the alert flash; it stops once every pixel is dim.
	AlertFade = Fader{Threshold: 10, Factor: 0.10, MinStep: 1}
)

// Apply runs one step and reports whether anything changed.
func (f Fader) Apply(buf *pixel.Buffer) bool {
	return buf.Fade(f.Threshold, f.Factor, f.MinStep)
}

// MaxSteps is an upper bound on the number of Apply calls needed to stop
// changing a buffer whose channels are at most full scale.
func (f Fader) MaxSteps() int {
	if f.MinStep <= 0 {
		return -1
	}
	return int(255/f.MinStep) + 1
}
