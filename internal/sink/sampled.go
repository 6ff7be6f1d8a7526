package sink

import (
	"context"
	"fmt"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Sampled downscales a window of the frame onto a smaller base sink.
type Sampled struct {
	base       Sink
	start, end int
	count      int
}

// NewSampled views frame[start:end] as count equal chunks, each averaged to
// one pixel. The base must be a leaf.
func NewSampled(base Sink, start, end, count int) (*Sampled, error) {
	switch base.(type) {
	case *Composite, *Sampled:
		return nil, fmt.Errorf("%w: sampled base must be a leaf, got %s", ErrInvalidNesting, base)
	}
	if start < 0 || end <= start {
		return nil, fmt.Errorf("invalid sample window [%d, %d)", start, end)
	}
	if count <= 0 || end-start < count {
		return nil, fmt.Errorf("invalid sample count %d for window [%d, %d)", count, start, end)
	}
	return &Sampled{base: base, start: start, end: end, count: count}, nil
}

func (*Sampled) sink() {}

func (s *Sampled) Write(ctx context.Context, frame []pixel.RGB) error {
	return s.base.Write(ctx, Scale(frame, s.start, s.end, s.count))
}

func (s *Sampled) Close() error { return s.base.Close() }

func (s *Sampled) String() string {
	return fmt.Sprintf("%s<%d..%d/%d>", s.base, s.start, s.end, s.count)
}

// Base returns the wrapped sink.
func (s *Sampled) Base() Sink { return s.base }

// Scale averages frame[start:end] into count pixels. The window is split into
// chunks of (end-start)/count pixels; each output channel is the truncated
// mean of its chunk. Chunks past the end of frame are dropped and a chunk cut
// short by it is averaged over what remains.
func Scale(frame []pixel.RGB, start, end, count int) []pixel.RGB {
	if count <= 0 || end <= start {
		return nil
	}
	chunk := (end - start) / count
	if chunk == 0 {
		return nil
	}
	out := make([]pixel.RGB, 0, count)
	for j := 0; j < count; j++ {
		lo := start + j*chunk
		hi := min(lo+chunk, len(frame))
		if lo >= hi {
			break
		}
		var r, g, b int
		for _, c := range frame[lo:hi] {
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
		}
		n := hi - lo
		out = append(out, pixel.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)})
	}
	return out
}
