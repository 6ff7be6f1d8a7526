package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Bus is a physical LED transport taking packed 8-bit RGB triples.
type Bus interface {
	io.Writer
	io.Closer
	String() string
}

// Hardware drives a Bus synchronously.
type Hardware struct {
	bus Bus
	raw []byte
}

func NewHardware(bus Bus) *Hardware {
	return &Hardware{bus: bus}
}

func (*Hardware) sink() {}

// Write packs the frame and transfers it. Any failure is an ErrBusFault.
func (h *Hardware) Write(_ context.Context, frame []pixel.RGB) error {
	h.raw = packRGB(h.raw[:0], frame)
	if _, err := h.bus.Write(h.raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBusFault, h.bus, err)
	}
	return nil
}

func (h *Hardware) Close() error { return h.bus.Close() }

func (h *Hardware) String() string { return h.bus.String() }

func packRGB(dst []byte, frame []pixel.RGB) []byte {
	for _, c := range frame {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}
