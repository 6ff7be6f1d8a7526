package protocol

import (
	"fmt"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Wire modes carried in the first byte of a frame datagram.
const (
	ModeSparse     byte = 1
	ModeSequential byte = 2
)

// TimeoutDisabled in the timeout byte pushes the idle deadline to its maximum.
const TimeoutDisabled byte = 255

// MaxDatagram is one UDP payload on a 1500 byte MTU.
const MaxDatagram = 1472

// Command is the decoded form of one datagram.
type Command interface {
	fmt.Stringer
	command()
}

// Record is one indexed color of a sparse frame.
type Record struct {
	Index int
	Color pixel.RGB
}

// SetSparse updates an arbitrary subset of positions.
type SetSparse struct {
	Timeout byte
	Records []Record
}

// SetSequential updates positions 0..len(Pixels) in order.
type SetSequential struct {
	Timeout byte
	Pixels  []pixel.RGB
}

type ToggleAlert struct{}

type ToggleAudioVis struct{}

type ToggleRainbow struct{}

// SetRainbowSpeed selects a rainbow speed of 30 degrees per unit.
type SetRainbowSpeed struct {
	Units uint8
}

type ToggleSecureStream struct{}

// Ignored is anything the decoder did not recognise.
type Ignored struct {
	Reason string
	Data   []byte
}

func (SetSparse) command() {}
func (SetSequential) command() {}
func (ToggleAlert) command() {}
func (ToggleAudioVis) command() {}
func (ToggleRainbow) command() {}
func (SetRainbowSpeed) command() {}
func (ToggleSecureStream) command() {}
func (Ignored) command() {}

func (c SetSparse) String() string {
	return fmt.Sprintf("sparse(timeout=%d, records=%d)", c.Timeout, len(c.Records))
}
func (c SetSequential) String() string {
	return fmt.Sprintf("sequential(timeout=%d, pixels=%d)", c.Timeout, len(c.Pixels))
}
func (ToggleAlert) String() string { return "warn" }
func (ToggleAudioVis) String() string { return "audvis" }
func (ToggleRainbow) String() string { return "rainbow" }
func (c SetRainbowSpeed) String() string { return fmt.Sprintf("rainbow(%d)", c.Units) }
func (ToggleSecureStream) String() string { return "hue" }
func (c Ignored) String() string { return fmt.Sprintf("ignored(%s, %d bytes)", c.Reason, len(c.Data)) }
