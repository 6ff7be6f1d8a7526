package sink

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/pixel"
)

const (
	streamMagic = "HueStream"
	// version 1.0, sequence, reserved x2, RGB color space, reserved
	streamHeaderLen = 16
	streamRecordLen = 9
)

// SecureStream maps frame positions one to one onto the fixtures of an
// entertainment group and sends them over an established secure datagram
// channel.
//
// A failed send does not propagate: the stream logs it, goes dark and stays
// dark until it is replaced.
type SecureStream struct {
	desc      string
	fixtures  []uint16
	conn      io.WriteCloser
	disarm    func() error
	connected atomic.Bool
	buf       []byte
}

// NewSecureStream takes ownership of conn. disarm, when not nil, runs on Close
// after the channel is shut.
func NewSecureStream(desc string, fixtures []uint16, conn io.WriteCloser, disarm func() error) *SecureStream {
	s := &SecureStream{
		desc:     desc,
		fixtures: fixtures,
		conn:     conn,
		disarm:   disarm,
		buf:      make([]byte, 0, streamHeaderLen+streamRecordLen*len(fixtures)),
	}
	s.connected.Store(true)
	return s
}

func (*SecureStream) sink() {}

// Fixtures returns the fixture ids in streaming order.
func (s *SecureStream) Fixtures() []uint16 { return s.fixtures }

func (s *SecureStream) Connected() bool { return s.connected.Load() }

func (s *SecureStream) Write(_ context.Context, frame []pixel.RGB) error {
	if !s.connected.Load() {
		return nil
	}
	s.buf = appendStreamFrame(s.buf[:0], s.fixtures, frame)
	if _, err := s.conn.Write(s.buf); err != nil {
		log.Warn().Err(err).Str("sink", s.desc).Msg("secure stream disconnected")
		s.connected.Store(false)
	}
	return nil
}

func (s *SecureStream) Close() error {
	s.connected.Store(false)
	err := s.conn.Close()
	if s.disarm != nil {
		if derr := s.disarm(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

func (s *SecureStream) String() string {
	if !s.connected.Load() {
		return "hue:" + s.desc + "(disconnected)"
	}
	return "hue:" + s.desc
}

// appendStreamFrame writes the header and one [0, id_hi, id_lo, r,r, g,g, b,b]
// record per fixture that has a matching frame position.
func appendStreamFrame(dst []byte, fixtures []uint16, frame []pixel.RGB) []byte {
	dst = append(dst, streamMagic...)
	dst = append(dst, 1, 0, 0, 0, 0, 0, 0)
	for i, id := range fixtures {
		if i >= len(frame) {
			break
		}
		c := frame[i]
		dst = append(dst, 0, byte(id>>8), byte(id), c.R, c.R, c.G, c.G, c.B, c.B)
	}
	return dst
}

// FixtureDesc renders a short description for logs, e.g. "hub/7[3 12]".
func FixtureDesc(hub string, group int, fixtures []uint16) string {
	return fmt.Sprintf("%s/%d%v", hub, group, fixtures)
}
