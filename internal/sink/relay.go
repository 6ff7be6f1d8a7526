package sink

import (
	"context"
	"fmt"
	"net"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// Header of a relayed frame: sequential mode, five second peer timeout.
const (
	relayMode    = 2
	relayTimeout = 5
	relayMax     = 1472
)

// Relay forwards frames to one peer speaking the same protocol.
type Relay struct {
	dest *net.UDPAddr
	conn *net.UDPConn
	buf  []byte
}

func NewRelay(dest string) (*Relay, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("relay resolve %s: %w", dest, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("relay socket: %w", err)
	}
	return &Relay{dest: addr, conn: conn, buf: make([]byte, 0, relayMax)}, nil
}

func (*Relay) sink() {}

// Write sends [2, 5, r, g, b, ...] as one datagram. Pixels that do not fit in
// one datagram are dropped.
func (r *Relay) Write(_ context.Context, frame []pixel.RGB) error {
	r.buf = append(r.buf[:0], relayMode, relayTimeout)
	for _, c := range frame {
		if len(r.buf)+3 > relayMax {
			break
		}
		r.buf = append(r.buf, c.R, c.G, c.B)
	}
	if _, err := r.conn.WriteToUDP(r.buf, r.dest); err != nil {
		return fmt.Errorf("relay send %s: %w", r.dest, err)
	}
	return nil
}

func (r *Relay) Close() error { return r.conn.Close() }

func (r *Relay) String() string { return "udp:" + r.dest.String() }
