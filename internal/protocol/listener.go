package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
)

// Listener receives control datagrams on a bound UDP socket.
type Listener struct {
	conn *net.UDPConn
}

// Listen binds addr. A bind failure is returned as is; the caller treats it as
// fatal.
func Listen(addr string) (*Listener, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return &Listener{conn: conn}, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Serve reads datagrams and hands each one, in a slice of its own, to out. It
// blocks while out is not being drained, leaving further datagrams queued in
// the socket. Serve returns nil once ctx is done.
func (l *Listener) Serve(ctx context.Context, out chan<- []byte) error {
	go func() {
		<-ctx.Done()
		_ = l.conn.Close()
	}()

	buf := make([]byte, MaxDatagram)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		log.Trace().Str("from", from.String()).Int("len", n).Msg("datagram")

		select {
		case out <- data:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
