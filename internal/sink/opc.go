package sink

import (
	"fmt"

	"github.com/kellydunn/go-opc"
)

// OPCBus drives a fadecandy style Open Pixel Control server over TCP. Each
// write is one set-pixel-colors message on the configured channel.
type OPCBus struct {
	addr    string
	channel uint8
	client  *opc.Client
}

func DialOPC(addr string, channel uint8) (*OPCBus, error) {
	oc := opc.NewClient()
	if err := oc.Connect("tcp", addr); err != nil {
		return nil, fmt.Errorf("opc connect %s: %w", addr, err)
	}
	return &OPCBus{addr: addr, channel: channel, client: oc}, nil
}

func (b *OPCBus) Write(rgb []byte) (int, error) {
	if len(rgb) > 0xffff {
		return 0, fmt.Errorf("opc payload too long: %d", len(rgb))
	}
	m := opc.NewMessage(b.channel)
	m.SetLength(uint16(len(rgb)))
	for i := 0; i+3 <= len(rgb); i += 3 {
		m.SetPixelColor(i/3, rgb[i], rgb[i+1], rgb[i+2])
	}
	if err := b.client.Send(m); err != nil {
		return 0, err
	}
	return len(rgb), nil
}

func (b *OPCBus) Close() error { return b.client.Conn.Close() }

func (b *OPCBus) String() string { return fmt.Sprintf("opc:%s/%d", b.addr, b.channel) }
