package hue

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/sink"
)

// StreamPort is where bridges accept entertainment streams.
const StreamPort = 2100

type Options struct {
	// Hub is the bridge host, optionally with a REST port.
	Hub       string
	Username  string
	ClientKey string // hex
	Group     int
	// StreamPort overrides the DTLS port.
	StreamPort int
}

func (o Options) streamAddr() (*net.UDPAddr, error) {
	host := o.Hub
	if h, _, err := net.SplitHostPort(o.Hub); err == nil {
		host = h
	}
	port := o.StreamPort
	if port == 0 {
		port = StreamPort
	}
	return net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Connect arms streaming on the group, resolves its lights and completes the
// DTLS handshake. Closing the returned sink disarms the group again.
func Connect(ctx context.Context, o Options) (*sink.SecureStream, error) {
	key, err := hex.DecodeString(o.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("client key: %w", err)
	}
	raddr, err := o.streamAddr()
	if err != nil {
		return nil, fmt.Errorf("stream address: %w", err)
	}

	bridge := NewBridge(o.Hub, o.Username)
	if err := bridge.SetStreaming(ctx, o.Group, true); err != nil {
		return nil, err
	}
	disarm := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Str("hub", o.Hub).Int("group", o.Group).Msg("disarming hue stream")
		return bridge.SetStreaming(ctx, o.Group, false)
	}

	lights, err := bridge.GroupLights(ctx, o.Group)
	if err != nil {
		_ = disarm()
		return nil, err
	}

	log.Info().Str("hub", raddr.String()).Int("group", o.Group).Msg("connecting hue stream")
	conn, err := dtls.Dial("udp", raddr, &dtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return key, nil
		},
		PSKIdentityHint:      []byte(o.Username),
		CipherSuites:         []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
	})
	if err != nil {
		_ = disarm()
		return nil, fmt.Errorf("dtls dial %s: %w", raddr, err)
	}
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.HandshakeContext(hctx); err != nil {
		_ = conn.Close()
		_ = disarm()
		return nil, fmt.Errorf("dtls handshake %s: %w", raddr, err)
	}

	desc := sink.FixtureDesc(o.Hub, o.Group, lights)
	log.Info().Str("stream", desc).Msg("hue stream connected")
	return sink.NewSecureStream(desc, lights, conn, disarm), nil
}
