package hue

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/stripcast/internal/pixel"
)

type fakeHub struct {
	mu      sync.Mutex
	streams []bool
	group   string
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/user/groups/7" {
		_, _ = io.WriteString(w, `[{"error":{"type":3,"address":"/groups/9","description":"resource not available"}}]`)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body streamState
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		h.streams = append(h.streams, body.Stream.Active)
		h.mu.Unlock()
		_, _ = io.WriteString(w, `[{"success":{"/groups/7/stream/active":true}}]`)
	case http.MethodGet:
		_, _ = io.WriteString(w, h.group)
	}
}

func (h *fakeHub) calls() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.streams...)
}

func TestParseLights(t *testing.T) {
	ids, err := parseLights([]byte(`{"name":"study","lights":["3","12","65535"],"type":"Entertainment"}`))
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 12, 65535}, ids)

	_, err = parseLights([]byte(`{"lights":[]}`))
	assert.ErrorIs(t, err, ErrNoLights)
	_, err = parseLights([]byte(`{"lights":["x"]}`))
	assert.Error(t, err)
	_, err = parseLights([]byte(`{"lights":["70000"]}`))
	assert.Error(t, err)
}

func TestBridgeREST(t *testing.T) {
	hub := &fakeHub{group: `{"lights":["4","9"]}`}
	ts := httptest.NewTLSServer(hub)
	defer ts.Close()

	b := NewBridge(ts.Listener.Addr().String(), "user")
	ctx := context.Background()

	require.NoError(t, b.SetStreaming(ctx, 7, true))
	lights, err := b.GroupLights(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []uint16{4, 9}, lights)
	require.NoError(t, b.SetStreaming(ctx, 7, false))
	assert.Equal(t, []bool{true, false}, hub.calls())

	err = b.SetStreaming(ctx, 9, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource not available")
}

func TestConnectStreams(t *testing.T) {
	key := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	hub := &fakeHub{group: `{"lights":["4","9"]}`}
	ts := httptest.NewTLSServer(hub)
	defer ts.Close()

	ln, err := dtls.Listen("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, &dtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return key, nil
		},
		PSKIdentityHint:      []byte("user"),
		CipherSuites:         []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
		ExtendedMasterSecret: dtls.RequireExtendedMasterSecret,
	})
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 256)
		n, err := c.Read(buf)
		if err == nil {
			got <- buf[:n]
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Connect(ctx, Options{
		Hub:        ts.Listener.Addr().String(),
		Username:   "user",
		ClientKey:  hex.EncodeToString(key),
		Group:      7,
		StreamPort: ln.Addr().(*net.UDPAddr).Port,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint16{4, 9}, s.Fixtures())

	require.NoError(t, s.Write(ctx, []pixel.RGB{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}}))
	select {
	case frame := <-got:
		want := append([]byte("HueStream"), 1, 0, 0, 0, 0, 0, 0,
			0, 0, 4, 1, 1, 2, 2, 3, 3,
			0, 0, 9, 4, 4, 5, 5, 6, 6)
		assert.Equal(t, want, frame)
	case <-time.After(5 * time.Second):
		t.Fatal("no stream frame")
	}

	require.NoError(t, s.Close())
	assert.Equal(t, []bool{true, false}, hub.calls())
}

func TestConnectBadKey(t *testing.T) {
	_, err := Connect(context.Background(), Options{Hub: "127.0.0.1", ClientKey: "zz"})
	assert.Error(t, err)
}

func TestConnectDisarmsOnGroupFailure(t *testing.T) {
	hub := &fakeHub{group: `{"lights":[]}`}
	ts := httptest.NewTLSServer(hub)
	defer ts.Close()

	_, err := Connect(context.Background(), Options{
		Hub:       ts.Listener.Addr().String(),
		Username:  "user",
		ClientKey: "00",
		Group:     7,
	})
	assert.ErrorIs(t, err, ErrNoLights)
	assert.Equal(t, []bool{true, false}, hub.calls())
}
