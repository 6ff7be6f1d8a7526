package monitor

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/stripcast/internal/pixel"
	"github.com/coreman2200/stripcast/internal/scheduler"
)

func TestHealth(t *testing.T) {
	s := NewState(105, 30, func() scheduler.Stats {
		return scheduler.Stats{Datagrams: 7, Sinks: "[bus]"}
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var h health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, s.ID.String(), h.ID)
	assert.Equal(t, 105, h.Pixels)
	require.NotNil(t, h.Stats)
	assert.Equal(t, uint64(7), h.Stats.Datagrams)
	assert.Equal(t, "[bus]", h.Stats.Sinks)
}

func TestFramesWS(t *testing.T) {
	s := NewState(2, 1000, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var hi hello
	require.NoError(t, conn.ReadJSON(&hi))
	assert.Equal(t, s.ID.String(), hi.ID)
	assert.Equal(t, 2, hi.Pixels)

	s.Frame([]pixel.RGB{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}})

	var f frameMsg
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, f.RGB)
	assert.Equal(t, uint64(1), f.FrameID)
}

func TestFrameNeverBlocks(t *testing.T) {
	s := NewState(1, math.Inf(1), nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Frame([]pixel.RGB{{R: uint8(i)}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Frame blocked without a reader")
	}
	assert.Equal(t, uint64(100), s.frameID.Load())
	assert.Equal(t, uint64(99), s.dropped.Load())
}
