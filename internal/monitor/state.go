// Package monitor serves a read-only view of a running controller: a health
// document and a websocket stream of the frames being flushed.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/coreman2200/stripcast/internal/pixel"
	"github.com/coreman2200/stripcast/internal/scheduler"
)

type State struct {
	ID     uuid.UUID
	Pixels int

	stats     func() scheduler.Stats
	startTime time.Time
	limiter   *rate.Limiter
	frames    chan []pixel.RGB
	frameID   atomic.Uint64
	dropped   atomic.Uint64

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewState streams at most fps frames per second to websocket clients. stats
// is polled for /health and may be nil.
func NewState(pixels int, fps float64, stats func() scheduler.Stats) *State {
	if fps <= 0 {
		fps = 30
	}
	return &State{
		ID:        uuid.New(),
		Pixels:    pixels,
		stats:     stats,
		startTime: time.Now(),
		limiter:   rate.NewLimiter(rate.Limit(fps), 1),
		frames:    make(chan []pixel.RGB, 1),
		clients:   map[*websocket.Conn]bool{},
	}
}

// SetStats installs the /health stats source. Call it before serving.
func (s *State) SetStats(stats func() scheduler.Stats) { s.stats = stats }

// Frame queues a flushed frame for broadcast. It never blocks: frames over
// the rate limit or arriving while the previous one is still queued are
// dropped.
func (s *State) Frame(frame []pixel.RGB) {
	s.frameID.Add(1)
	if !s.limiter.Allow() {
		return
	}
	select {
	case s.frames <- frame:
	default:
		s.dropped.Add(1)
	}
}

// Run broadcasts queued frames until ctx is done.
func (s *State) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case f := <-s.frames:
			s.broadcastFrame(f)
		}
	}
}

func (s *State) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/ws", s.HandleFramesWS)
	return mux
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.sendHello(conn)
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type health struct {
	ID      string           `json:"id"`
	UptimeS float64          `json:"uptime_s"`
	Pixels  int              `json:"pixels"`
	FrameID uint64           `json:"frame_id"`
	Dropped uint64           `json:"dropped"`
	Clients int              `json:"clients"`
	Stats   *scheduler.Stats `json:"stats,omitempty"`
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()
	resp := health{
		ID:      s.ID.String(),
		UptimeS: time.Since(s.startTime).Seconds(),
		Pixels:  s.Pixels,
		FrameID: s.frameID.Load(),
		Dropped: s.dropped.Load(),
		Clients: clients,
	}
	if s.stats != nil {
		st := s.stats()
		resp.Stats = &st
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// hello is the first message on a new websocket.
type hello struct {
	ID     string `json:"id"`
	Pixels int    `json:"pixels"`
}

func (s *State) sendHello(conn *websocket.Conn) {
	b, _ := json.Marshal(hello{ID: s.ID.String(), Pixels: s.Pixels})
	conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

func (s *State) broadcastFrame(frame []pixel.RGB) {
	rgb := make([]byte, 0, len(frame)*3)
	for _, c := range frame {
		rgb = append(rgb, c.R, c.G, c.B)
	}
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: s.frameID.Load(), RGB: rgb})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.Close()
	}
}
