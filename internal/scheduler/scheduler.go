// Package scheduler owns the pixel buffer and multiplexes every event that can
// touch it: control datagrams, the flush and effect clocks, the forced refresh
// and the idle deadline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/pixel"
	"github.com/coreman2200/stripcast/internal/protocol"
	"github.com/coreman2200/stripcast/internal/sink"
)

// MaxTimeout is the idle deadline used when the timeout byte disables it.
const MaxTimeout = 24 * time.Hour

// State is the scheduler mode. Idle fade is a flag on top of Normal.
type State int

const (
	Normal State = iota
	// Alert serves only the flush and effect clocks until the alert flash
	// has decayed.
	Alert
)

func (s State) String() string {
	if s == Alert {
		return "alert"
	}
	return "normal"
}

// Config carries the clock rates. Zero values pick the defaults.
type Config struct {
	Pixels          int
	FlushInterval   time.Duration
	EffectInterval  time.Duration
	RefreshInterval time.Duration
	// IdleTimeout is the deadline armed at startup, before any frame command.
	IdleTimeout  time.Duration
	RainbowSpeed float64
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second / 60
	}
	if c.EffectInterval <= 0 {
		c.EffectInterval = time.Second / 60
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = MaxTimeout
	}
	if c.RainbowSpeed <= 0 {
		c.RainbowSpeed = effect.DefaultRainbowSpeed
	}
	return c
}

// SecureFactory builds the sink added by the secure stream toggle.
type SecureFactory func(ctx context.Context) (sink.Sink, error)

// Observer is told about every frame that reached the sinks. Frame must not
// block; the slice is not reused by the scheduler.
type Observer interface {
	Frame(frame []pixel.RGB)
}

type Option func(*Scheduler)

func WithSecureFactory(f SecureFactory) Option {
	return func(s *Scheduler) { s.secure = f }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler is not safe for concurrent use apart from Stats. Run must be
// called once.
type Scheduler struct {
	cfg      Config
	buf      *pixel.Buffer
	root     sink.Sink
	rainbow  *effect.Rainbow
	audio    *effect.AudioVis
	secure   SecureFactory
	observer Observer
	log      zerolog.Logger

	state      State
	fading     bool
	deadline   *time.Timer
	deadlineAt time.Time
	effectTick *time.Ticker

	stats counters
}

func New(cfg Config, root sink.Sink, opts ...Option) (*Scheduler, error) {
	if cfg.Pixels <= 0 {
		return nil, fmt.Errorf("invalid pixel count: %d", cfg.Pixels)
	}
	if root == nil {
		return nil, errors.New("no sink configured")
	}
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:     cfg,
		buf:     pixel.NewBuffer(cfg.Pixels),
		root:    root,
		rainbow: effect.NewRainbow(cfg.RainbowSpeed),
		audio:   effect.NewAudioVis(cfg.Pixels),
		log:     log.With().Str("component", "scheduler").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.stats.sinks.Store(root.String())
	return s, nil
}

// Buffer exposes the stored pixels. Only safe to use while Run is not active.
func (s *Scheduler) Buffer() *pixel.Buffer { return s.buf }

type event int

const (
	evDone event = iota
	evRefresh
	evFlush
	evEffect
	evDatagram
	evDeadline
)

// Run serves events until ctx is done or a sink fails. A sink failure is
// returned as is; cancellation returns nil. Sinks are left open.
func (s *Scheduler) Run(ctx context.Context, in <-chan []byte) error {
	refresh := time.NewTicker(s.cfg.RefreshInterval)
	defer refresh.Stop()
	flush := time.NewTicker(s.cfg.FlushInterval)
	defer flush.Stop()
	s.effectTick = time.NewTicker(s.cfg.EffectInterval)
	defer s.effectTick.Stop()
	s.deadline = time.NewTimer(s.cfg.IdleTimeout)
	s.deadlineAt = time.Now().Add(s.cfg.IdleTimeout)
	defer s.deadline.Stop()

	s.log.Info().Int("pixels", s.buf.Len()).Str("sinks", s.root.String()).Msg("scheduler running")

	for {
		ev, data, ok := s.enabled(ctx.Done(), refresh.C, flush.C, in).next()
		var err error
		switch ev {
		case evDone:
			s.log.Info().Msg("scheduler stopped")
			return nil
		case evRefresh:
			s.buf.Dirty = true
		case evFlush:
			if s.buf.Dirty {
				err = s.flush(ctx)
			}
		case evEffect:
			err = s.onEffect(ctx)
		case evDatagram:
			if !ok {
				in = nil
				s.log.Warn().Msg("datagram source closed")
				continue
			}
			s.onDatagram(ctx, data)
		case evDeadline:
			s.log.Debug().Msg("idle deadline reached, fading out")
			s.fading = true
			s.stats.fading.Store(true)
		}
		if err != nil {
			return err
		}
	}
}

// enabled returns the event set of the current state. Alert suspends the
// refresh clock, datagrams and the idle deadline; the effect clock only runs
// while something animates.
func (s *Scheduler) enabled(done <-chan struct{}, refresh, flush <-chan time.Time, in <-chan []byte) sources {
	src := sources{done: done, flush: flush}
	if s.state == Normal {
		src.refresh = refresh
		src.in = in
		if !s.fading && s.deadline != nil {
			src.deadline = s.deadline.C
		}
	}
	if (s.state == Alert || s.fading || s.audio.Enabled()) && s.effectTick != nil {
		src.effect = s.effectTick.C
	}
	return src
}

// sources holds the channels enabled for one pass. Disabled sources are nil
// and never become ready.
type sources struct {
	done     <-chan struct{}
	refresh  <-chan time.Time
	flush    <-chan time.Time
	effect   <-chan time.Time
	in       <-chan []byte
	deadline <-chan time.Time
}

// next returns the highest priority ready source, blocking only when none is.
// select picks randomly among ready cases, so priority comes from probing
// each source in order first.
func (src sources) next() (event, []byte, bool) {
	select {
	case <-src.done:
		return evDone, nil, true
	default:
	}
	select {
	case <-src.refresh:
		return evRefresh, nil, true
	default:
	}
	select {
	case <-src.flush:
		return evFlush, nil, true
	default:
	}
	select {
	case <-src.effect:
		return evEffect, nil, true
	default:
	}
	select {
	case data, ok := <-src.in:
		return evDatagram, data, ok
	default:
	}
	select {
	case <-src.deadline:
		return evDeadline, nil, true
	default:
	}

	select {
	case <-src.done:
		return evDone, nil, true
	case <-src.refresh:
		return evRefresh, nil, true
	case <-src.flush:
		return evFlush, nil, true
	case <-src.effect:
		return evEffect, nil, true
	case data, ok := <-src.in:
		return evDatagram, data, ok
	case <-src.deadline:
		return evDeadline, nil, true
	}
}

// flush writes the current view of the buffer to the root sink.
func (s *Scheduler) flush(ctx context.Context) error {
	frame := s.rainbow.Transform(s.buf.Pixels)
	if err := s.root.Write(ctx, frame); err != nil {
		return fmt.Errorf("write %s: %w", s.root, err)
	}
	s.buf.Dirty = false
	s.stats.flushes.Add(1)
	// a secure stream may have degraded during the write
	s.stats.sinks.Store(s.root.String())
	if s.observer != nil {
		s.observer.Frame(frame)
	}
	return nil
}

func (s *Scheduler) onEffect(ctx context.Context) error {
	switch {
	case s.state == Alert:
		if effect.AlertFade.Apply(s.buf) {
			return s.flush(ctx)
		}
		err := s.flush(ctx)
		s.setState(Normal)
		return err
	case s.fading:
		if !effect.IdleFade.Apply(s.buf) {
			s.log.Debug().Msg("fade complete")
			s.stopFade()
			s.armDeadline(protocol.TimeoutDisabled)
			s.audio.Seed(s.buf.Pixels)
		}
	case s.audio.Enabled():
		s.audio.Tick()
		s.buf.CopyFrom(s.audio.Frame())
	}
	return nil
}

func (s *Scheduler) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Info().Stringer("from", s.state).Stringer("to", st).Msg("state change")
	s.state = st
	s.stats.alert.Store(st == Alert)
}

func (s *Scheduler) stopFade() {
	s.fading = false
	s.stats.fading.Store(false)
}

// armDeadline restarts the idle deadline from a timeout byte.
func (s *Scheduler) armDeadline(timeout byte) {
	d := TimeoutDuration(timeout)
	s.deadlineAt = time.Now().Add(d)
	if s.deadline != nil {
		s.deadline.Reset(d)
	}
}

// TimeoutDuration maps a timeout byte to the idle deadline it arms.
func TimeoutDuration(timeout byte) time.Duration {
	if timeout == protocol.TimeoutDisabled {
		return MaxTimeout
	}
	return time.Duration(timeout) * time.Second
}
