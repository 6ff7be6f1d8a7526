package scheduler

import (
	"context"

	"github.com/coreman2200/stripcast/internal/pixel"
	"github.com/coreman2200/stripcast/internal/protocol"
	"github.com/coreman2200/stripcast/internal/sink"
)

var alertColor = pixel.Pixel{B: 255}

func (s *Scheduler) onDatagram(ctx context.Context, data []byte) {
	s.stats.datagrams.Add(1)
	s.apply(ctx, protocol.Decode(data))
}

func (s *Scheduler) apply(ctx context.Context, cmd protocol.Command) {
	switch c := cmd.(type) {
	case protocol.SetSparse:
		s.frameCommand(c.Timeout)
		for _, r := range c.Records {
			if !s.buf.Set(r.Index, r.Color) {
				s.log.Debug().Int("index", r.Index).Msg("pixel index out of range")
			}
		}
		s.afterFrame()
	case protocol.SetSequential:
		s.frameCommand(c.Timeout)
		for i, rgb := range c.Pixels {
			if !s.buf.Set(i, rgb) {
				break
			}
		}
		s.buf.Dirty = true
		s.afterFrame()
	case protocol.ToggleAlert:
		s.buf.Fill(alertColor)
		s.setState(Alert)
	case protocol.ToggleAudioVis:
		on := s.audio.Toggle()
		s.stats.audio.Store(on)
		s.log.Info().Bool("on", on).Msg("audio visualizer")
	case protocol.ToggleRainbow:
		s.setRainbow(s.rainbow.Toggle())
	case protocol.SetRainbowSpeed:
		s.setRainbow(s.rainbow.SetUnits(c.Units))
	case protocol.ToggleSecureStream:
		s.toggleSecure(ctx)
	case protocol.Ignored:
		s.stats.ignored.Add(1)
		s.log.Info().Str("reason", c.Reason).Int("len", len(c.Data)).Msg("ignored datagram")
	}
}

// frameCommand rearms the idle deadline and cancels a fade in progress.
func (s *Scheduler) frameCommand(timeout byte) {
	if s.fading {
		s.log.Debug().Msg("fade cancelled")
		s.stopFade()
	}
	s.armDeadline(timeout)
}

// afterFrame folds the new buffer into the audio visualizer when it runs and
// restarts the effect clock so the sample shows up at once.
func (s *Scheduler) afterFrame() {
	if !s.audio.Enabled() {
		return
	}
	s.audio.Process(s.buf.Pixels)
	s.audio.Tick()
	if s.effectTick != nil {
		s.effectTick.Reset(s.cfg.EffectInterval)
	}
	s.buf.CopyFrom(s.audio.Frame())
}

func (s *Scheduler) setRainbow(speed float64) {
	s.stats.rainbow.Store(speed)
	s.buf.Dirty = true
	s.log.Info().Float64("speed", speed).Msg("rainbow")
}

// toggleSecure removes every secure stream from the root composite, or adds a
// fresh one when there is none.
func (s *Scheduler) toggleSecure(ctx context.Context) {
	comp, ok := s.root.(*sink.Composite)
	if !ok {
		s.log.Warn().Str("sinks", s.root.String()).Msg("secure stream toggle needs a composite root")
		return
	}
	defer func() { s.stats.sinks.Store(comp.String()) }()

	if removed := comp.Remove(sink.IsSecure); len(removed) > 0 {
		for _, r := range removed {
			if err := r.Close(); err != nil {
				s.log.Warn().Err(err).Str("sink", r.String()).Msg("close secure stream")
			}
		}
		s.log.Info().Str("sinks", comp.String()).Msg("secure stream removed")
		return
	}

	if s.secure == nil {
		s.log.Warn().Msg("no secure stream configured")
		return
	}
	sk, err := s.secure(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("secure stream unavailable")
		return
	}
	if err := comp.Add(sk); err != nil {
		s.log.Error().Err(err).Msg("secure stream rejected")
		_ = sk.Close()
		return
	}
	s.log.Info().Str("sinks", comp.String()).Msg("secure stream added")
}
