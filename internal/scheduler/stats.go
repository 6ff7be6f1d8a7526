package scheduler

import "sync/atomic"

// Stats is a point in time view of the scheduler for monitoring.
type Stats struct {
	Datagrams    uint64  `json:"datagrams"`
	Ignored      uint64  `json:"ignored"`
	Flushes      uint64  `json:"flushes"`
	Alert        bool    `json:"alert"`
	Fading       bool    `json:"fading"`
	AudioVis     bool    `json:"audio_vis"`
	RainbowSpeed float64 `json:"rainbow_speed"`
	Sinks        string  `json:"sinks"`
}

type counters struct {
	datagrams atomic.Uint64
	ignored   atomic.Uint64
	flushes   atomic.Uint64
	alert     atomic.Bool
	fading    atomic.Bool
	audio     atomic.Bool
	rainbow   atomic.Value // float64
	sinks     atomic.Value // string
}

// Stats may be called from any goroutine.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Datagrams: s.stats.datagrams.Load(),
		Ignored:   s.stats.ignored.Load(),
		Flushes:   s.stats.flushes.Load(),
		Alert:     s.stats.alert.Load(),
		Fading:    s.stats.fading.Load(),
		AudioVis:  s.stats.audio.Load(),
	}
	st.RainbowSpeed, _ = s.stats.rainbow.Load().(float64)
	st.Sinks, _ = s.stats.sinks.Load().(string)
	return st
}
