package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/stripcast/internal/config"
	"github.com/coreman2200/stripcast/internal/hue"
	"github.com/coreman2200/stripcast/internal/monitor"
	"github.com/coreman2200/stripcast/internal/protocol"
	"github.com/coreman2200/stripcast/internal/scheduler"
	"github.com/coreman2200/stripcast/internal/sink"
)

type Core struct {
	Cfg      *config.Config
	Root     *sink.Composite
	Sched    *scheduler.Scheduler
	Listener *protocol.Listener
	Monitor  *monitor.State
}

// InitCore builds the sink tree, binds the control port and wires the
// scheduler. On error everything opened so far is released.
func InitCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	root, err := sink.NewComposite()
	if err != nil {
		return nil, err
	}
	for i, sc := range cfg.Sinks {
		s, err := BuildSink(ctx, cfg, sc)
		if err != nil {
			_ = root.Close()
			return nil, fmt.Errorf("sinks[%d] %s: %w", i, sc.Kind, err)
		}
		if err := root.Add(s); err != nil {
			_ = s.Close()
			_ = root.Close()
			return nil, err
		}
		log.Info().Str("sink", s.String()).Msg("sink ready")
	}

	lis, err := protocol.Listen(cfg.Listen)
	if err != nil {
		_ = root.Close()
		return nil, err
	}

	c := &Core{Cfg: cfg, Root: root, Listener: lis}
	opts := []scheduler.Option{}
	if cfg.SecureToggle != nil {
		toggle := *cfg.SecureToggle
		opts = append(opts, scheduler.WithSecureFactory(func(ctx context.Context) (sink.Sink, error) {
			return BuildSink(ctx, cfg, toggle)
		}))
	}
	if cfg.Monitor != "" {
		c.Monitor = monitor.NewState(cfg.Pixels, 30, nil)
		opts = append(opts, scheduler.WithObserver(c.Monitor))
	}

	c.Sched, err = scheduler.New(SchedulerConfig(cfg), root, opts...)
	if err != nil {
		_ = lis.Close()
		_ = root.Close()
		return nil, err
	}
	if c.Monitor != nil {
		c.Monitor.SetStats(c.Sched.Stats)
	}
	return c, nil
}

// Run serves datagrams into the scheduler until ctx is done or either side
// fails.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []byte, 16)
	lisErr := make(chan error, 1)
	go func() {
		lisErr <- c.Listener.Serve(ctx, in)
		cancel()
	}()

	err := c.Sched.Run(ctx, in)
	cancel()
	if lerr := <-lisErr; err == nil {
		err = lerr
	}
	return err
}

// Close releases the socket and every sink.
func (c *Core) Close() error {
	lerr := c.Listener.Close()
	if errors.Is(lerr, net.ErrClosed) {
		lerr = nil
	}
	return errors.Join(lerr, c.Root.Close())
}

func SchedulerConfig(cfg *config.Config) scheduler.Config {
	sc := scheduler.Config{
		Pixels:          cfg.Pixels,
		FlushInterval:   hzInterval(cfg.FlushHz),
		EffectInterval:  hzInterval(cfg.EffectHz),
		RefreshInterval: time.Duration(cfg.RefreshS * float64(time.Second)),
		RainbowSpeed:    cfg.RainbowSpeed,
	}
	if cfg.IdleTimeoutS > 0 {
		sc.IdleTimeout = time.Duration(cfg.IdleTimeoutS) * time.Second
	}
	return sc
}

func hzInterval(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

// BuildSink opens the backend described by sc and wraps it in a Sampled view
// when a sample window is set.
func BuildSink(ctx context.Context, cfg *config.Config, sc config.Sink) (sink.Sink, error) {
	var base sink.Sink
	switch sc.Kind {
	case config.KindSPI:
		count := cfg.Pixels
		if sc.Sample != nil {
			count = sc.Sample.Count
		}
		bus, err := sink.OpenSPI(sc.Device, count, physic.Frequency(sc.SpeedHz)*physic.Hertz)
		if err != nil {
			return nil, err
		}
		base = sink.NewHardware(bus)
	case config.KindOPC:
		bus, err := sink.DialOPC(sc.Addr, uint8(sc.Channel))
		if err != nil {
			return nil, err
		}
		base = sink.NewHardware(bus)
	case config.KindRelay:
		r, err := sink.NewRelay(sc.Addr)
		if err != nil {
			return nil, err
		}
		base = r
	case config.KindHue:
		s, err := hue.Connect(ctx, hue.Options{
			Hub:       cfg.Hue.Hub,
			Username:  cfg.Hue.Username,
			ClientKey: cfg.Hue.ClientKey,
			Group:     sc.Group,
		})
		if err != nil {
			return nil, err
		}
		base = s
	case config.KindDebug:
		height := cfg.Pixels
		if sc.Sample != nil {
			height = sc.Sample.Count
		}
		d, err := sink.NewDebugCapture(sc.Dir, height, sc.Columns)
		if err != nil {
			return nil, err
		}
		base = d
	default:
		return nil, fmt.Errorf("unknown sink kind %q", sc.Kind)
	}

	if sc.Sample == nil {
		return base, nil
	}
	s, err := sink.NewSampled(base, sc.Sample.Start, sc.Sample.End, sc.Sample.Count)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return s, nil
}
