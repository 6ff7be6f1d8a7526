package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/app"
	"github.com/coreman2200/stripcast/internal/config"
)

func main() {
	// ---- Flags (explicit flags override stripcast.yaml) ----
	var (
		configPath = flag.String("config", "stripcast.yaml", "path to stripcast.yaml")
		listen     = flag.String("listen", "", "UDP control address (default from config, :21324)")
		pixels     = flag.Int("pixels", 0, "strip length in pixels (default from config, 105)")
		monitor    = flag.String("monitor", "", "HTTP monitor address, \"off\" to disable")
		dump       = flag.Bool("write-config", false, "write the effective config to -config and exit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Load stripcast.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}

	// ---- Flags win over the file ----
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *pixels > 0 {
		cfg.Pixels = *pixels
	}
	switch *monitor {
	case "":
	case "off":
		cfg.Monitor = ""
	default:
		cfg.Monitor = *monitor
	}

	if *dump {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.InitCore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}

	// ---- Monitor ----
	var srv *http.Server
	if core.Monitor != nil {
		srv = &http.Server{
			Addr:         cfg.Monitor,
			Handler:      withCORS(core.Monitor.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go core.Monitor.Run(ctx)
		go func() {
			log.Info().Str("addr", cfg.Monitor).Msg("monitor starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
	}

	log.Info().
		Str("listen", core.Listener.Addr().String()).
		Int("pixels", cfg.Pixels).
		Str("sinks", core.Root.String()).
		Msg("stripcast running")

	// ---- Run until a signal or a sink fault ----
	runErr := core.Run(ctx)
	if runErr == nil {
		log.Info().Msg("shutting down")
	}

	if srv != nil {
		_ = srv.Close()
	}
	if err := core.Close(); err != nil {
		log.Warn().Err(err).Msg("close")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("controller stopped")
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
