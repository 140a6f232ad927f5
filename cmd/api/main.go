package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/room-booking-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idempotency"
	memidgen "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idgen"
	memreservationrepo "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/reservationrepo"
	"github.com/Overland-East-Bay/room-booking-api/internal/app/reservations"
	platformclock "github.com/Overland-East-Bay/room-booking-api/internal/platform/clock"
	"github.com/Overland-East-Bay/room-booking-api/internal/platform/config"
	"github.com/Overland-East-Bay/room-booking-api/internal/platform/logging"
	"github.com/Overland-East-Bay/room-booking-api/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"_CONFIG"), "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.New(config.LogConfig{Level: "info", Format: "json"})
		fallback.Fatal().Err(err).Msg("invalid config")
	}
	log := logging.New(cfg.Log)

	loc, err := cfg.Clock.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clock config")
	}
	clk := platformclock.NewSystemClock(loc)

	var opts []reservations.Option
	opts = append(opts, reservations.WithLogger(log))

	routerOpts := httpapi.RouterOptions{Logger: &log}
	if cfg.Metrics.Enabled {
		m := metrics.New()
		opts = append(opts, reservations.WithRecorder(m))
		routerOpts.MetricsHandler = m.Handler()
		routerOpts.MetricsPath = cfg.Metrics.Path
	}

	// Reservations live in memory only; a restart starts from an empty store.
	svc := reservations.NewService(memreservationrepo.NewRepo(), memidgen.NewSequence(), clk, opts...)
	api := httpapi.NewServer(svc, memidempotency.NewStore())

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           httpapi.NewRouterWithOptions(api, routerOpts),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("timezone", loc.String()).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
