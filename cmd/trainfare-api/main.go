// README: Entry point; loads config, wires the fare source and estimator, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"trainfare/internal/config"
	"trainfare/internal/faresource"
	httptransport "trainfare/internal/http"
	"trainfare/internal/infra"
	"trainfare/internal/maps"
	"trainfare/internal/modules/pricing"
	"trainfare/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("trainfare-api exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			slog.Warn("tracer shutdown", "err", err)
		}
	}()

	fares, closeFares, err := buildFareSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFares()

	pricingSvc := pricing.NewService(fares, nil, cfg.Pricing.Currency).InLocation(cfg.Pricing.Location)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Pricing:  pricingSvc,
		Location: cfg.Pricing.Location,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(handler.Routes(), "trainfare-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Addr, "fare_source", cfg.FareSource.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(sctx)
}

// buildFareSource picks the backing fare source and wraps it with the Redis
// cache when one is configured. The returned func releases its connections.
func buildFareSource(ctx context.Context, cfg config.Config) (pricing.FareSource, func(), error) {
	var (
		src     pricing.FareSource
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.FareSource.Mode {
	case config.FareSourceDB:
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, db.Close)
		src = pricing.NewStore(db)
	case config.FareSourceHTTP:
		src = faresource.NewHTTPSource(cfg.FareSource.APIURL, faresource.NewHTTPClient(cfg.FareSource.APITimeout))
	case config.FareSourceRoute:
		routes, err := maps.NewRouteService(cfg.FareSource.MapsAPIKey, cfg.FareSource.MapsRegion)
		if err != nil {
			return nil, closeAll, err
		}
		src = faresource.NewRouteSource(routes, cfg.FareSource.RatePerKm, cfg.FareSource.MinFare)
	default:
		return nil, closeAll, fmt.Errorf("unknown fare source %q", cfg.FareSource.Mode)
	}

	if rdb := infra.NewRedis(ctx, cfg.Redis.Addr); rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
		src = faresource.NewCachedSource(src, rdb, cfg.FareSource.CacheTTL)
	}
	return src, closeAll, nil
}
