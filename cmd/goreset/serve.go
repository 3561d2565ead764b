package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/i18n"
	"github.com/MrEthical07/goReset/metrics/export/prometheus"
	"github.com/MrEthical07/goReset/web"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func Serve(ctx context.Context, o *Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := newLogger(os.Stderr, o.LogLevel, o.LogFormat)
	if err != nil {
		return err
	}

	handler, engine, resources, err := build(ctx, o, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := resources.Close(); err != nil {
			log.Err(err).Msg("release resources")
		}
	}()
	defer engine.Close()

	svr := &http.Server{
		Addr:              o.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      engine.Config().Provider.Timeout + 5*time.Second,
		IdleTimeout:       time.Minute,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", o.Listen).Str("provider", o.Provider).Msg("started serving http traffic")
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return svr.Shutdown(sctx)
	})

	return g.Wait()
}

// build wires the engine, its provider and the HTTP routes.
func build(ctx context.Context, o *Options, log zerolog.Logger) (http.Handler, *goReset.Engine, resourceList, error) {
	cfg, err := engineConfig(o)
	if err != nil {
		return nil, nil, nil, err
	}

	catalog, err := i18n.Default()
	if err != nil {
		return nil, nil, nil, err
	}
	if o.Catalog != "" {
		if err := catalog.LoadFile(o.Catalog); err != nil {
			return nil, nil, nil, err
		}
	}

	provider, resources, err := buildProvider(ctx, o, catalog, log)
	if err != nil {
		return nil, nil, nil, err
	}

	b := goReset.New().
		WithConfig(cfg).
		WithProvider(provider).
		WithCatalog(catalog).
		WithLogger(log)
	if o.AuditLog {
		b = b.WithAuditSink(goReset.NewLogSink(log))
	}
	engine, err := b.Build()
	if err != nil {
		_ = resources.Close()
		return nil, nil, nil, err
	}

	fail := func(err error) (http.Handler, *goReset.Engine, resourceList, error) {
		engine.Close()
		_ = resources.Close()
		return nil, nil, nil, err
	}

	pages, err := web.New(engine, web.Options{
		Logger:       &log,
		SecureCookie: strings.HasPrefix(cfg.App.URL, "https://"),
	})
	if err != nil {
		return fail(err)
	}
	metrics, err := prometheus.NewCollector(engine).Handler()
	if err != nil {
		return fail(err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("/", pages)

	return mux, engine, resources, nil
}

func engineConfig(o *Options) (goReset.Config, error) {
	cfg := goReset.DefaultConfig()
	cfg.App.URL = strings.TrimSpace(o.AppURL)
	cfg.App.TrustForwardedHeaders = o.TrustForwarded
	for _, origin := range strings.Split(o.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.App.AllowedOrigins = append(cfg.App.AllowedOrigins, origin)
		}
	}
	cfg.App.AllowAnyOrigin = o.AllowAnyOrigin
	if len(cfg.App.AllowedOrigins) == 0 && cfg.App.URL != "" && !o.AllowAnyOrigin {
		cfg.App.AllowedOrigins = []string{cfg.App.URL}
	}
	if o.Locale != "" {
		cfg.I18n.Locale = o.Locale
	}
	cfg.Audit.Enabled = o.AuditLog
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	if err := cfg.Validate(); err != nil {
		return goReset.Config{}, err
	}
	return cfg, nil
}
