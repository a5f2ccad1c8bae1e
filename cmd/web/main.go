package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/libreria-web/internal/config"
	"finitefield.org/libreria-web/internal/counter"
	"finitefield.org/libreria-web/internal/header"
	"finitefield.org/libreria-web/internal/i18n"
	mw "finitefield.org/libreria-web/internal/middleware"
	"finitefield.org/libreria-web/internal/observability"
	"finitefield.org/libreria-web/internal/routes"
	"finitefield.org/libreria-web/internal/views"
	"finitefield.org/libreria-web/locales"
	"finitefield.org/libreria-web/public"
	"finitefield.org/libreria-web/templates"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file with local overrides")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Session.Ephemeral {
		logger.Warn("session: using ephemeral signing key; set LIBRARY_WEB_SESSION_SIGNING_KEY for production")
	}

	bundle, err := i18n.Load(locales.FS, cfg.Locale.Fallback, cfg.Locale.Supported)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	poller := counter.NewPoller(
		counter.NewHTTPFetcher(cfg.Counter.Endpoint, &http.Client{Timeout: cfg.Counter.RequestTimeout}),
		counter.WithInterval(cfg.Counter.Interval),
		counter.WithRequestTimeout(cfg.Counter.RequestTimeout),
		counter.WithLogger(logger.Named("counter")),
	)

	srv, err := newServer(cfg, logger, bundle, header.New(poller))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.header.Mount(ctx); err != nil {
		return fmt.Errorf("mount header: %w", err)
	}
	defer srv.header.Unmount()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web listening",
			zap.String("addr", httpSrv.Addr),
			zap.Bool("dev_mode", cfg.App.DevMode),
			zap.String("counter_endpoint", cfg.Counter.Endpoint),
			zap.Duration("counter_interval", cfg.Counter.Interval),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newServer(cfg config.Config, logger *zap.Logger, bundle *i18n.Bundle, hdr *header.Header) (*server, error) {
	registry, err := views.NewRegistry(views.ContentFS(), bundle, bundle.Fallback())
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}
	assets, err := public.AssetsFS()
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	var templateFS fs.FS = templates.FS
	if cfg.App.DevMode && cfg.App.TemplatesDir != "" {
		templateFS = os.DirFS(cfg.App.TemplatesDir)
	}
	s := &server{
		logger:     logger,
		bundle:     bundle,
		table:      routes.Default(),
		views:      registry,
		header:     hdr,
		sessions:   mw.NewSessionStore(cfg.Session.SigningKey, cfg.Session.Secure),
		assets:     assets,
		templateFS: templateFS,
		devMode:    cfg.App.DevMode,
	}
	if !s.devMode {
		// fail at startup rather than on the first request
		if _, err := s.templates(); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	return s, nil
}
