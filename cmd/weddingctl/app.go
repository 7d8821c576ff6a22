package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/api"
	"github.com/wedding-os/client/internal/auth"
	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/internal/invitation"
	"github.com/wedding-os/client/internal/rate"
	"github.com/wedding-os/client/internal/session"
	"github.com/wedding-os/client/internal/storage"
	"github.com/wedding-os/client/internal/toast"
	"github.com/wedding-os/client/pkg/logger"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	kv      storage.KV
	client  *api.Client
	session *session.Store
	invites *invitation.Service
	toasts  *toast.Queue
	metrics *http.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.L()

	kv, err := storage.Open(cfg, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	fetcher := api.NewFetcher(log.Named("api"), api.FetcherConfig{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.RequestTimeout,
		RetryMax: cfg.RetryMax,
		RateLimiter: rate.NewManager(rate.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
	})

	store := session.New(kv, auth.NewService(log.Named("auth"), fetcher), log.Named("session"))
	if err := store.Hydrate(ctx); err != nil {
		closeKV(kv)
		return nil, err
	}

	client := api.NewClient(log.Named("api"), fetcher, store)

	a := &app{
		cfg:     cfg,
		logger:  log,
		kv:      kv,
		client:  client,
		session: store,
		invites: invitation.NewService(log.Named("invitation"), client),
		toasts: toast.New(log.Named("toast"), toastSurface(cfg),
			toast.WithDefaultDuration(cfg.ToastDuration),
			toast.WithGap(cfg.ToastGap)),
	}
	a.startMetrics()
	return a, nil
}

// toastSurface renders to stderr unless TOASTS_ENABLED=false, in which case
// toasts still run through the queue but are never drawn.
func toastSurface(cfg *config.Config) toast.Surface {
	if !cfg.ToastsEnabled {
		return nil
	}
	return newTerminalSurface(os.Stderr)
}

func (a *app) startMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("metrics.listening", zap.String("addr", a.cfg.MetricsAddr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics.listen_failed", zap.Error(err))
		}
	}()
}

// close lets queued toasts reach the terminal, then releases resources.
func (a *app) close() {
	drainToasts(a.toasts, a.cfg.ToastDuration*4)
	a.toasts.Close()

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	closeKV(a.kv)
}

func closeKV(kv storage.KV) {
	if c, ok := kv.(storage.Closer); ok {
		_ = c.Close()
	}
}

// runWithApp wires the app for one command invocation.
func runWithApp(ctx context.Context, cfg *config.Config, run func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return run(ctx, a)
}

// requireLogin fails fast when there is no stored session.
func (a *app) requireLogin() error {
	if !a.session.IsAuthenticated() {
		return errors.New("not signed in; run `weddingctl login` first")
	}
	return nil
}
