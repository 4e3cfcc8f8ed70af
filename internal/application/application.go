package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eugenenazirov/binpack3d/internal/api"
	"github.com/eugenenazirov/binpack3d/internal/config"
	"github.com/eugenenazirov/binpack3d/internal/events"
	"github.com/eugenenazirov/binpack3d/internal/metrics"
	"github.com/eugenenazirov/binpack3d/internal/packing"
	"github.com/eugenenazirov/binpack3d/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage   storage.Storage
	publisher events.Publisher
	registry  *prometheus.Registry
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	for _, profile := range cfg.Containers {
		if err := store.SetProfile(profile); err != nil {
			return nil, fmt.Errorf("failed to apply container preset %q: %w", profile.Name, err)
		}
	}

	defaults, err := packDefaults(cfg.Packing)
	if err != nil {
		return nil, fmt.Errorf("invalid packing defaults: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry, "")

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect result publisher: %w", err)
		}
		publisher = pub
		logger.Info("publishing packing results",
			zap.String("url", cfg.NATS.URL),
			zap.String("subject", cfg.NATS.Subject),
		)
	}

	handler := api.NewHandler(store,
		api.WithLogger(logger),
		api.WithDefaults(defaults),
		api.WithCache(storage.NewResultCache(cfg.CacheSize)),
		api.WithMetrics(recorder),
		api.WithPublisher(publisher),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	rootHandler := BuildRootHandler(apiRouter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &App{
		storage:   store,
		publisher: publisher,
		registry:  registry,
		handler:   handler,
		router:    apiRouter,
		logger:    logger,
		server:    NewServer(cfg, rootHandler),
	}, nil
}

func packDefaults(cfg config.PackingConfig) (api.PackDefaults, error) {
	method, err := packing.ParseMethod(cfg.Method)
	if err != nil {
		return api.PackDefaults{}, err
	}
	order, err := packing.ParseOrder(cfg.Order)
	if err != nil {
		return api.PackDefaults{}, err
	}
	return api.PackDefaults{
		Method:       method,
		Lookahead:    cfg.Lookahead,
		WorkingRange: cfg.WorkingRange,
		AnchorCap:    cfg.AnchorCap,
		Order:        order,
		Timeout:      cfg.Timeout,
	}, nil
}

// BuildRootHandler mounts the API under /api/ and the metrics handler at /metrics.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Shutdown drains the HTTP server, then flushes and closes the result publisher.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return multierr.Append(err, a.publisher.Close())
}

// Close stops the HTTP server immediately and closes the result publisher.
func (a *App) Close() error {
	err := a.server.Close()
	return multierr.Append(err, a.publisher.Close())
}
