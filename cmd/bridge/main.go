// Bridge is the single entrypoint for agent tool-call requests. It validates
// inputs, leases pooled backend connections, translates calls onto the
// backend RPC wire, and normalizes every failure into the error taxonomy.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/audit"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/auth"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/config"
	brOtel "github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/otel"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/pool"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/resources"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes    = 1 << 20 // 1 MB
	maxRateLimiters = 1_000
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── OpenTelemetry ────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelShutdown, err := brOtel.Setup(ctx, brOtel.Config{
		ServiceName:    config.EnvOr("OTEL_SERVICE_NAME", "erp-bridge"),
		OTLPEndpoint:   otelEndpoint,
		MetricsEnabled: true,
		TracingEnabled: otelEndpoint != "",
	})
	if err != nil {
		log.Error("otel setup failed", "error", err)
	} else {
		defer otelShutdown(context.Background()) //nolint:errcheck // best-effort shutdown
	}

	// ── Audit store (optional Postgres) ──────────────────────────────────
	var auditStore *audit.Store
	if dsn := os.Getenv("AUDIT_POSTGRES_URL"); dsn != "" {
		pgPool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()
		auditStore = audit.NewStore(pgPool)
		if err := auditStore.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Info("AUDIT_POSTGRES_URL not set, audit persistence disabled")
	}
	auditLog := audit.NewLogger(auditStore, log)

	// ── Pool and registries ──────────────────────────────────────────────
	retryPolicy := rpc.RetryPolicy{
		MaxRetries:    config.EnvOrInt("RPC_MAX_RETRIES", 3),
		BackoffFactor: envOrFloat("RPC_BACKOFF_FACTOR", 2.0),
	}

	poolMgr := pool.NewManager(log)
	defer poolMgr.Cleanup()

	toolReg := tools.NewRegistry(poolMgr, retryPolicy, log)
	resourceReg := resources.NewRegistry(toolReg)

	if cfg, ok := config.DefaultInstance(); ok {
		if err := poolMgr.AddConnection("default", cfg); err != nil {
			log.Error("default instance registration failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Info("no complete default instance in environment, starting with empty pool")
	}

	keyStore := auth.NewKeyStore(os.Getenv("API_KEYS"))

	b := &Bridge{
		log:              log,
		tools:            toolReg,
		resources:        resourceReg,
		pool:             poolMgr,
		audit:            auditLog,
		rateLimiters:     make(map[string]*rate.Limiter),
		perInstanceLimit: config.EnvOrInt("RATE_LIMIT_PER_INSTANCE", 100),
	}

	// ── Router ───────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Logger)
	r.Use(auth.APIKeyAuth(keyStore))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/v1/tools", b.HandleListTools)
	r.Post("/v1/tools/{tool}", b.HandleToolCall)
	r.Get("/v1/resources", b.HandleReadResource)
	r.Get("/v1/instances", b.HandleListInstances)
	r.Post("/v1/instances", b.HandleAddInstance)
	r.Delete("/v1/instances/{instance_id}", b.HandleRemoveInstance)

	// ── Metrics (internal) ───────────────────────────────────────────────
	metricsAddr := config.EnvOr("METRICS_ADDR", "127.0.0.1:9090")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		log.Info("metrics server starting", "addr", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	// ── Server ───────────────────────────────────────────────────────────
	addr := config.EnvOr("BRIDGE_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("bridge starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down bridge")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutCtx); err != nil {
		log.Error("metrics server shutdown error", "error", err)
	}
}

func envOrFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return f
}
