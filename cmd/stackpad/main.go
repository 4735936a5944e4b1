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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	sphttp "github.com/stackpad/stackpad/internal/adapter/http"
	spnats "github.com/stackpad/stackpad/internal/adapter/nats"
	"github.com/stackpad/stackpad/internal/adapter/otel"
	"github.com/stackpad/stackpad/internal/adapter/postgres"
	"github.com/stackpad/stackpad/internal/adapter/ristretto"
	"github.com/stackpad/stackpad/internal/adapter/ws"
	"github.com/stackpad/stackpad/internal/config"
	"github.com/stackpad/stackpad/internal/logger"
	"github.com/stackpad/stackpad/internal/middleware"
	"github.com/stackpad/stackpad/internal/service"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "admin":
			if err := runAdmin(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		case "migrate":
			if err := runMigrate(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logClose := logger.New(cfg.Logging)
	defer logClose.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	otelShutdown, err := otel.Setup(ctx, cfg.Logging.Service, cfg.Otel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	bus, err := spnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()
	slog.Info("nats connected")

	slugCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer slugCache.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth, metrics)
	orgSvc := service.NewOrgService(store, slugCache, bus, metrics, cfg.Cache.TTL)
	todoSvc := service.NewTodoService(store, orgSvc)

	// --- Event fan-out to WebSocket clients ---

	hub := ws.NewHub()
	relay := ws.NewRelay(hub)
	for _, subject := range ws.Subjects() {
		cancelSub, err := bus.Subscribe(ctx, subject, relay.Handle)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer cancelSub()
	}

	// --- HTTP ---

	handlers := sphttp.NewHandlers(authSvc, orgSvc, todoSvc)
	handlers.ReadyCheck = func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if !bus.IsConnected() {
			return errors.New("nats disconnected")
		}
		return nil
	}
	handlers.WSConnections = hub.ConnectionCount

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.RequestID)
	r.Use(sphttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sphttp.SecurityHeaders)
	r.Use(sphttp.Logger)
	r.Use(chimw.Recoverer)
	// Auth runs before the limiter and the idempotency layer so both can
	// key their state by the authenticated account.
	r.Use(middleware.Auth(authSvc))
	r.Use(limiter.Handler)
	r.Use(middleware.Idempotency(bus.KV()))

	sphttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return bus.Drain()
	})

	return g.Wait()
}

// runMigrate handles the migrate subcommand: up (default), down, status.
func runMigrate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		return postgres.RunMigrations(ctx, cfg.Postgres.DSN)
	case "down":
		return postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, 1)
	case "status":
		version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Println("migration version:", version)
		return nil
	default:
		return fmt.Errorf("unknown migrate command: %s", cmd)
	}
}
