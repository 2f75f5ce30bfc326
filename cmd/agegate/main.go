package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/matheuss0xf/challenge-with-localstack/internal/adapter/fsm"
	handler "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/http"
	oteladapter "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/otel"
	promadapter "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/prometheus"
	redisadapter "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/redis"
	riveradapter "github.com/matheuss0xf/challenge-with-localstack/internal/adapter/river"
	"github.com/matheuss0xf/challenge-with-localstack/internal/adapter/sqlite"
	"github.com/matheuss0xf/challenge-with-localstack/internal/app"
	"github.com/matheuss0xf/challenge-with-localstack/internal/config"
	"github.com/matheuss0xf/challenge-with-localstack/internal/domain"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("agegate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := oteladapter.Setup(ctx, oteladapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := promadapter.New(reg)

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	groupRepo := oteladapter.NewTracingAgeGroupRepository(store.AgeGroups())
	enrollmentRepo := oteladapter.NewTracingEnrollmentRepository(store.Enrollments())
	validator := fsm.New()

	g, gctx := errgroup.WithContext(ctx)

	publisher, err := startQueue(gctx, g, cfg, db, enrollmentRepo, validator, metrics)
	if err != nil {
		return err
	}

	// --- Application ---
	groups := app.NewAgeGroupService(groupRepo)
	enrollments := app.NewEnrollmentService(enrollmentRepo, groups, oteladapter.NewTracingPublisher(publisher), validator, metrics)

	// --- Adapters (in) ---
	limiter := handler.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartJanitor(gctx, time.Minute)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(otelchi.Middleware("agegate", otelchi.WithChiRoutes(router)))
	router.Handle("/metrics", metrics.Handler())

	api := humachi.New(router, huma.DefaultConfig("agegate", "0.1.0"))
	handler.Register(api, handler.Config{
		AgeGroups:   groups,
		Enrollments: enrollments,
		Credentials: handler.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		Limiter:     limiter,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		slog.Info("agegate listening", "port", cfg.Port, "queue_backend", cfg.Queue.Backend)
		slog.Info("API docs", "url", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("stopped")
	return nil
}

// startQueue builds the configured queue backend, starts its consumer under g
// and returns the publisher the admission engine hands enrollments to.
func startQueue(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Config,
	db *sql.DB,
	repo domain.EnrollmentRepository,
	validator domain.TransitionValidator,
	metrics app.Metrics,
) (domain.EnrollmentPublisher, error) {
	switch cfg.Queue.Backend {
	case config.BackendRedis:
		rdb, err := redisadapter.New(ctx, cfg.Queue.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}

		acker := redisadapter.NewStreamAcker(rdb.Client, cfg.Queue.Stream, cfg.Queue.Group)
		finalizer := app.NewFinalizer(repo, oteladapter.NewTracingAcker(acker), validator, metrics)
		consumer := redisadapter.NewConsumer(rdb.Client, finalizer, redisadapter.ConsumerConfig{
			Stream:        cfg.Queue.Stream,
			Group:         cfg.Queue.Group,
			Consumer:      cfg.Queue.Consumer,
			BatchSize:     int64(cfg.Queue.BatchSize),
			ReclaimIdle:   cfg.Queue.ReclaimIdle,
			MaxDeliveries: int64(cfg.Queue.MaxDeliveries),
		})
		if err := consumer.EnsureGroup(ctx); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}

		g.Go(func() error {
			defer rdb.Close()
			return consumer.Run(ctx)
		})
		return redisadapter.NewStreamPublisher(rdb.Client, cfg.Queue.Stream), nil

	default:
		finalizer := app.NewFinalizer(repo, riveradapter.CompletionAcker{}, validator, metrics)
		client, err := riveradapter.Setup(ctx, db, finalizer)
		if err != nil {
			return nil, fmt.Errorf("river: %w", err)
		}
		// River gets its own stop signal below so in-flight jobs finish.
		if err := client.Start(context.WithoutCancel(ctx)); err != nil {
			return nil, fmt.Errorf("starting river: %w", err)
		}

		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Stop(stopCtx); err != nil {
				return fmt.Errorf("stopping river: %w", err)
			}
			return nil
		})
		return riveradapter.NewPublisher(client), nil
	}
}
