// Package app wires configuration, storage, services and the HTTP server
// into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/feastly/marketplace/internal/config"
	"github.com/feastly/marketplace/internal/event"
	handler "github.com/feastly/marketplace/internal/handler/http"
	"github.com/feastly/marketplace/internal/service"
	"github.com/feastly/marketplace/internal/storage"
	memstore "github.com/feastly/marketplace/internal/storage/memory"
	mongostore "github.com/feastly/marketplace/internal/storage/mongo"
	pgstore "github.com/feastly/marketplace/internal/storage/postgres"
	"github.com/feastly/marketplace/migrations"
	"github.com/feastly/marketplace/pkg/database"
	"github.com/feastly/marketplace/pkg/health"
	pkgkafka "github.com/feastly/marketplace/pkg/kafka"
	"github.com/feastly/marketplace/pkg/tracing"
)

// App wires together all dependencies and runs the marketplace query
// service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool        *pgxpool.Pool
	mongoClient *mongodriver.Client
	producer    *pkgkafka.Producer
	maintainer  *service.AggregateMaintainer

	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	tracingShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracingShutdown = tracingShutdown

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	healthHandler := health.NewHandler()

	store, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Kafka is optional: no brokers, no events.
	var producer *event.Producer
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		producer = event.NewProducer(a.producer, logger)
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	searchService := service.NewSearchService(store, logger)
	rankingService := service.NewRankingService(store, service.RankingWindows{
		WeekDays:  cfg.RankingWeekDays,
		MonthDays: cfg.RankingMonthDays,
		YearDays:  cfg.RankingYearDays,
	}, logger)
	a.maintainer = service.NewAggregateMaintainer(store, producer, logger)
	reviewService := service.NewReviewService(store, a.maintainer, producer, logger)

	router := handler.NewRouter(searchService, rankingService, reviewService, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initStorage builds the configured storage adapter and registers its health
// check.
func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) (storage.Adapter, error) {
	cfg := a.cfg

	switch cfg.StorageTechnology {
	case config.StoragePostgres:
		pgCfg := cfg.PostgresConfig()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		prometheus.MustRegister(database.NewPoolStatsCollector(pool, "marketplace"))
		a.logger.Info("postgres storage initialized", slog.String("host", pgCfg.Host))
		return pgstore.NewAdapter(pool, cfg.ExpensivePriceThreshold), nil

	case config.StorageMongo:
		mCfg := cfg.MongoConfig()
		client, err := database.NewMongoClient(ctx, &mCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		a.mongoClient = client
		healthHandler.Register("mongo", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
		a.logger.Info("mongo storage initialized", slog.String("database", mCfg.Database))
		return mongostore.NewAdapter(client.Database(mCfg.Database), cfg.ExpensivePriceThreshold), nil

	case config.StorageMemory:
		a.logger.Info("in-memory storage initialized")
		return memstore.NewAdapter(cfg.ExpensivePriceThreshold), nil

	default:
		return nil, fmt.Errorf("unsupported storage technology: %q", cfg.StorageTechnology)
	}
}

// Run starts the application, blocking until the context is canceled. Before
// serving, the aggregate sweep converges any derived values that drifted
// while the service was down.
func (a *App) Run(ctx context.Context) error {
	if err := a.maintainer.SweepRestaurants(ctx); err != nil {
		return fmt.Errorf("startup sweep: %w", err)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.logger.Error("mongo disconnect error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application stopped")
	return errors.Join(errs...)
}
