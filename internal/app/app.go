// Package app wires configuration into repositories, use cases and the HTTP
// router for a single server process.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/pokersettle/internal/adapter/http"
	"github.com/iho/pokersettle/internal/adapter/http/handler"
	"github.com/iho/pokersettle/internal/adapter/http/middleware"
	"github.com/iho/pokersettle/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/pokersettle/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/pokersettle/internal/adapter/repository/redis"
	"github.com/iho/pokersettle/internal/infrastructure/config"
	"github.com/iho/pokersettle/internal/infrastructure/eventpublisher"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
	"github.com/iho/pokersettle/internal/infrastructure/postgres"
	"github.com/iho/pokersettle/internal/infrastructure/redis"
	"github.com/iho/pokersettle/internal/usecase"
)

// limiterIdle is how long a client's rate limiter may sit unused before cleanup.
const limiterIdle = 10 * time.Minute

// App holds the wired components of a running server.
type App struct {
	Handler     http.Handler
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Publisher   *eventpublisher.EventPublisher
	RateLimiter *middleware.RateLimiter

	Games          *usecase.GameUseCase
	Transactions   *usecase.TransactionUseCase
	Settlements    *usecase.SettlementUseCase
	Audit          *usecase.AuditUseCase
	Reconciliation *usecase.ReconciliationUseCase

	logger  zerolog.Logger
	closers []func()
}

// Options overrides parts of the wiring. The zero value builds everything
// from config.
type Options struct {
	// Publisher replaces the publisher selected by EVENT_PUBLISHER.
	Publisher eventpublisher.Publisher
}

type repositories struct {
	txManager    usecase.TxManager
	games        usecase.GameRepository
	transactions usecase.TransactionRepository
	participants usecase.ParticipantRepository
	settlements  usecase.SettlementRepository
	runs         usecase.SettlementRunRepository
	audit        usecase.AuditRepository
	outbox       usecase.OutboxRepository
	retrier      usecase.Retrier
}

// New connects to the configured backends and builds the application. Close
// must be called to release connections, also when New returns an error.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (a *App, err error) {
	a = &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	checks := map[string]handler.Pinger{}

	var (
		repos *repositories
		pool  *pgxpool.Pool
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err = a.connectPostgres(ctx, cfg)
		if err != nil {
			return a, err
		}
		checks["postgres"] = pool
		repos = postgresRepositories(pool, logger)
	case config.StorageMemory:
		repos = memoryRepositories(memory.NewStore())
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	default:
		return a, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.ClientConfig{URL: cfg.RedisURL})
		if err != nil {
			return a, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info().Msg("connected to redis")
	}

	locker, err := selectLocker(cfg, redisClient)
	if err != nil {
		return a, err
	}

	idGen := postgresRepo.NewULIDGenerator()
	recorder := usecase.NewAuditRecorder(repos.audit, idGen, a.Metrics)
	aggregator := usecase.NewLedgerAggregator(repos.games, repos.participants)
	guard := usecase.NewSettlementGuard(locker, logger, a.Metrics)

	a.Games = usecase.NewGameUseCase(repos.txManager, repos.games, recorder, idGen)
	a.Transactions = usecase.NewTransactionUseCase(
		repos.txManager, repos.games, repos.transactions, repos.participants,
		repos.outbox, recorder, idGen, logger, a.Metrics,
	)
	if repos.retrier != nil {
		a.Transactions.WithRetrier(repos.retrier)
	}
	a.Settlements = usecase.NewSettlementUseCase(
		repos.txManager, repos.games, repos.settlements, repos.runs, repos.outbox,
		aggregator, guard, recorder, idGen, logger, a.Metrics,
	).WithTransactionTimeout(cfg.TransactionTimeout)
	a.Audit = usecase.NewAuditUseCase(repos.audit, repos.games, repos.settlements)
	a.Reconciliation = usecase.NewReconciliationUseCase(repos.games, repos.transactions, repos.participants)

	var idempotency usecase.IdempotencyStore
	if redisClient != nil {
		a.Settlements.WithCache(redisRepo.NewCache(redisClient), cfg.CacheTTL)
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher, err = a.selectPublisher(ctx, cfg)
		if err != nil {
			return a, err
		}
	}
	a.Publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: repos.outbox,
		Publisher:  publisher,
		Logger:     logger,
		Metrics:    a.Metrics,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	if cfg.RateLimitRPS > 0 {
		a.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(a.Metrics)
	}

	a.Handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		GameHandler:        handler.NewGameHandler(a.Games),
		TransactionHandler: handler.NewTransactionHandler(a.Transactions, a.Reconciliation),
		SettlementHandler:  handler.NewSettlementHandler(a.Settlements),
		AuditHandler:       handler.NewAuditHandler(a.Audit),
		HealthHandler:      handler.NewHealthHandler(checks),
		Logger:             logger,
		Metrics:            a.Metrics,
		Gatherer:           a.Registry,
		IdempotencyStore:   idempotency,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        a.RateLimiter,
	})

	return a, nil
}

func (a *App) connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, a.logger); err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.logger.Info().Msg("connected to postgres")

	return pool, nil
}

func (a *App) selectPublisher(ctx context.Context, cfg *config.Config) (eventpublisher.Publisher, error) {
	switch cfg.EventPublisher {
	case config.PublisherNATS:
		p, closeConn, err := eventpublisher.ConnectNATS(ctx, cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.closers = append(a.closers, closeConn)
		a.logger.Info().Str("stream", eventpublisher.StreamName).Msg("connected to nats")
		return p, nil
	case config.PublisherLog:
		return eventpublisher.NewLogPublisher(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

func selectLocker(cfg *config.Config, redisClient *goredis.Client) (usecase.SettlementLocker, error) {
	switch cfg.LockBackend {
	case config.LockPostgres:
		if cfg.StorageBackend != config.StoragePostgres {
			return nil, fmt.Errorf("advisory locks require postgres storage")
		}
		return postgresRepo.NewAdvisoryLocker(), nil
	case config.LockRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis locks require a redis connection")
		}
		return redisRepo.NewLocker(redisClient, cfg.LockTTL), nil
	case config.LockMemory:
		return memory.NewLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

func postgresRepositories(pool *pgxpool.Pool, logger zerolog.Logger) *repositories {
	return &repositories{
		txManager:    postgresRepo.NewTxManager(pool),
		games:        postgresRepo.NewGameRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		participants: postgresRepo.NewParticipantRepository(pool),
		settlements:  postgresRepo.NewSettlementRepository(pool),
		runs:         postgresRepo.NewSettlementRunRepository(pool),
		audit:        postgresRepo.NewAuditRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		retrier:      postgresRepo.NewRetrier(logger),
	}
}

func memoryRepositories(store *memory.Store) *repositories {
	return &repositories{
		txManager:    memory.NewTxManager(store),
		games:        memory.NewGameRepository(store),
		transactions: memory.NewTransactionRepository(store),
		participants: memory.NewParticipantRepository(store),
		settlements:  memory.NewSettlementRepository(store),
		runs:         memory.NewSettlementRunRepository(store),
		audit:        memory.NewAuditRepository(store),
		outbox:       memory.NewOutboxRepository(store),
	}
}

// StartBackground runs the outbox relay and the rate limiter cleanup until ctx
// is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	go func() {
		if err := a.Publisher.Start(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	if a.RateLimiter == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.RateLimiter.CleanupLimiters(limiterIdle); n > 0 {
					a.logger.Debug().Int("removed", n).Msg("cleaned up idle rate limiters")
				}
			}
		}
	}()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
