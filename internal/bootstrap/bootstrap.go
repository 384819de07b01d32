package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/neural-transliterator/internal/config"
	"github.com/kirillkom/neural-transliterator/internal/core/ports"
	"github.com/kirillkom/neural-transliterator/internal/core/usecase"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/cache/redis"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/chunking"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/oracle/httpmodel"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/neural-transliterator/internal/infrastructure/resilience"
	"github.com/kirillkom/neural-transliterator/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue           ports.MessageQueue
	Jobs            ports.JobRepository
	OracleHealth    ports.HealthChecker
	TransliterateUC *usecase.TransliterateUseCase
	SubmitUC        ports.JobSubmitter
	ProcessUC       *usecase.ProcessJobUseCase

	closeFn func()
}

// New wires every adapter. pipelineMetrics may be nil.
func New(ctx context.Context, cfg config.Config, pipelineMetrics *metrics.PipelineMetrics) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if pipelineMetrics != nil {
		executor.WithObserver(pipelineMetrics)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	oracle := httpmodel.NewWithOptions(cfg.OracleURL, cfg.NHyps, httpmodel.Options{
		Timeout:            cfg.OracleTimeout(),
		ResilienceExecutor: executor,
	})

	var cache ports.CandidateCache
	var redisClient *goredis.Client
	if cfg.CacheEnabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			slog.Warn("candidate_cache_unavailable", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		cache = redis.New(redisClient, cfg.CacheTTL())
	}

	var observer ports.PipelineObserver
	if pipelineMetrics != nil {
		observer = pipelineMetrics
	}

	transliterateUC := usecase.NewTransliterateUseCase(
		oracle,
		chunking.NewBatcher(cfg.BatchSize),
		cache,
		observer,
		usecase.TransliterateOptions{
			NHyps:         cfg.NHyps,
			Threshold:     cfg.Threshold,
			SearchWorkers: cfg.SearchWorkers,
		},
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Jobs:   repo,

		OracleHealth:    oracle,
		TransliterateUC: transliterateUC,
		SubmitUC:        usecase.NewSubmitJobUseCase(repo, queue),
		ProcessUC:       usecase.NewProcessJobUseCase(repo, transliterateUC),

		closeFn: func() {
			queue.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         2.0,
		BreakerEnabled:          cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerOpenTimeout:      time.Duration(cfg.ResilienceBreakerOpenTimeoutSec) * time.Second,
		BreakerFailureRatio:     0.5,
		BreakerHalfOpenMaxCalls: 1,
	}
}
