package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/score-tracker/internal/config"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/infrastructure/publisher"
	repocache "github.com/riskibarqy/score-tracker/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/score-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/score-tracker/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/score-tracker/internal/interfaces/httpapi"
	"github.com/riskibarqy/score-tracker/internal/observability"
	basecache "github.com/riskibarqy/score-tracker/internal/platform/cache"
	"github.com/riskibarqy/score-tracker/internal/platform/id"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/riskibarqy/score-tracker/internal/usecase"
)

// App owns every long-lived component of the service.
type App struct {
	Server    *http.Server
	Scheduler *usecase.PollScheduler

	logger  *logging.Logger
	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{logger: logger}

	matches, events, err := a.openStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	var metricsHandler http.Handler
	var onStateChange resilience.StateChangeFunc
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
		metricsHandler = metrics.Handler()
		onStateChange = metrics.BreakerStateChanged
	}

	redisClient, err := a.openRedis(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	registry, err := usecase.NewProviderRegistry(buildProviders(ctx, cfg, redisClient, onStateChange, logger)...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	logger.Info("provider registry ready", "sources", registry.Sources())

	eventPublisher, err := a.openPublisher(cfg, redisClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	var trackingMetrics usecase.TrackingMetrics
	if metrics != nil {
		trackingMetrics = metrics
	}

	locks := resilience.NewKeyedMutex()
	tracker := usecase.NewTrackingService(matches, registry, locks, eventPublisher, trackingMetrics, logger.Named("tracking"), usecase.TrackingConfig{
		Reconcile: usecase.ReconcileConfig{
			RequiredConfirmations: cfg.TrackingRequiredConfirmations,
			MaxErrors:             cfg.TrackingMaxErrors,
		},
		FetchTimeout: cfg.TrackingFetchTimeout,
	})
	matchService := usecase.NewMatchService(matches, events, tracker, locks, id.NewUUIDGenerator(), eventPublisher, logger)

	if cfg.SchedulerEnabled {
		a.Scheduler, err = usecase.NewPollScheduler(matches, tracker, usecase.SchedulerConfig{
			Workers:        cfg.SchedulerWorkers,
			LiveInterval:   cfg.SchedulerLiveInterval,
			PausedInterval: cfg.SchedulerPausedInterval,
			NearInterval:   cfg.SchedulerNearInterval,
			FarInterval:    cfg.SchedulerFarInterval,
			NearLookback:   cfg.SchedulerNearLookback,
			NearLookahead:  cfg.SchedulerNearLookahead,
			FarLookahead:   cfg.SchedulerFarLookahead,
			StartupScan:    cfg.SchedulerStartupScan,
		}, logger.Named("scheduler"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build poll scheduler: %w", err)
		}
	}

	handler := httpapi.NewHandler(matchService, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminToken:         cfg.AdminToken,
		Metrics:            metricsHandler,
	})

	if cfg.HTTPAddr == "" {
		a.Close()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return a, nil
}

// Close releases storage, broker and cache connections in reverse order of
// acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close dependency failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Config) (match.Repository, match.EventRepository, error) {
	var matches match.Repository
	var events match.EventRepository

	if cfg.StorageDriver == config.StorageMemory {
		seed := memory.SeedMatches(time.Now())
		memEvents := memory.NewEventRepository()
		matches, events = memory.NewMatchRepository(memEvents, seed), memEvents
		a.logger.Info("storage ready", "driver", config.StorageMemory, "seeded_matches", len(seed))
	} else {
		db, err := openPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		matches, events = postgres.NewMatchRepository(db), postgres.NewEventRepository(db)
		a.logger.Info("storage ready", "driver", config.StoragePostgres, "db_name", dbNameFromURL(cfg.DBURL))
	}

	if cfg.ReadCacheEnabled {
		lists := basecache.NewStore(cfg.ReadCacheTTL)
		go lists.Run(ctx)
		matches = repocache.NewMatchRepository(matches, lists)
	}
	return matches, events, nil
}

func (a *App) openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if !cfg.RateLimitEnabled && cfg.EventPublisher != config.PublisherRedis {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)
	a.logger.Info("redis ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}

func (a *App) openPublisher(cfg config.Config, redisClient *redis.Client) (usecase.EventPublisher, error) {
	switch cfg.EventPublisher {
	case config.PublisherKafka:
		p := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, a.logger)
		a.closers = append(a.closers, p.Close)
		a.logger.Info("event publisher ready", "kind", config.PublisherKafka, "topic", cfg.KafkaTopic)
		return p, nil
	case config.PublisherRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis publisher requires a redis client")
		}
		a.logger.Info("event publisher ready", "kind", config.PublisherRedis, "stream", cfg.RedisEventStream)
		return publisher.NewRedisStreamPublisher(redisClient, cfg.RedisEventStream, a.logger), nil
	default:
		return nil, nil
	}
}
