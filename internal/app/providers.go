package app

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/score-tracker/external/livescore"
	"github.com/riskibarqy/score-tracker/external/onefootball"
	"github.com/riskibarqy/score-tracker/external/scrape"
	"github.com/riskibarqy/score-tracker/external/sportmonks"
	"github.com/riskibarqy/score-tracker/internal/config"
	"github.com/riskibarqy/score-tracker/internal/domain/match"
	"github.com/riskibarqy/score-tracker/internal/infrastructure/ratelimit"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// buildProviders gives every source its own client, breaker and concurrency
// budget. The fasthttp connection pool is shared. Page cache janitors run
// until ctx is done.
func buildProviders(
	ctx context.Context,
	cfg config.Config,
	redisClient *redis.Client,
	onStateChange resilience.StateChangeFunc,
	logger *logging.Logger,
) []match.SnapshotProvider {
	var limiter scrape.Limiter
	if cfg.RateLimitEnabled && redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.ServiceName+":ratelimit", cfg.RateLimitPerMinute)
	}

	breaker := resilience.CircuitBreakerConfig{
		Enabled:          cfg.ScraperCircuitEnabled,
		FailureThreshold: cfg.ScraperCircuitFailureCount,
		OpenTimeout:      cfg.ScraperCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.ScraperCircuitHalfOpenMaxReq,
	}

	httpClient := &fasthttp.Client{
		Name:                     cfg.ServiceName,
		MaxConnsPerHost:          cfg.ScraperMaxConcurrency * 2,
		ReadTimeout:              cfg.ScraperTimeout,
		WriteTimeout:             cfg.ScraperTimeout,
		NoDefaultUserAgentHeader: true,
	}

	pageClient := func(source match.SourceType) *scrape.Client {
		client := scrape.NewClient(string(source), scrape.ClientConfig{
			HTTPClient:     httpClient,
			Timeout:        cfg.ScraperTimeout,
			UserAgent:      cfg.ScraperUserAgent,
			MaxRetries:     cfg.ScraperMaxRetries,
			MaxConcurrency: cfg.ScraperMaxConcurrency,
			PageCacheTTL:   cfg.ScraperPageCacheTTL,
			CircuitBreaker: breaker,
			OnStateChange:  onStateChange,
			Limiter:        limiter,
			Logger:         logger.Named(string(source)),
		})
		go client.Run(ctx)
		return client
	}

	providers := []match.SnapshotProvider{
		livescore.NewProvider(pageClient(match.SourceLiveScore), logger),
		onefootball.NewProvider(pageClient(match.SourceOneFootball), logger),
	}

	if cfg.SportMonksEnabled {
		providers = append(providers, sportmonks.NewClient(sportmonks.ClientConfig{
			HTTPClient: &http.Client{
				Timeout:   cfg.ScraperTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			BaseURL:        cfg.SportMonksBaseURL,
			Token:          cfg.SportMonksToken,
			Timeout:        cfg.ScraperTimeout,
			MaxRetries:     cfg.ScraperMaxRetries,
			Logger:         logger.Named("sportmonks"),
			CircuitBreaker: breaker,
			OnStateChange:  onStateChange,
			Limiter:        limiter,
		}))
	}

	logger.Info("snapshot providers ready",
		"count", len(providers),
		"sportmonks_enabled", cfg.SportMonksEnabled,
		"rate_limit_enabled", limiter != nil,
	)
	return providers
}
