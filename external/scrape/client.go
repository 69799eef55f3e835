package scrape

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/score-tracker/internal/platform/cache"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxConcurrency = 4
	maxBodySize           = 4 << 20
	maxRedirects          = 3
	bodyPreviewLimit      = 240
)

var (
	ErrPageNotFound   = crerr.New("page not found")
	ErrRateLimited    = crerr.New("source rate limit exceeded")
	ErrInvalidPageURL = crerr.New("invalid page url")

	errScrapeTransient = crerr.New("scrape transient failure")
	errScrapeBlocked   = crerr.New("scrape request blocked")
)

// Limiter grants or denies one request for key. RedisLimiter satisfies it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	Timeout        time.Duration
	UserAgent      string
	MaxRetries     int
	MaxConcurrency int
	// PageCacheTTL <= 0 disables the page cache.
	PageCacheTTL   time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
	OnStateChange  resilience.StateChangeFunc
	Limiter        Limiter
	Logger         *logging.Logger
}

// Client fetches HTML pages for one source. Every source gets its own client
// so breaker state, concurrency and rate limits never leak across sources.
type Client struct {
	name       string
	httpClient *fasthttp.Client
	timeout    time.Duration
	userAgent  string
	maxRetries int
	breaker    *resilience.CircuitBreaker
	sem        *semaphore.Weighted
	pages      *cache.Store
	limiter    Limiter
	logger     *logging.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(name string, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := cfg.MaxConcurrency
	if concurrency < 1 {
		concurrency = defaultMaxConcurrency
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                     strings.TrimSpace(cfg.UserAgent),
			NoDefaultUserAgentHeader: strings.TrimSpace(cfg.UserAgent) == "",
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			MaxResponseBodySize:      maxBodySize,
			MaxIdleConnDuration:      time.Minute,
		}
	}

	return &Client{
		name:       name,
		httpClient: httpClient,
		timeout:    timeout,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		maxRetries: max(cfg.MaxRetries, 0),
		breaker:    resilience.NewNamedCircuitBreaker(name, cfg.CircuitBreaker, cfg.OnStateChange),
		sem:        semaphore.NewWeighted(int64(concurrency)),
		pages:      cache.NewStore(cfg.PageCacheTTL),
		limiter:    cfg.Limiter,
		logger:     logger.With("source", name),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

func (c *Client) Name() string {
	return c.name
}

// Run evicts expired pages until ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.pages.Run(ctx)
}

// Fetch returns the page body. Concurrent fetches of the same URL share one
// request and successful bodies are reused for the page cache TTL.
func (c *Client) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	pageURL = strings.TrimSpace(pageURL)
	if err := validatePageURL(pageURL); err != nil {
		return nil, err
	}

	out, err := c.pages.GetOrLoad(ctx, pageURL, func(ctx context.Context) (any, error) {
		return c.load(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}

	body, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected page payload type %T", out)
	}
	return body, nil
}

func (c *Client) load(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "scrape circuit breaker rejected request", "state", c.breaker.State())
		return nil, crerr.Wrapf(err, "source %s", c.name)
	}

	if err := c.allow(ctx); err != nil {
		// The breaker slot was granted; a limiter denial is not an upstream failure.
		c.breaker.RecordSuccess()
		return nil, err
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.breaker.RecordSuccess()
		return nil, crerr.Wrap(err, "wait for source slot")
	}
	defer c.sem.Release(1)

	body, err := c.executeRequest(ctx, pageURL)
	if err != nil && isCircuitFailure(err) {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	return body, err
}

func (c *Client) allow(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	ok, err := c.limiter.Allow(ctx, c.name)
	if err != nil {
		c.logger.WarnContext(ctx, "rate limiter unavailable, allowing request", "error", err)
		return nil
	}
	if !ok {
		return crerr.Wrapf(ErrRateLimited, "source %s", c.name)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, pageURL)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%w: send request: %v", errScrapeTransient, err)
		case status >= 200 && status < 300:
			return body, nil
		case status == fasthttp.StatusNotFound || status == fasthttp.StatusGone:
			return nil, crerr.Wrapf(ErrPageNotFound, "status=%d url=%s", status, pageURL)
		case status == fasthttp.StatusForbidden:
			// A source that blocks us will not unblock on retry.
			return nil, fmt.Errorf("%w: page status=%d body=%s", errScrapeBlocked, status, abbreviateBody(body))
		case isRetryableStatus(status):
			lastErr = fmt.Errorf("%w: page status=%d body=%s", errScrapeTransient, status, abbreviateBody(body))
		default:
			return nil, fmt.Errorf("page status=%d body=%s", status, abbreviateBody(body))
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("page request failed")
	}
	c.logger.WarnContext(ctx, "scrape request failed", "url", pageURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, pageURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(pageURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en")
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	req.SetTimeout(c.requestTimeout(ctx))

	if err := c.httpClient.DoRedirects(req, resp, maxRedirects); err != nil {
		return nil, 0, err
	}
	return append([]byte(nil), resp.Body()...), resp.StatusCode(), nil
}

// requestTimeout keeps the request inside the caller's deadline; fasthttp
// does not watch the context itself.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = max(remaining, time.Millisecond)
		}
	}
	return timeout
}

func validatePageURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return crerr.Wrapf(ErrInvalidPageURL, "%q: %v", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return crerr.Wrapf(ErrInvalidPageURL, "%q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return crerr.Wrapf(ErrInvalidPageURL, "%q: host is required", raw)
	}
	return nil
}

// isCircuitFailure counts transport errors, 5xx and exhausted 429 retries, and
// 403 blocks. A missing page is not a source failure.
func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errScrapeTransient) || stderrors.Is(err, errScrapeBlocked)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

// abbreviateBody collapses whitespace so HTML error pages fit on one log line.
func abbreviateBody(body []byte) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	space := false
	for _, b := range bytes.TrimSpace(body) {
		if buf.Len() >= bodyPreviewLimit {
			_, _ = buf.WriteString("...")
			break
		}
		switch b {
		case ' ', '\n', '\r', '\t':
			if !space {
				_ = buf.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		_ = buf.WriteByte(b)
	}
	return buf.String()
}
