// Package fetch issues outbound HTTP GET requests with bounded, jittered
// exponential backoff on transient failures.
//
// HTTP-level transient failures always end in a response: once retries are
// exhausted the last transient response is handed back to the caller. Only
// transport-level failures surface as errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/filingwatch/internal/infra"
	"github.com/seenimoa/filingwatch/internal/logging"
)

const (
	DefaultMaxRetries  = 4
	DefaultBaseDelay   = 350 * time.Millisecond
	DefaultJitter      = 150 * time.Millisecond
	DefaultHTTPTimeout = 30 * time.Second

	// MinUserAgentLength is the shortest identifying value accepted.
	MinUserAgentLength = 10
)

// PreconditionError is returned before any I/O when a request cannot be
// issued at all. It is never retried.
type PreconditionError struct {
	Detail string
}

func (e *PreconditionError) Error() string {
	return "fetch precondition: " + e.Detail
}

// TransientError reports a transport-level failure that persisted through
// every retry.
type TransientError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("GET %s: failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ValidateUserAgent checks the identifying client value sent with every call.
func ValidateUserAgent(ua string) error {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return &PreconditionError{Detail: "identifying User-Agent header is required"}
	}
	if len(ua) < MinUserAgentLength {
		return &PreconditionError{Detail: fmt.Sprintf("User-Agent %q is shorter than %d characters", ua, MinUserAgentLength)}
	}
	return nil
}

// Fetcher performs GET requests with retry.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	jitter     time.Duration
	limiter    *infra.RateLimiter
	logger     *slog.Logger
	sleeper    func(context.Context, time.Duration) error
	jitterFn   func(max time.Duration) time.Duration
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxRetries overrides the number of additional attempts (defaults to 4).
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoff overrides the base delay and the jitter ceiling.
func WithBackoff(base, jitter time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = base
		f.jitter = jitter
	}
}

// WithRateLimiter makes every attempt wait on the given limiter.
func WithRateLimiter(rl *infra.RateLimiter) Option {
	return func(f *Fetcher) { f.limiter = rl }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logging.OrDiscard(l) }
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleeper != nil {
			f.sleeper = sleeper
		}
	}
}

// WithJitterSource overrides the jitter generator (useful for tests).
func WithJitterSource(fn func(max time.Duration) time.Duration) Option {
	return func(f *Fetcher) {
		if fn != nil {
			f.jitterFn = fn
		}
	}
}

// New constructs a fetcher identifying itself with userAgent.
func New(userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
		userAgent:  strings.TrimSpace(userAgent),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		jitter:     DefaultJitter,
		logger:     logging.Discard(),
		sleeper:    sleepContext,
		jitterFn:   uniformJitter,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UserAgent returns the identifying value sent with requests.
func (f *Fetcher) UserAgent() string { return f.userAgent }

// Get performs a GET request. Headers override the defaults, including the
// User-Agent. The caller must close the returned response body.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	ua := f.userAgent
	if v, ok := headers["User-Agent"]; ok {
		ua = v
	}
	if err := ValidateUserAgent(ua); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json, text/html, */*")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("User-Agent", strings.TrimSpace(ua))

		resp, err := f.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if attempt >= f.maxRetries {
				return nil, &TransientError{URL: url, Attempts: attempt + 1, Err: err}
			}
			delay := f.backoffDelay(attempt, 0)
			f.logger.Warn("upstream request failed, retrying",
				"url", url, "attempt", attempt+1, "delay", delay, "error", err)
			if err := f.sleeper(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if !IsTransientStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= f.maxRetries {
			f.logger.Warn("upstream still failing, giving up",
				"url", url, "attempts", attempt+1, "status", resp.StatusCode)
			return resp, nil
		}

		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		delay := f.backoffDelay(attempt, retryAfter)
		discard(resp)
		f.logger.Warn("upstream returned transient status, retrying",
			"url", url, "attempt", attempt+1, "status", resp.StatusCode, "delay", delay)
		if err := f.sleeper(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoffDelay returns base*2^attempt plus jitter, raised to retryAfter when
// the upstream asked for a longer wait.
func (f *Fetcher) backoffDelay(attempt int, retryAfter time.Duration) time.Duration {
	delay := f.baseDelay << uint(attempt)
	if f.jitter > 0 {
		delay += f.jitterFn(f.jitter)
	}
	if retryAfter > delay {
		return retryAfter
	}
	return delay
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// discard drains a little of the body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
