// Package reddit implements the channel source fetcher over the Reddit JSON API.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
)

const (
	// DefaultBaseURL is the anonymous Reddit JSON endpoint.
	DefaultBaseURL = "https://www.reddit.com"

	// DefaultOAuthBaseURL is used once client credentials are configured.
	DefaultOAuthBaseURL = "https://oauth.reddit.com"

	// DefaultTokenURL issues application-only OAuth2 tokens.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// DefaultUserAgent identifies the pipeline to Reddit.
	DefaultUserAgent = "HotStocksPipeline/0.1 (by u/anonymous)"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 1

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the base of the linear backoff between attempts.
	DefaultRetryBackoff = 800 * time.Millisecond

	// DefaultPageDelay is the pause between listing pages.
	DefaultPageDelay = 500 * time.Millisecond

	maxPageSize      = 100
	maxCommentLimit  = 500
	maxRetryAfterCap = 10 * time.Second
)

// Client fetches channel listings and comment trees from Reddit.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	pageDelay    time.Duration
	now          func() time.Time
}

var _ interfaces.SourceFetcher = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetry sets the attempt cap and linear backoff base.
func WithRetry(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if backoff >= 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithPageDelay sets the pause between listing pages.
func WithPageDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.pageDelay = delay
	}
}

// WithClock overrides the time source used for the lookback cutoff.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithClientCredentials switches to application-only OAuth2 against oauthBaseURL.
// Apply after WithHTTPClient so token requests reuse the configured transport.
func WithClientCredentials(clientID, clientSecret, tokenURL, oauthBaseURL string) ClientOption {
	return func(c *Client) {
		if clientID == "" || clientSecret == "" {
			return
		}
		if tokenURL == "" {
			tokenURL = DefaultTokenURL
		}
		if oauthBaseURL == "" {
			oauthBaseURL = DefaultOAuthBaseURL
		}

		creds := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		authed := creds.Client(ctx)
		authed.Timeout = c.httpClient.Timeout

		c.httpClient = authed
		c.baseURL = strings.TrimSuffix(oauthBaseURL, "/")
	}
}

// NewClient creates a new Reddit API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		pageDelay:    DefaultPageDelay,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = arbor.NewLogger()
	}

	return c
}

// NewClientFromConfig builds a client from the [reddit] configuration section.
func NewClientFromConfig(cfg common.RedditConfig, logger arbor.ILogger) *Client {
	opts := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: common.ParseDurationOr(cfg.Timeout, DefaultTimeout)}),
		WithLogger(logger),
		WithRateLimit(cfg.RateLimit),
		WithUserAgent(cfg.UserAgent),
		WithRetry(cfg.MaxRetries, common.ParseDurationOr(cfg.RetryBackoff, DefaultRetryBackoff)),
		WithPageDelay(common.ParseDurationOr(cfg.PageDelay, DefaultPageDelay)),
		WithClientCredentials(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, cfg.OAuthBaseURL),
	}
	return NewClient(opts...)
}

// get performs a single GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", c.baseURL+path).
		Msg("Reddit API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter, Endpoint: path}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// getWithRetry retries transient failures with linearly increasing backoff.
// It returns the number of attempts made alongside the final error.
func (c *Client) getWithRetry(ctx context.Context, path string, params url.Values, result interface{}) (int, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		lastErr = c.get(ctx, path, params, result)
		if lastErr == nil {
			return attempt + 1, nil
		}
		if !isRetryable(ctx, lastErr) {
			return attempt + 1, lastErr
		}
		if attempt == c.maxRetries-1 {
			break
		}

		backoff := time.Duration(attempt+1) * c.retryBackoff
		var rateErr *RateLimitError
		if errors.As(lastErr, &rateErr) && rateErr.RetryAfter > backoff {
			backoff = min(rateErr.RetryAfter, maxRetryAfterCap)
		}

		c.logger.Warn().
			Err(lastErr).
			Str("endpoint", path).
			Int("attempt", attempt+1).
			Int("max_attempts", c.maxRetries).
			Int64("backoff_ms", backoff.Milliseconds()).
			Msg("Reddit request failed, retrying")

		if err := sleepContext(ctx, backoff); err != nil {
			return attempt + 1, err
		}
	}
	return c.maxRetries, lastErr
}

// isRetryable treats transport failures, decode failures, 429 and 5xx as transient
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
