package source

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/model"
	"github.com/ppiankov/evidenceview/internal/util"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Client fetches evidence lists from the evidence HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	maxBytes   int64
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API rooted at cfg.BaseURL
func NewClient(cfg model.SourceConfig, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = model.DefaultConfig().Source.MaxBodyBytes
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed backends
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchEvidences retrieves the evidence list for a match, retrying
// transient failures with exponential backoff
func (c *Client) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("match id is required")
	}

	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		evidences, err := c.fetchOnce(ctx, matchID)
		if err == nil {
			return evidences, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug("retrying evidence fetch",
			zap.String("match_id", matchID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, matchID string) ([]model.Evidence, error) {
	endpoint := fmt.Sprintf("%s/matches/%s/evidences", c.baseURL, url.PathEscape(matchID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			messages:   parseErrorMessages(body),
		}
	}

	var evidences []model.Evidence
	if err := json.Unmarshal(body, &evidences); err != nil {
		return nil, fmt.Errorf("decode evidences: %w", err)
	}
	if evidences == nil {
		evidences = []model.Evidence{}
	}

	c.logger.Debug("fetched evidences", zap.String("match_id", matchID), zap.Int("count", len(evidences)))
	return evidences, nil
}

// isRetryableFetchError returns true for transient failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	s := strings.ToLower(err.Error())
	return strings.HasPrefix(s, "fetch:") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
