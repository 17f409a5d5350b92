package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/evidenceview/internal/model"
	"github.com/ppiankov/evidenceview/internal/util"
	"github.com/ppiankov/evidenceview/internal/worker"
)

const checkMaxRetries = 3

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Status is the check outcome for one evidence source link
type Status struct {
	EvidenceID   string     `json:"evidenceId"`
	URL          string     `json:"url"`
	Accessible   bool       `json:"accessible"`
	StatusCode   int        `json:"statusCode,omitempty"`
	Dead         bool       `json:"dead"`                  // 404, 410 or unreachable
	Disallowed   bool       `json:"disallowed,omitempty"`  // Skipped because robots.txt forbids it
	RedirectURL  string     `json:"redirectUrl,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Options configures a Checker
type Options struct {
	Timeout       time.Duration
	Workers       int
	UserAgent     string
	RespectRobots bool
	HTTPProxy     string
	HTTPSProxy    string
	NoProxy       string
	Limiter       *worker.Limiter
	Logger        *zap.Logger
}

// Checker checks evidence source links concurrently
type Checker struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
	robots     *RobotsPolicy
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewChecker creates a link checker
func NewChecker(opts Options) *Checker {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	c := &Checker{
		httpClient: client,
		maxWorkers: opts.Workers,
		userAgent:  opts.UserAgent,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
	if opts.RespectRobots {
		c.robots = NewRobotsPolicy(client, opts.UserAgent)
	}
	return c
}

// OptionsFromConfig builds checker options from the configuration
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		Timeout:       cfg.LinkCheck.Timeout,
		Workers:       cfg.Concurrency.ValidationWorkers,
		UserAgent:     cfg.Source.UserAgent,
		RespectRobots: cfg.LinkCheck.RespectRobots,
		HTTPProxy:     cfg.Source.HTTPProxy,
		HTTPSProxy:    cfg.Source.HTTPSProxy,
		NoProxy:       cfg.Source.NoProxy,
	}
}

// Check requests the source link of every evidence. Results are in input order.
func (c *Checker) Check(ctx context.Context, evidences []model.EvidenceView) []Status {
	results := make([]Status, len(evidences))
	if len(evidences) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(c.maxWorkers)

	for i, ev := range evidences {
		g.Go(func() error {
			base := Status{EvidenceID: ev.ID, URL: strings.TrimSpace(ev.OriginalURL)}
			if ctx.Err() != nil {
				base.Error = "context cancelled"
				results[i] = base
				return nil
			}
			results[i] = c.checkWithRetry(ctx, base)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (c *Checker) checkWithRetry(ctx context.Context, base Status) Status {
	var delay time.Duration
	if c.robots != nil {
		allowed, crawlDelay, err := c.robots.Allowed(ctx, base.URL)
		if err != nil {
			base.Error = err.Error()
			base.Dead = true
			return base
		}
		if !allowed {
			base.Disallowed = true
			return base
		}
		delay = crawlDelay
	}

	var result Status
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.WaitWithDelay(ctx, base.URL, delay); err != nil {
				base.Error = fmt.Sprintf("rate limit: %v", err)
				return base
			}
		}

		result = c.checkOnce(ctx, base)
		if !isRetryable(result) {
			return result
		}
		c.logger.Debug("retrying link check", zap.String("url", base.URL), zap.Int("attempt", attempt+1))
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

func (c *Checker) checkOnce(ctx context.Context, result Status) Status {
	resp, err := c.request(ctx, http.MethodHead, result.URL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.request(ctx, http.MethodGet, result.URL)
	}
	if err != nil {
		result.Error = err.Error()
		result.Dead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != result.URL {
		result.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = &t
		}
	}
	return result
}

func (c *Checker) request(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// isRetryable returns true for results that indicate transient failures
func isRetryable(result Status) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	s := strings.ToLower(result.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
