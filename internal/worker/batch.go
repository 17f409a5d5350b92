package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/present"
)

// Viewer produces the evidence view for one match
type Viewer interface {
	View(ctx context.Context, matchID string) (present.ViewModel, error)
}

// PresenterViewer loads each match through a fresh Presenter
type PresenterViewer struct {
	Fetcher  present.Fetcher
	Notifier present.Notifier
	Options  present.Options
	Expand   bool // Show every evidence instead of the collapsed window
}

// View binds a new presenter to matchID and returns its snapshot and
// the fetch failure, if any
func (v PresenterViewer) View(ctx context.Context, matchID string) (present.ViewModel, error) {
	p := present.New(v.Fetcher, v.Notifier, v.Options)
	p.SetMatchID(ctx, matchID)
	if v.Expand {
		p.ViewAll()
	}
	return p.Snapshot(), p.Err()
}

// ViewJob loads the view for one match
type ViewJob struct {
	Index   int
	MatchID string
	Viewer  Viewer
	Limiter *Limiter
	RateKey string // URL whose host is rate limited; empty disables waiting
}

// Execute executes the view job
func (j *ViewJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil && j.RateKey != "" {
		if err := j.Limiter.Wait(ctx, j.RateKey); err != nil {
			return &ViewResult{Index: j.Index, MatchID: j.MatchID, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	view, err := j.Viewer.View(ctx, j.MatchID)
	return &ViewResult{
		Index:   j.Index,
		MatchID: j.MatchID,
		View:    view,
		Error:   err,
	}
}

// ViewResult is the outcome of a view job
type ViewResult struct {
	Index   int
	MatchID string
	View    present.ViewModel
	Error   error
}

// GetError returns the fetch error for the match
func (r *ViewResult) GetError() error {
	return r.Error
}

// BatchProcessor loads the views of many matches concurrently
type BatchProcessor struct {
	viewer      Viewer
	concurrency int
	limiter     *Limiter
	rateKey     string
	logger      *zap.Logger
}

// NewBatchProcessor creates a batch processor. Requests are throttled per
// host of rateKey when it is set.
func NewBatchProcessor(viewer Viewer, concurrency int, limiter *Limiter, rateKey string, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		viewer:      viewer,
		concurrency: concurrency,
		limiter:     limiter,
		rateKey:     rateKey,
		logger:      logger,
	}
}

// ProcessMatches loads every match and returns results in input order
func (b *BatchProcessor) ProcessMatches(ctx context.Context, matchIDs []string) []*ViewResult {
	if len(matchIDs) == 0 {
		return []*ViewResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	out := make([]*ViewResult, len(matchIDs))
	for i, id := range matchIDs {
		job := &ViewJob{Index: i, MatchID: id, Viewer: b.viewer, Limiter: b.limiter, RateKey: b.rateKey}
		if !pool.Submit(job) {
			out[i] = &ViewResult{Index: i, MatchID: id, Error: fmt.Errorf("batch cancelled: %w", ctx.Err())}
		}
	}

	for _, result := range pool.Wait() {
		r := result.(*ViewResult)
		out[r.Index] = r
	}

	// Jobs still queued when the context ended never ran
	for i, r := range out {
		if r == nil {
			out[i] = &ViewResult{Index: i, MatchID: matchIDs[i], Error: fmt.Errorf("batch cancelled: %w", context.Cause(ctx))}
		}
	}

	b.logger.Debug("batch complete", zap.Int("matches", len(matchIDs)))
	return out
}

// ProcessFile reads match ids from a file and loads them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ViewResult, error) {
	ids, err := ReadMatchIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read match ids: %w", err)
	}
	return b.ProcessMatches(ctx, ids), nil
}

// ReadMatchIDsFromFile reads match ids (one per line), skipping blank
// lines, # comments and duplicates
func ReadMatchIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return ids, nil
}
