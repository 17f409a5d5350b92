package present

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/model"
)

// Fetcher retrieves the raw evidence list for a match
type Fetcher interface {
	FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error)
}

// Invalidator is implemented by fetchers that cache results. A manual
// refresh drops the cached list before fetching.
type Invalidator interface {
	Invalidate(matchID string)
}

// Severity classifies a user notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Notifier surfaces messages to the user. Calls are fire-and-forget.
type Notifier interface {
	Notify(title, message string, severity Severity)
}

// Opener opens a source link outside the application
type Opener interface {
	OpenExternal(url string)
}

// FetchState tracks the fetch orchestration lifecycle
type FetchState int

const (
	StateIdle FetchState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s FetchState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Options are the static per-instance presenter inputs
type Options struct {
	ListTitle        string
	RecordsToDisplay int
	LinesToClamp     int
	NotifyOnRefresh  bool // Send a success notification after manual refreshes
	Opener           Opener
	Logger           *zap.Logger
}

// OptionsFromConfig builds presenter options from the view configuration
func OptionsFromConfig(cfg model.ViewConfig) Options {
	return Options{
		ListTitle:        cfg.ListTitle,
		RecordsToDisplay: cfg.RecordsToDisplay,
		LinesToClamp:     cfg.LinesToClamp,
		NotifyOnRefresh:  cfg.NotifyOnRefresh,
	}
}

// Presenter owns the evidence view model for one match.
//
// The canonical state is the ranked full list plus the window state;
// everything a renderer needs is derived from it in Snapshot. Fetch
// errors never escape: they become a notification and an error flag.
type Presenter struct {
	fetcher  Fetcher
	notifier Notifier
	opener   Opener
	logger   *zap.Logger

	listTitle       string
	linesToClamp    int
	notifyOnRefresh bool

	mu         sync.Mutex
	matchID    string
	state      FetchState
	generation uint64
	all        []model.EvidenceView
	allMatchID string // Match the current list was fetched for
	rawCount   int
	loaded     bool // at least one successful fetch
	hasError   bool
	err        error
	window     Window
}

// New creates a presenter in the Idle state
func New(fetcher Fetcher, notifier Notifier, opts Options) *Presenter {
	if opts.ListTitle == "" {
		opts.ListTitle = "Evidences"
	}
	if opts.LinesToClamp < 0 {
		opts.LinesToClamp = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Presenter{
		fetcher:         fetcher,
		notifier:        notifier,
		opener:          opts.Opener,
		logger:          opts.Logger,
		listTitle:       opts.ListTitle,
		linesToClamp:    opts.LinesToClamp,
		notifyOnRefresh: opts.NotifyOnRefresh,
		window:          NewWindow(opts.RecordsToDisplay),
	}
}

// MatchID returns the match the presenter is bound to
func (p *Presenter) MatchID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matchID
}

// SetMatchID binds the presenter to a match and fetches its evidences.
// Nothing happens when the id is unchanged and a fetch has already run.
func (p *Presenter) SetMatchID(ctx context.Context, matchID string) bool {
	p.mu.Lock()
	if matchID == p.matchID && p.state != StateIdle {
		p.mu.Unlock()
		return false
	}
	p.matchID = matchID
	p.mu.Unlock()

	p.refresh(ctx, false)
	return true
}

// Load performs the initial fetch
func (p *Presenter) Load(ctx context.Context) {
	p.refresh(ctx, false)
}

// Refresh refetches evidences on user request, bypassing any cache in
// front of the backend. It may be called repeatedly; only the most
// recently started fetch is allowed to update state.
func (p *Presenter) Refresh(ctx context.Context) {
	p.refresh(ctx, true)
}

type notification struct {
	title    string
	message  string
	severity Severity
}

func (p *Presenter) refresh(ctx context.Context, manual bool) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	matchID := p.matchID
	p.state = StateLoading
	p.mu.Unlock()

	if inv, ok := p.fetcher.(Invalidator); ok && manual {
		inv.Invalidate(matchID)
	}

	p.logger.Debug("fetching evidences", zap.String("match_id", matchID), zap.Uint64("generation", gen))
	raw, err := p.fetcher.FetchEvidences(ctx, matchID)

	n := p.commit(gen, matchID, raw, err, manual)
	if n != nil && p.notifier != nil {
		p.notifier.Notify(n.title, n.message, n.severity)
	}
}

// commit applies a fetch outcome if it belongs to the latest request
func (p *Presenter) commit(gen uint64, matchID string, raw []model.Evidence, err error, manual bool) *notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.logger.Debug("discarding stale fetch result",
			zap.String("match_id", matchID),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", p.generation))
		return nil
	}

	if err != nil {
		p.state = StateFailed
		p.hasError = true
		p.err = &FetchError{MatchID: matchID, Err: err}
		p.logger.Warn("evidence fetch failed", zap.String("match_id", matchID), zap.Error(err))
		return &notification{
			title:    "Error",
			message:  strings.Join(ReduceErrors(err), ", "),
			severity: SeverityError,
		}
	}

	p.all = Build(raw)
	p.allMatchID = matchID
	p.rawCount = len(raw)
	p.loaded = true
	p.hasError = false
	p.err = nil
	p.window.Reset()
	p.state = StateLoaded

	p.logger.Debug("evidences loaded",
		zap.String("match_id", matchID),
		zap.Int("fetched", len(raw)),
		zap.Int("displayable", len(p.all)))

	if manual && p.notifyOnRefresh {
		return &notification{
			title:    "Success",
			message:  fmt.Sprintf("%s refreshed", p.listTitle),
			severity: SeveritySuccess,
		}
	}
	return nil
}

// ViewAll expands the list. It returns false when nothing more can be shown.
func (p *Presenter) ViewAll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.ViewAll(len(p.all))
}

// ShowLess collapses the list to the configured number of records
func (p *Presenter) ShowLess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window.ShowLess()
}

// OpenSource resolves the source link of a visible evidence and hands it to
// the configured Opener. Unknown ids raise a warning notification.
func (p *Presenter) OpenSource(evidenceID string) (string, bool) {
	p.mu.Lock()
	var link string
	for _, ev := range p.window.Visible(p.all) {
		if ev.ID == evidenceID && ev.HasLink() {
			link = strings.TrimSpace(ev.OriginalURL)
			break
		}
	}
	p.mu.Unlock()

	if link == "" {
		p.logger.Debug("evidence not visible", zap.String("evidence_id", evidenceID))
		if p.notifier != nil {
			p.notifier.Notify("Not found", fmt.Sprintf("%v: %s", ErrNotFound, evidenceID), SeverityWarning)
		}
		return "", false
	}

	if p.opener != nil {
		p.opener.OpenExternal(link)
	}
	return link, true
}

// State returns the fetch lifecycle state
func (p *Presenter) State() FetchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the last fetch failure, or nil after a successful fetch
func (p *Presenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Count returns the number of displayable evidences. The count is
// undefined while idle or loading.
func (p *Presenter) Count() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countLocked()
}

func (p *Presenter) countLocked() (int, bool) {
	switch p.state {
	case StateLoaded:
		return len(p.all), true
	case StateFailed:
		return len(p.all), p.loaded
	default:
		return 0, false
	}
}

// ViewModel is a read-only snapshot of everything a renderer needs
type ViewModel struct {
	MatchID      string               `json:"matchId"`
	ListMatchID  string               `json:"listMatchId,omitempty"` // Match the evidences belong to
	Stale        bool                 `json:"stale"`                 // Evidences belong to a previous match
	Title        string               `json:"title"`
	State        string               `json:"state"`
	Window       string               `json:"window"`
	Loading      bool                 `json:"loading"`
	HasError     bool                 `json:"hasError"`
	Error        string               `json:"error,omitempty"`
	Total        *int                 `json:"total,omitempty"` // Nil while the count is undefined
	RawCount     int                  `json:"rawCount"`
	CountLabel   string               `json:"countLabel,omitempty"`
	CanViewAll   bool                 `json:"canViewAll"`
	CanShowLess  bool                 `json:"canShowLess"`
	Empty        bool                 `json:"empty"`
	LinesToClamp int                  `json:"linesToClamp"`
	ClampStyle   string               `json:"clampStyle"`
	Evidences    []model.EvidenceView `json:"evidences"`
}

// Snapshot derives the current view model
func (p *Presenter) Snapshot() ViewModel {
	p.mu.Lock()
	defer p.mu.Unlock()

	total, known := p.countLocked()
	vm := ViewModel{
		MatchID:      p.matchID,
		ListMatchID:  p.allMatchID,
		Stale:        p.loaded && p.allMatchID != p.matchID,
		Title:        p.listTitle,
		State:        p.state.String(),
		Window:       p.window.State().String(),
		Loading:      p.state == StateIdle || p.state == StateLoading,
		HasError:     p.hasError,
		RawCount:     p.rawCount,
		CanViewAll:   p.window.CanViewAll(len(p.all)),
		CanShowLess:  p.window.State() == Expanded,
		LinesToClamp: p.linesToClamp,
		ClampStyle:   fmt.Sprintf("-webkit-line-clamp: %d", p.linesToClamp),
		Evidences:    slices.Clone(p.window.Visible(p.all)),
	}
	if p.err != nil {
		vm.Error = strings.Join(ReduceErrors(p.err), ", ")
	}
	if known {
		vm.Total = &total
		vm.Empty = total == 0
		vm.CountLabel = p.window.CountLabel(total)
		if total > 0 && !p.hasError {
			vm.Title = fmt.Sprintf("%s (%s)", p.listTitle, vm.CountLabel)
		}
	}
	if vm.Evidences == nil {
		vm.Evidences = []model.EvidenceView{}
	}
	return vm
}
