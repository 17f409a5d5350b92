package present

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/evidenceview/internal/model"
)

// fetchFunc adapts a function to the Fetcher interface
type fetchFunc func(ctx context.Context, matchID string) ([]model.Evidence, error)

func (f fetchFunc) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	return f(ctx, matchID)
}

type sent struct {
	title    string
	message  string
	severity Severity
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Notify(title, message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{title, message, severity})
}

func (r *recordingNotifier) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

type recordingOpener struct {
	urls []string
}

func (o *recordingOpener) OpenExternal(url string) {
	o.urls = append(o.urls, url)
}

func linked(n int, prefix string) []model.Evidence {
	out := make([]model.Evidence, n)
	for i := range out {
		out[i] = model.Evidence{
			ID:          fmt.Sprintf("%s%d", prefix, i+1),
			OriginalURL: fmt.Sprintf("https://example.com/%s/%d", prefix, i+1),
		}
	}
	return out
}

func staticFetcher(evidences []model.Evidence) fetchFunc {
	return func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		return evidences, nil
	}
}

func TestPresenter_InitialState(t *testing.T) {
	p := New(staticFetcher(nil), nil, Options{RecordsToDisplay: 2})

	if p.State() != StateIdle {
		t.Errorf("expected idle, got %v", p.State())
	}
	if _, ok := p.Count(); ok {
		t.Error("count should be undefined before the first fetch")
	}

	vm := p.Snapshot()
	if !vm.Loading {
		t.Error("expected loading indicator before the first fetch")
	}
	if vm.Total != nil {
		t.Errorf("expected nil total, got %d", *vm.Total)
	}
	if vm.Title != "Evidences" {
		t.Errorf("expected bare default title, got %q", vm.Title)
	}
}

func TestPresenter_LoadAndWindow(t *testing.T) {
	p := New(staticFetcher(linked(5, "e")), nil, Options{RecordsToDisplay: 2, LinesToClamp: 4})
	p.Load(context.Background())

	vm := p.Snapshot()
	if vm.State != "loaded" || vm.Loading {
		t.Fatalf("expected loaded state, got %s (loading=%v)", vm.State, vm.Loading)
	}
	if len(vm.Evidences) != 2 {
		t.Errorf("collapsed: expected 2 evidences, got %d", len(vm.Evidences))
	}
	if vm.Title != "Evidences (2+)" {
		t.Errorf("collapsed: unexpected title %q", vm.Title)
	}
	if !vm.CanViewAll || vm.CanShowLess {
		t.Errorf("collapsed: unexpected affordances viewAll=%v showLess=%v", vm.CanViewAll, vm.CanShowLess)
	}
	if vm.ClampStyle != "-webkit-line-clamp: 4" {
		t.Errorf("unexpected clamp style %q", vm.ClampStyle)
	}

	if !p.ViewAll() {
		t.Fatal("expected view all to apply")
	}
	vm = p.Snapshot()
	if len(vm.Evidences) != 5 || vm.Title != "Evidences (5)" {
		t.Errorf("expanded: got %d evidences, title %q", len(vm.Evidences), vm.Title)
	}

	p.ShowLess()
	vm = p.Snapshot()
	if len(vm.Evidences) != 2 || vm.Title != "Evidences (2+)" {
		t.Errorf("after show less: got %d evidences, title %q", len(vm.Evidences), vm.Title)
	}
}

func TestPresenter_ViewAllNoOpWhenAllVisible(t *testing.T) {
	p := New(staticFetcher(linked(5, "e")), nil, Options{RecordsToDisplay: 10})
	p.Load(context.Background())

	if p.ViewAll() {
		t.Error("view all should be a no-op when recordsToDisplay >= total")
	}
	vm := p.Snapshot()
	if vm.Window != "collapsed" || vm.Title != "Evidences (5)" {
		t.Errorf("unexpected window %s, title %q", vm.Window, vm.Title)
	}
}

// The guard compares against the filtered count. A raw count of 5 with
// only 2 linked evidences must not enable "view all" for a window of 3,
// even though 3 < 5 would if the raw fetch count were used.
func TestPresenter_ViewAllGuardUsesFilteredCount(t *testing.T) {
	raw := append(linked(2, "ok"), model.Evidence{ID: "n1"}, model.Evidence{ID: "n2", OriginalURL: " "}, model.Evidence{ID: "n3"})
	p := New(staticFetcher(raw), nil, Options{RecordsToDisplay: 3})
	p.Load(context.Background())

	vm := p.Snapshot()
	if vm.RawCount != 5 {
		t.Fatalf("expected raw count 5, got %d", vm.RawCount)
	}
	if *vm.Total != 2 {
		t.Fatalf("expected filtered total 2, got %d", *vm.Total)
	}
	if vm.CanViewAll {
		t.Error("view all must be disabled when the filtered list fits the window")
	}
	if p.ViewAll() {
		t.Error("view all must be a no-op when the filtered list fits the window")
	}
}

func TestPresenter_EmptyResultIsNotAnError(t *testing.T) {
	notifier := &recordingNotifier{}
	p := New(staticFetcher([]model.Evidence{}), notifier, Options{RecordsToDisplay: 3})
	p.Load(context.Background())

	vm := p.Snapshot()
	if vm.HasError || !vm.Empty {
		t.Errorf("expected empty, error-free view, got hasError=%v empty=%v", vm.HasError, vm.Empty)
	}
	if vm.Title != "Evidences" {
		t.Errorf("expected bare title for empty list, got %q", vm.Title)
	}
	if len(notifier.all()) != 0 {
		t.Errorf("expected no notifications, got %v", notifier.all())
	}
}

func TestPresenter_FetchFailureKeepsData(t *testing.T) {
	var fail atomic.Bool
	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		if fail.Load() {
			return nil, errors.Join(errors.New("Insufficient access"), errors.New("Try again later"))
		}
		return linked(4, "e"), nil
	})
	notifier := &recordingNotifier{}
	p := New(fetcher, notifier, Options{RecordsToDisplay: 2})

	p.Load(context.Background())
	p.ViewAll()
	before := p.Snapshot()

	fail.Store(true)
	p.Refresh(context.Background())

	after := p.Snapshot()
	if !after.HasError || after.State != "failed" {
		t.Fatalf("expected failed state with error flag, got %s hasError=%v", after.State, after.HasError)
	}
	if len(after.Evidences) != len(before.Evidences) {
		t.Errorf("failure changed visible evidences: %d -> %d", len(before.Evidences), len(after.Evidences))
	}
	if after.Window != "expanded" {
		t.Errorf("failure should not touch the window, got %s", after.Window)
	}
	if after.Title != "Evidences" {
		t.Errorf("expected bare title while in error, got %q", after.Title)
	}
	if p.Err() == nil {
		t.Error("expected Err() to report the failure")
	}
	var fe *FetchError
	if !errors.As(p.Err(), &fe) {
		t.Errorf("expected *FetchError, got %T", p.Err())
	}

	got := notifier.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].title != "Error" || got[0].severity != SeverityError {
		t.Errorf("unexpected notification %+v", got[0])
	}
	if got[0].message != "Insufficient access, Try again later" {
		t.Errorf("unexpected message %q", got[0].message)
	}

	fail.Store(false)
	p.Refresh(context.Background())
	recovered := p.Snapshot()
	if recovered.HasError || p.Err() != nil {
		t.Error("expected successful refresh to clear the error flag")
	}
	if recovered.Window != "collapsed" {
		t.Errorf("expected refresh to reset the window, got %s", recovered.Window)
	}
	if recovered.Title != "Evidences (2+)" {
		t.Errorf("unexpected title after recovery %q", recovered.Title)
	}
}

func TestPresenter_FailureBeforeAnyLoad(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		return nil, errors.New("network down")
	})
	p := New(fetcher, &recordingNotifier{}, Options{RecordsToDisplay: 2})
	p.Load(context.Background())

	if _, ok := p.Count(); ok {
		t.Error("count should stay undefined when nothing was ever loaded")
	}
	vm := p.Snapshot()
	if vm.Loading {
		t.Error("failed presenter should not report loading")
	}
	if vm.Error != "network down" {
		t.Errorf("unexpected error text %q", vm.Error)
	}
}

func TestPresenter_RefreshReplacesDataAndResetsWindow(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		if calls.Add(1) == 1 {
			return linked(5, "old"), nil
		}
		return linked(3, "new"), nil
	})
	p := New(fetcher, nil, Options{RecordsToDisplay: 2})

	p.Load(context.Background())
	p.ViewAll()
	p.Refresh(context.Background())

	vm := p.Snapshot()
	if vm.Window != "collapsed" {
		t.Errorf("expected collapsed after refresh, got %s", vm.Window)
	}
	if vm.Evidences[0].ID != "new1" || *vm.Total != 3 {
		t.Errorf("expected new data, got first=%s total=%d", vm.Evidences[0].ID, *vm.Total)
	}
}

func TestPresenter_RefreshNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	p := New(staticFetcher(linked(1, "e")), notifier, Options{RecordsToDisplay: 2, NotifyOnRefresh: true})

	p.Load(context.Background())
	if len(notifier.all()) != 0 {
		t.Fatal("initial load should not notify")
	}

	p.Refresh(context.Background())
	got := notifier.all()
	if len(got) != 1 || got[0].severity != SeveritySuccess {
		t.Errorf("expected one success notification, got %+v", got)
	}
}

func TestPresenter_StaleFetchIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return linked(4, "stale"), nil
		}
		return linked(2, "fresh"), nil
	})
	p := New(fetcher, nil, Options{RecordsToDisplay: 5})

	done := make(chan struct{})
	go func() {
		p.Refresh(context.Background())
		close(done)
	}()

	<-started
	p.Refresh(context.Background())
	close(release)
	<-done

	vm := p.Snapshot()
	if *vm.Total != 2 || vm.Evidences[0].ID != "fresh1" {
		t.Errorf("expected the latest fetch to win, got total=%d first=%s", *vm.Total, vm.Evidences[0].ID)
	}
	if vm.State != "loaded" {
		t.Errorf("expected loaded, got %s", vm.State)
	}
}

func TestPresenter_SetMatchIDRefetchesOnChange(t *testing.T) {
	var requested []string
	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		requested = append(requested, matchID)
		return linked(1, matchID), nil
	})
	p := New(fetcher, nil, Options{RecordsToDisplay: 2})

	if !p.SetMatchID(context.Background(), "m1") {
		t.Error("expected first bind to fetch")
	}
	if p.SetMatchID(context.Background(), "m1") {
		t.Error("expected unchanged id to be a no-op")
	}
	if !p.SetMatchID(context.Background(), "m2") {
		t.Error("expected changed id to fetch")
	}

	if len(requested) != 2 || requested[0] != "m1" || requested[1] != "m2" {
		t.Errorf("unexpected fetches %v", requested)
	}
	if p.MatchID() != "m2" || p.Snapshot().Evidences[0].ID != "m21" {
		t.Errorf("expected evidences for m2, got %s", p.Snapshot().Evidences[0].ID)
	}
}

func TestPresenter_OpenSource(t *testing.T) {
	notifier := &recordingNotifier{}
	opener := &recordingOpener{}
	p := New(staticFetcher(linked(3, "e")), notifier, Options{RecordsToDisplay: 2, Opener: opener})
	p.Load(context.Background())

	url, ok := p.OpenSource("e1")
	if !ok || url != "https://example.com/e/1" {
		t.Errorf("expected e1 link, got %q ok=%v", url, ok)
	}
	if len(opener.urls) != 1 || opener.urls[0] != url {
		t.Errorf("expected opener to receive %q, got %v", url, opener.urls)
	}

	// e3 exists but is hidden while collapsed
	if _, ok := p.OpenSource("e3"); ok {
		t.Error("expected hidden evidence to be not found")
	}
	if _, ok := p.OpenSource("missing"); ok {
		t.Error("expected unknown evidence to be not found")
	}
	if len(opener.urls) != 1 {
		t.Errorf("not-found lookups must not open anything, got %v", opener.urls)
	}

	got := notifier.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	for _, n := range got {
		if n.severity != SeverityWarning || n.title != "Not found" {
			t.Errorf("unexpected notification %+v", n)
		}
	}

	p.ViewAll()
	if _, ok := p.OpenSource("e3"); !ok {
		t.Error("expected e3 to open once expanded")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(model.ViewConfig{ListTitle: "Sources", RecordsToDisplay: 4, LinesToClamp: 2, NotifyOnRefresh: true})
	if opts.ListTitle != "Sources" || opts.RecordsToDisplay != 4 || opts.LinesToClamp != 2 || !opts.NotifyOnRefresh {
		t.Errorf("unexpected options %+v", opts)
	}
}

// cachingFetcher serves the first result until invalidated
type cachingFetcher struct {
	backendCalls int
	invalidated  []string
	cached       []model.Evidence
}

func (f *cachingFetcher) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	if f.cached != nil {
		return f.cached, nil
	}
	f.backendCalls++
	f.cached = linked(f.backendCalls, "v")
	return f.cached, nil
}

func (f *cachingFetcher) Invalidate(matchID string) {
	f.invalidated = append(f.invalidated, matchID)
	f.cached = nil
}

func TestPresenter_ManualRefreshInvalidatesCache(t *testing.T) {
	fetcher := &cachingFetcher{}
	p := New(fetcher, nil, Options{RecordsToDisplay: 5})

	p.SetMatchID(context.Background(), "m1")
	if len(fetcher.invalidated) != 0 {
		t.Errorf("initial load should use the cache, invalidated %v", fetcher.invalidated)
	}

	p.Refresh(context.Background())
	if fetcher.backendCalls != 2 {
		t.Fatalf("expected refresh to reach the backend, got %d call(s)", fetcher.backendCalls)
	}
	if len(fetcher.invalidated) != 1 || fetcher.invalidated[0] != "m1" {
		t.Errorf("expected m1 to be invalidated once, got %v", fetcher.invalidated)
	}
	if n, _ := p.Count(); n != 2 {
		t.Errorf("expected refreshed list of 2, got %d", n)
	}
}

func TestPresenter_CountUndefinedWhileRefreshing(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		if calls.Add(1) == 2 {
			close(started)
			<-release
		}
		return linked(3, "e"), nil
	})
	p := New(fetcher, nil, Options{RecordsToDisplay: 2})
	p.Load(context.Background())
	if _, ok := p.Count(); !ok {
		t.Fatal("count should be defined after the first load")
	}

	done := make(chan struct{})
	go func() {
		p.Refresh(context.Background())
		close(done)
	}()
	<-started

	if _, ok := p.Count(); ok {
		t.Error("count should be undefined while a refresh is in flight")
	}
	vm := p.Snapshot()
	if !vm.Loading || vm.Total != nil || vm.Title != "Evidences" {
		t.Errorf("expected loading snapshot without count, got loading=%v total=%v title=%q", vm.Loading, vm.Total, vm.Title)
	}

	close(release)
	<-done
	if n, ok := p.Count(); !ok || n != 3 {
		t.Errorf("expected count 3 after refresh, got %d (ok=%v)", n, ok)
	}
}

func TestPresenter_FailedMatchSwitchMarksListStale(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, matchID string) ([]model.Evidence, error) {
		if matchID == "m2" {
			return nil, errors.New("backend down")
		}
		return linked(2, matchID), nil
	})
	p := New(fetcher, nil, Options{RecordsToDisplay: 5})

	p.SetMatchID(context.Background(), "m1")
	vm := p.Snapshot()
	if vm.Stale || vm.ListMatchID != "m1" {
		t.Errorf("fresh list: stale=%v listMatchId=%q", vm.Stale, vm.ListMatchID)
	}

	p.SetMatchID(context.Background(), "m2")
	vm = p.Snapshot()
	if vm.MatchID != "m2" {
		t.Errorf("expected bound match m2, got %q", vm.MatchID)
	}
	if !vm.Stale || vm.ListMatchID != "m1" {
		t.Errorf("expected list of m1 marked stale, got stale=%v listMatchId=%q", vm.Stale, vm.ListMatchID)
	}
	if len(vm.Evidences) != 2 || vm.Evidences[0].ID != "m11" {
		t.Errorf("expected previous evidences kept, got %+v", vm.Evidences)
	}
}
