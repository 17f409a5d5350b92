package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/evidenceview/internal/present"
)

// blockingViewer holds every view until release is closed or the
// context ends, tracking how many views run at once
type blockingViewer struct {
	release chan struct{}
	running atomic.Int32
	peak    atomic.Int32
	started atomic.Int32
}

func (v *blockingViewer) View(ctx context.Context, matchID string) (present.ViewModel, error) {
	v.started.Add(1)
	n := v.running.Add(1)
	defer v.running.Add(-1)
	for {
		p := v.peak.Load()
		if n <= p || v.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-v.release:
		return present.ViewModel{MatchID: matchID}, nil
	case <-ctx.Done():
		return present.ViewModel{MatchID: matchID}, ctx.Err()
	}
}

func viewJobs(viewer Viewer, n int) []*ViewJob {
	jobs := make([]*ViewJob, n)
	for i := range jobs {
		jobs[i] = &ViewJob{Index: i, MatchID: fmt.Sprintf("m%d", i), Viewer: viewer}
	}
	return jobs
}

func TestNewPool_WorkerCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{4, 4},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if p := NewPool(context.Background(), tt.in); p.workers != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.in, p.workers, tt.want)
		}
	}
}

func TestPool_RunsViewJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	for _, job := range viewJobs(&mockViewer{failFor: "m2"}, 6) {
		if !pool.Submit(job) {
			t.Fatalf("submit %s rejected", job.MatchID)
		}
	}

	results := pool.Wait()
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}

	seen := make(map[string]bool)
	for _, res := range results {
		r := res.(*ViewResult)
		seen[r.MatchID] = true
		if (r.GetError() != nil) != (r.MatchID == "m2") {
			t.Errorf("%s: unexpected error state %v", r.MatchID, r.GetError())
		}
		if r.Error == nil && r.View.MatchID != r.MatchID {
			t.Errorf("%s: view belongs to %s", r.MatchID, r.View.MatchID)
		}
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct matches, got %d", len(seen))
	}
}

// Submitting more jobs than the queue and result buffers hold must not
// block once the collector drains results
func TestPool_SubmitBeyondBuffers(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	done := make(chan []Result)
	go func() {
		for _, job := range viewJobs(&mockViewer{}, 40) {
			pool.Submit(job)
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != 40 {
			t.Errorf("expected 40 results, got %d", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	viewer := &blockingViewer{release: make(chan struct{})}
	pool := NewPool(context.Background(), 3)
	pool.Start()

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for _, job := range viewJobs(viewer, 12) {
			pool.Submit(job)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for viewer.started.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(viewer.release)
	<-submitted
	pool.Wait()

	if peak := viewer.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency %d exceeded 3 workers", peak)
	}
	if started := viewer.started.Load(); started != 12 {
		t.Errorf("expected 12 views, got %d", started)
	}
}

func TestPool_ShutdownCancelsRunningViews(t *testing.T) {
	viewer := &blockingViewer{release: make(chan struct{})}
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&ViewJob{MatchID: "m1", Viewer: viewer})

	deadline := time.Now().Add(time.Second)
	for viewer.started.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not interrupt the running view")
	}

	if pool.Submit(&ViewJob{MatchID: "m2", Viewer: viewer}) {
		t.Error("expected Submit after Shutdown to be rejected")
	}
}

func TestResultCollector(t *testing.T) {
	c := NewResultCollector()
	c.Add(&ViewResult{MatchID: "m1"})
	c.Add(&ViewResult{MatchID: "m2", Error: errors.New("backend down")})

	res := c.Results()
	if len(res) != 2 || res[1].GetError() == nil {
		t.Errorf("unexpected results %+v", res)
	}

	// Results returns a copy
	res[0] = nil
	if c.Results()[0] == nil {
		t.Error("expected collector contents to be unaffected by caller edits")
	}
}
