// Demo program walking a presenter through its window and refresh states
// against an in-memory evidence backend
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/evidenceview/internal/model"
	"github.com/ppiankov/evidenceview/internal/notify"
	"github.com/ppiankov/evidenceview/internal/present"
	"github.com/ppiankov/evidenceview/internal/render"
)

// slowBackend answers each call after a delay, failing when asked to
type slowBackend struct {
	mu        sync.Mutex
	delays    []time.Duration
	failNext  bool
	evidences []model.Evidence
}

func (b *slowBackend) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	b.mu.Lock()
	delay := time.Duration(0)
	if len(b.delays) > 0 {
		delay, b.delays = b.delays[0], b.delays[1:]
	}
	fail := b.failNext
	b.failNext = false
	evidences := b.evidences
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}
	if fail {
		return nil, errors.New("evidence service unavailable")
	}
	return evidences, nil
}

func main() {
	fmt.Println("=== Evidence Window Demo ===")
	fmt.Println()

	backend := &slowBackend{evidences: []model.Evidence{
		{ID: "e1", Credibility: "low", OriginalURL: "https://news.example.com/a", Source: "Daily Ledger"},
		{ID: "e2", Title: "OFAC SDN listing", Credibility: "high", OriginalURL: "https://sanctions.example.gov/sdn"},
		{ID: "e3", Title: "Court filing", OriginalURL: "https://courts.example.org/case/42"},
		{ID: "e4", Title: "Press release without link", Credibility: "high"},
		{ID: "e5", Credibility: "medium", OriginalURL: "https://registry.example.com/company/7"},
	}}

	renderer := render.NewRenderer("text", true)
	p := present.New(backend, notify.NewConsoleSink(os.Stdout), present.Options{
		RecordsToDisplay: 2,
		LinesToClamp:     2,
		NotifyOnRefresh:  true,
		Opener:           notify.NewWriterOpener(os.Stdout),
	})

	ctx := context.Background()
	step := func(name string) {
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println(name)
		fmt.Println(strings.Repeat("-", 60))
		_ = renderer.Render(os.Stdout, p.Snapshot())
		fmt.Println()
	}

	p.SetMatchID(ctx, "a0X5g000001")
	step("Initial load (collapsed)")

	p.ViewAll()
	step("View all")

	p.OpenSource("e3")
	p.ShowLess()
	p.OpenSource("e1")
	step("Show less (e1 is hidden again)")

	// Two overlapping refreshes: the first finishes last and must be ignored
	backend.mu.Lock()
	backend.delays = []time.Duration{300 * time.Millisecond, 50 * time.Millisecond}
	backend.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Refresh(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	p.Refresh(ctx)
	wg.Wait()
	step("Overlapping refreshes (only the latest commits)")

	backend.mu.Lock()
	backend.failNext = true
	backend.mu.Unlock()
	p.Refresh(ctx)
	step("Failed refresh (previous evidences kept)")
}
