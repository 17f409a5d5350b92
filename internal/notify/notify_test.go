package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/evidenceview/internal/present"
)

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	sink.Notify("Error", "backend down", present.SeverityError)
	sink.Notify("Not found", "evidence not found: e9", present.SeverityWarning)
	sink.Notify("Success", "Evidences refreshed", present.SeveritySuccess)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "✗ Error: backend down") {
		t.Errorf("unexpected error line %q", lines[0])
	}
	if !strings.Contains(lines[1], "Not found: evidence not found: e9") {
		t.Errorf("unexpected warning line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "✓ Success") {
		t.Errorf("unexpected success line %q", lines[2])
	}
}

func TestLogSink_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	sink.Notify("Error", "a", present.SeverityError)
	sink.Notify("Not found", "b", present.SeverityWarning)
	sink.Notify("Success", "c", present.SeveritySuccess)

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	want := []string{"error", "warn", "info"}
	for i, e := range entries {
		if e.Level.String() != want[i] {
			t.Errorf("entry %d: expected level %s, got %s", i, want[i], e.Level)
		}
	}
	if entries[0].ContextMap()["title"] != "Error" {
		t.Errorf("expected title field, got %v", entries[0].ContextMap())
	}
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.Notify("Error", "x", present.SeverityError)

	for _, r := range []*Recorder{a, b} {
		got := r.Notifications()
		if len(got) != 1 || got[0].Message != "x" || got[0].Severity != present.SeverityError {
			t.Errorf("unexpected notifications %+v", got)
		}
	}
}

func TestWriterOpener(t *testing.T) {
	var buf bytes.Buffer
	NewWriterOpener(&buf).OpenExternal("https://example.com/a")
	if buf.String() != "→ https://example.com/a\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestClipboardOpener_FallsBackToWriter(t *testing.T) {
	orig := clipboardWrite
	clipboardWrite = func(string) error { return errors.New("no clipboard") }
	defer func() { clipboardWrite = orig }()

	var buf bytes.Buffer
	NewClipboardOpener(&buf, nil).OpenExternal("https://example.com/a")
	if !strings.Contains(buf.String(), "https://example.com/a") {
		t.Errorf("expected link to be printed, got %q", buf.String())
	}
}

func TestClipboardOpener_Copies(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("clipboard unsupported on this platform")
	}

	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error { copied = s; return nil }
	defer func() { clipboardWrite = orig }()

	var buf bytes.Buffer
	NewClipboardOpener(&buf, nil).OpenExternal("https://example.com/b")
	if copied != "https://example.com/b" {
		t.Errorf("expected link copied, got %q", copied)
	}
	if !strings.Contains(buf.String(), "copied to clipboard") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
