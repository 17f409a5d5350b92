package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/evidenceview/internal/linkcheck"
	"github.com/ppiankov/evidenceview/internal/present"
)

const wrapWidth = 76

// Renderer writes evidence views in the configured format
type Renderer struct {
	format  string
	verbose bool
}

// NewRenderer creates a renderer for "text", "json" or "markdown"
func NewRenderer(format string, verbose bool) *Renderer {
	if format == "" {
		format = "text"
	}
	return &Renderer{format: format, verbose: verbose}
}

// Render writes a single view
func (r *Renderer) Render(w io.Writer, vm present.ViewModel) error {
	switch r.format {
	case "json":
		return writeJSON(w, vm)
	case "markdown", "md":
		return Markdown(w, vm)
	case "text":
		return r.Text(w, vm)
	default:
		return fmt.Errorf("unknown output format: %s", r.format)
	}
}

// RenderLinks writes link check results for a view
func (r *Renderer) RenderLinks(w io.Writer, vm present.ViewModel, statuses []linkcheck.Status) error {
	if r.format == "json" {
		return writeJSON(w, struct {
			MatchID string             `json:"matchId"`
			Links   []linkcheck.Status `json:"links"`
		}{vm.MatchID, statuses})
	}

	titles := make(map[string]string, len(vm.Evidences))
	for _, ev := range vm.Evidences {
		titles[ev.ID] = ev.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: link check\n\n", vm.Title)
	for _, s := range statuses {
		fmt.Fprintf(&b, "%s %s\n    %s\n", linkMarker(s), titles[s.EvidenceID], s.URL)
		switch {
		case s.Disallowed:
			b.WriteString("    skipped: disallowed by robots.txt\n")
		case s.Error != "":
			fmt.Fprintf(&b, "    error: %s\n", s.Error)
		case s.StatusCode != 0:
			fmt.Fprintf(&b, "    status: %d\n", s.StatusCode)
		}
		if s.RedirectURL != "" {
			fmt.Fprintf(&b, "    redirected to: %s\n", s.RedirectURL)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func linkMarker(s linkcheck.Status) string {
	switch {
	case s.Accessible:
		return "✓"
	case s.Disallowed:
		return "–"
	case s.Dead:
		return "✗"
	default:
		return "⚠️"
	}
}

// Text writes a human readable card. Summaries are clamped to the
// configured number of wrapped lines.
func (r *Renderer) Text(w io.Writer, vm present.ViewModel) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", vm.Title)
	b.WriteString(strings.Repeat("─", len([]rune(vm.Title))) + "\n")

	switch {
	case vm.Loading:
		b.WriteString("Loading...\n")
	case vm.HasError && vm.Total == nil:
		fmt.Fprintf(&b, "✗ %s\n", vm.Error)
	case vm.Empty:
		b.WriteString("No evidences found\n")
	}

	for _, ev := range vm.Evidences {
		fmt.Fprintf(&b, "\n%s\n", ev.Title)

		var meta []string
		if ev.Credibility != "" {
			meta = append(meta, ev.Credibility)
		}
		if ev.Source != "" {
			meta = append(meta, ev.Source)
		}
		if ev.PublicationDate != "" {
			meta = append(meta, ev.PublicationDate)
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(meta, " · "))
		}

		for _, line := range Clamp(ev.Summary, wrapWidth, vm.LinesToClamp) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		if len(ev.Keywords) > 0 {
			fmt.Fprintf(&b, "  Keywords: %s\n", strings.Join(ev.Keywords, ", "))
		}
		fmt.Fprintf(&b, "  → %s\n", strings.TrimSpace(ev.OriginalURL))
		if r.verbose {
			fmt.Fprintf(&b, "  id: %s\n", ev.ID)
		}
	}

	if vm.HasError && vm.Total != nil {
		fmt.Fprintf(&b, "\n⚠️  Showing previous results: %s\n", vm.Error)
	}
	if vm.Stale {
		fmt.Fprintf(&b, "⚠️  Evidences above belong to match %s\n", vm.ListMatchID)
	}
	if vm.CanViewAll {
		b.WriteString("\n[View all]\n")
	} else if vm.CanShowLess {
		b.WriteString("\n[Show less]\n")
	}
	if r.verbose && vm.Total != nil {
		fmt.Fprintf(&b, "\n%d fetched, %d with source links, %d shown (%s)\n",
			vm.RawCount, *vm.Total, len(vm.Evidences), vm.Window)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown writes the view as a Markdown section
func Markdown(w io.Writer, vm present.ViewModel) error {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", vm.Title)
	if vm.HasError {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", vm.Error)
	}
	if vm.Stale {
		fmt.Fprintf(&b, "> Evidences below belong to match %s\n\n", vm.ListMatchID)
	}
	if vm.Empty {
		b.WriteString("_No evidences found._\n")
	}
	for _, ev := range vm.Evidences {
		fmt.Fprintf(&b, "### [%s](%s)\n\n", ev.Title, strings.TrimSpace(ev.OriginalURL))
		if ev.Credibility != "" {
			fmt.Fprintf(&b, "- **Credibility:** %s\n", ev.Credibility)
		}
		if ev.Source != "" {
			fmt.Fprintf(&b, "- **Source:** %s\n", ev.Source)
		}
		if ev.PublicationDate != "" {
			fmt.Fprintf(&b, "- **Published:** %s\n", ev.PublicationDate)
		}
		if ev.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", ev.Summary)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Clamp word-wraps text to width and keeps at most maxLines lines,
// marking truncation with an ellipsis. maxLines <= 0 keeps everything.
func Clamp(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] += "…"
	}
	return lines
}
