package present

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/evidenceview/internal/model"
)

const credibilitySuffix = " Credibility"

// Build runs the full display pipeline over a fetched evidence list:
// normalize, drop unlinked records, rank by credibility, then number
// untitled entries by their final position.
func Build(raw []model.Evidence) []model.EvidenceView {
	return Rank(FilterLinked(Normalize(raw)))
}

// Normalize rewrites credibility labels for display. Output has the same
// length and order as the input; titles are left for Rank to fill.
func Normalize(raw []model.Evidence) []model.EvidenceView {
	out := make([]model.EvidenceView, len(raw))
	for i, ev := range raw {
		view := model.EvidenceView{
			Evidence: ev,
			Tier:     model.ParseCredibility(ev.Credibility),
		}
		view.Credibility = credibilityLabel(ev.Credibility)
		out[i] = view
	}
	return out
}

// credibilityLabel upper-cases the first rune and appends the suffix.
// The remainder of the value is kept as supplied.
func credibilityLabel(raw string) string {
	if raw == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(raw)
	return string(unicode.ToUpper(r)) + raw[size:] + credibilitySuffix
}

// FilterLinked keeps only evidences with a non-blank source link,
// preserving order
func FilterLinked(views []model.EvidenceView) []model.EvidenceView {
	out := make([]model.EvidenceView, 0, len(views))
	for _, v := range views {
		if v.HasLink() {
			out = append(out, v)
		}
	}
	return out
}

// Rank stable-sorts by credibility tier and synthesizes missing titles
// from the post-sort position. The input slice is not modified.
func Rank(views []model.EvidenceView) []model.EvidenceView {
	out := slices.Clone(views)
	slices.SortStableFunc(out, func(a, b model.EvidenceView) int {
		return int(a.Tier) - int(b.Tier)
	})

	for i := range out {
		if strings.TrimSpace(out[i].Title) == "" {
			out[i].Title = fmt.Sprintf("Evidence #%d", i+1)
		}
	}
	return out
}
