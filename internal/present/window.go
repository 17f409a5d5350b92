package present

import (
	"strconv"

	"github.com/ppiankov/evidenceview/internal/model"
)

// WindowState is the display-window state
type WindowState int

const (
	Collapsed WindowState = iota
	Expanded
)

func (s WindowState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Window controls how much of the ranked list is visible.
// It stores only the state; slices and labels are derived on read.
type Window struct {
	recordsToDisplay int
	state            WindowState
}

// NewWindow creates a collapsed window showing up to recordsToDisplay entries
func NewWindow(recordsToDisplay int) Window {
	if recordsToDisplay <= 0 {
		recordsToDisplay = 1
	}
	return Window{recordsToDisplay: recordsToDisplay}
}

// State returns the current window state
func (w *Window) State() WindowState {
	return w.state
}

// RecordsToDisplay returns the collapsed window size
func (w *Window) RecordsToDisplay() int {
	return w.recordsToDisplay
}

// CanViewAll reports whether expanding would show more entries.
// total must be the filtered count, not the raw fetch count.
func (w *Window) CanViewAll(total int) bool {
	return w.state == Collapsed && w.recordsToDisplay < total
}

// ViewAll expands the window. It is a no-op returning false when
// everything is already visible.
func (w *Window) ViewAll(total int) bool {
	if !w.CanViewAll(total) {
		return false
	}
	w.state = Expanded
	return true
}

// ShowLess collapses the window back to the first recordsToDisplay entries
func (w *Window) ShowLess() {
	w.state = Collapsed
}

// Reset returns the window to its initial state
func (w *Window) Reset() {
	w.state = Collapsed
}

// Shown returns how many entries are visible for a list of the given size
func (w *Window) Shown(total int) int {
	if w.state == Expanded {
		return total
	}
	return min(w.recordsToDisplay, total)
}

// Visible returns the visible prefix of the full list
func (w *Window) Visible(all []model.EvidenceView) []model.EvidenceView {
	return all[:w.Shown(len(all))]
}

// CountLabel formats the count shown next to the list title
func (w *Window) CountLabel(total int) string {
	shown := w.Shown(total)
	if w.state == Collapsed && shown < total {
		return strconv.Itoa(shown) + "+"
	}
	return strconv.Itoa(shown)
}
