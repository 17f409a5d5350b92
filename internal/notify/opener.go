package notify

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// WriterOpener prints the link so the user can follow it
type WriterOpener struct {
	w io.Writer
}

// NewWriterOpener creates an opener printing to w
func NewWriterOpener(w io.Writer) *WriterOpener {
	return &WriterOpener{w: w}
}

// OpenExternal prints url
func (o *WriterOpener) OpenExternal(url string) {
	_, _ = fmt.Fprintf(o.w, "→ %s\n", url)
}

// clipboardWrite is swapped in tests; CI machines rarely have a clipboard
var clipboardWrite = clipboard.WriteAll

// ClipboardOpener copies the link to the system clipboard and prints it.
// When no clipboard is available only the printed link remains.
type ClipboardOpener struct {
	fallback *WriterOpener
	logger   *zap.Logger
}

// NewClipboardOpener creates an opener that also prints to w
func NewClipboardOpener(w io.Writer, logger *zap.Logger) *ClipboardOpener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClipboardOpener{fallback: NewWriterOpener(w), logger: logger}
}

// OpenExternal copies url to the clipboard
func (o *ClipboardOpener) OpenExternal(url string) {
	if clipboard.Unsupported {
		o.fallback.OpenExternal(url)
		return
	}
	if err := clipboardWrite(url); err != nil {
		o.logger.Debug("clipboard unavailable", zap.Error(err))
		o.fallback.OpenExternal(url)
		return
	}
	_, _ = fmt.Fprintf(o.fallback.w, "→ %s (copied to clipboard)\n", url)
}
