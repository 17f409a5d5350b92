package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/present"
)

// LogSink writes notifications to the structured logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink backed by logger
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Notify logs the message at a level matching its severity
func (s *LogSink) Notify(title, message string, severity present.Severity) {
	fields := []zap.Field{zap.String("title", title), zap.String("severity", string(severity))}
	switch severity {
	case present.SeverityError:
		s.logger.Error(message, fields...)
	case present.SeverityWarning:
		s.logger.Warn(message, fields...)
	default:
		s.logger.Info(message, fields...)
	}
}

// ConsoleSink prints notifications for a human reader
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a sink printing to w
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Notify prints one line per notification
func (s *ConsoleSink) Notify(title, message string, severity present.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "%s %s: %s\n", marker(severity), title, message)
}

func marker(severity present.Severity) string {
	switch severity {
	case present.SeverityError:
		return "✗"
	case present.SeverityWarning:
		return "⚠️ "
	default:
		return "✓"
	}
}

// Multi fans a notification out to several sinks
type Multi []present.Notifier

// Notify forwards to every non-nil sink
func (m Multi) Notify(title, message string, severity present.Severity) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, message, severity)
		}
	}
}

// Notification is a recorded notification
type Notification struct {
	Title    string
	Message  string
	Severity present.Severity
}

// Recorder keeps notifications in memory
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Notify records the notification
func (r *Recorder) Notify(title, message string, severity present.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Title: title, Message: message, Severity: severity})
}

// Notifications returns a copy of everything recorded so far
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
