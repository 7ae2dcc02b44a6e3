package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cbir/internal/config"
	"cbir/internal/logging"
)

// Level classifies an event for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one user-facing notification.
type Event struct {
	Level   Level
	Title   string
	Message string
	Tags    []string
}

// HasTag reports whether the event carries tag.
func (e Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (e Event) String() string {
	if e.Title == "" {
		return e.Message
	}
	return e.Title + ": " + e.Message
}

// Sink receives events from controllers and the error poller.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Info builds an informational event.
func Info(title, message string) Event {
	return Event{Level: LevelInfo, Title: title, Message: message}
}

// Success builds a success event.
func Success(title, message string) Event {
	return Event{Level: LevelSuccess, Title: title, Message: message}
}

// Warning builds a warning event.
func Warning(title, message string) Event {
	return Event{Level: LevelWarning, Title: title, Message: message}
}

// Failure builds an error event.
func Failure(title, message string) Event {
	return Event{Level: LevelError, Title: title, Message: message, Tags: []string{"error"}}
}

// TagProcessing marks events raised for backend processing errors.
const TagProcessing = "processing"

// ProcessingFailure builds the event for an asynchronous backend error on file.
func ProcessingFailure(file, reason string) Event {
	file = strings.TrimSpace(file)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return Event{
		Level:   LevelError,
		Title:   "Processing error",
		Message: fmt.Sprintf("%s: %s", file, reason),
		Tags:    []string{TagProcessing, "error"},
	}
}

// TestEvent is the payload sent by `cbir test-notify`.
func TestEvent() Event {
	return Event{
		Level:   LevelInfo,
		Title:   "cbir - Test",
		Message: "Notification system test",
		Tags:    []string{"test"},
	}
}

// Multi delivers every event to each sink in order and joins their errors.
type Multi []Sink

// Notify fans event out to every sink.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop discards events.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, Event) error { return nil }

// NewSink builds the sink described by cfg. Console output goes to out; ntfy
// is added when a topic is configured. With neither, a Noop is returned.
func NewSink(cfg *config.Config, out io.Writer, colorize bool, logger *slog.Logger) Sink {
	if cfg == nil {
		return Noop{}
	}
	var sinks Multi
	if cfg.Notifications.Console && out != nil {
		sinks = append(sinks, NewConsole(out, colorize))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		sinks = append(sinks, NewNtfy(topic,
			WithNtfyTimeout(cfg.NotifyTimeout()),
			WithDedupWindow(cfg.DedupWindow()),
			WithNtfyLogger(logger),
		))
	}
	switch len(sinks) {
	case 0:
		return Noop{}
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

// Logged wraps sink so delivery failures are logged instead of returned.
// Controllers use it because a failed notification never changes an
// operation's outcome.
func Logged(sink Sink, logger *slog.Logger) Sink {
	if sink == nil {
		sink = Noop{}
	}
	logger = logging.NewComponentLogger(logger, "notifications")
	return SinkFunc(func(ctx context.Context, event Event) error {
		if err := sink.Notify(ctx, event); err != nil {
			logger.Warn("notification delivery failed", "title", event.Title, logging.Error(err))
		}
		return nil
	})
}
