package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cbir/internal/gateway"
	"cbir/internal/journal"
	"cbir/internal/logging"
	"cbir/internal/notifications"
	"cbir/internal/services"
)

const (
	titleVote     = "Feedback"
	titleAnnotate = "Annotation"

	msgVoteFailed     = "Error sending feedback"
	msgVoteAccepted   = "Feedback received"
	msgEmptySentence  = "Please enter a sentence for this image."
	msgSentenceSaved  = "Sentence received"
	msgMissingFile    = "A filename is required."
	msgInvalidVote    = "Vote must be positive or negative."
	msgUnknownFailure = "Unknown error"
)

// ItemState is the local feedback state of one result.
type ItemState struct {
	Vote gateway.Vote
	Note string
}

type item struct {
	ItemState
	voteGen uint64
}

// Backend is the subset of the gateway the controller needs.
type Backend interface {
	Vote(ctx context.Context, filename string, vote gateway.Vote, query string) (string, error)
	Annotate(ctx context.Context, filename, sentence string) (string, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "feedback")
	}
}

// WithSink routes outcomes to sink.
func WithSink(sink notifications.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithJournal records every settled vote and annotation.
func WithJournal(recorder journal.Recorder) Option {
	return func(c *Controller) {
		c.journal = recorder
	}
}

// Controller owns vote and note state for the current result set.
type Controller struct {
	backend Backend
	sink    notifications.Sink
	journal journal.Recorder
	logger  *slog.Logger

	mu    sync.Mutex
	query string
	items map[string]*item
}

// New constructs a Controller over backend.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		sink:    notifications.Noop{},
		logger:  logging.NewComponentLogger(nil, "feedback"),
		items:   make(map[string]*item),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load resets per-item state for a new result set produced by query.
func (c *Controller) Load(query string, filenames []string) {
	items := make(map[string]*item, len(filenames))
	for _, name := range filenames {
		items[name] = &item{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
	c.items = items
}

// Query returns the query the current result set belongs to.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Item returns the local state for filename.
func (c *Controller) Item(filename string) ItemState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[filename]; ok {
		return it.ItemState
	}
	return ItemState{}
}

// SetNote replaces the local draft note for filename.
func (c *Controller) SetNote(filename, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemLocked(filename).Note = text
}

// Note returns the local draft note for filename.
func (c *Controller) Note(filename string) string {
	return c.Item(filename).Note
}

// Vote records vote for filename under the current query.
func (c *Controller) Vote(ctx context.Context, filename string, vote gateway.Vote) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", c.rejectVote(ctx, filename, vote, services.Validation(gateway.OpVote, msgMissingFile))
	}
	if !vote.Valid() {
		return "", c.rejectVote(ctx, filename, vote, services.Validation(gateway.OpVote, msgInvalidVote))
	}

	c.mu.Lock()
	it := c.itemLocked(filename)
	previous := it.Vote
	it.voteGen++
	gen := it.voteGen
	it.Vote = vote
	query := c.query
	c.mu.Unlock()

	logger := logging.WithContext(ctx, c.logger).With(logging.FieldFilename, filename)
	message, err := c.backend.Vote(ctx, filename, vote, query)
	if err != nil {
		c.mu.Lock()
		if current, ok := c.items[filename]; ok && current == it && it.voteGen == gen {
			it.Vote = previous
		}
		c.mu.Unlock()

		logger.Warn("vote failed", "vote", string(vote), "kind", services.Kind(err), logging.Error(err))
		c.notify(ctx, notifications.Failure(titleVote, services.UserMessage(err, msgVoteFailed)))
		c.record(ctx, journal.NewEntry(journal.KindVote, filename, string(vote), err))
		return "", err
	}

	if strings.TrimSpace(message) == "" {
		message = msgVoteAccepted
	}
	logger.Info("vote recorded", "vote", string(vote))
	c.notify(ctx, notifications.Success(titleVote, message))
	c.record(ctx, journal.NewEntry(journal.KindVote, filename, string(vote), nil))
	return message, nil
}

func (c *Controller) rejectVote(ctx context.Context, filename string, vote gateway.Vote, err error) error {
	c.notify(ctx, notifications.Warning(titleVote, services.UserMessage(err, msgVoteFailed)))
	c.record(ctx, journal.NewEntry(journal.KindVote, filename, string(vote), err))
	return err
}

// Annotate sends text as a free-text sentence for filename. On success the
// local note is cleared; on failure it is set to text so the user can retry.
func (c *Controller) Annotate(ctx context.Context, filename, text string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		err := services.Validation(gateway.OpAnnotate, msgMissingFile)
		c.notify(ctx, notifications.Warning(titleAnnotate, msgMissingFile))
		c.record(ctx, journal.NewEntry(journal.KindAnnotate, filename, "", err))
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		err := services.Validation(gateway.OpAnnotate, msgEmptySentence)
		c.notify(ctx, notifications.Warning(titleAnnotate, msgEmptySentence))
		c.record(ctx, journal.NewEntry(journal.KindAnnotate, filename, "", err))
		return "", err
	}

	c.mu.Lock()
	it := c.itemLocked(filename)
	c.mu.Unlock()

	logger := logging.WithContext(ctx, c.logger).With(logging.FieldFilename, filename)
	message, err := c.backend.Annotate(ctx, filename, text)

	// A Load while the request was in flight replaced the item; leave the new
	// result set alone.
	c.mu.Lock()
	if current, ok := c.items[filename]; ok && current == it {
		if err != nil {
			it.Note = text
		} else {
			it.Note = ""
		}
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warn("annotation failed", "kind", services.Kind(err), logging.Error(err))
		c.notify(ctx, notifications.Failure(titleAnnotate, annotateFailureMessage(err)))
		c.record(ctx, journal.NewEntry(journal.KindAnnotate, filename, text, err))
		return "", err
	}

	if strings.TrimSpace(message) == "" {
		message = msgSentenceSaved
	}
	logger.Info("annotation recorded")
	c.notify(ctx, notifications.Success(titleAnnotate, message))
	c.record(ctx, journal.NewEntry(journal.KindAnnotate, filename, text, nil))
	return message, nil
}

// SubmitNote annotates filename with its current local draft.
func (c *Controller) SubmitNote(ctx context.Context, filename string) (string, error) {
	return c.Annotate(ctx, filename, c.Note(filename))
}

func (c *Controller) itemLocked(filename string) *item {
	it, ok := c.items[filename]
	if !ok {
		it = &item{}
		c.items[filename] = it
	}
	return it
}

func annotateFailureMessage(err error) string {
	var backendErr *services.BackendError
	if errors.As(err, &backendErr) {
		msg := strings.TrimSpace(backendErr.Message)
		if msg == "" {
			msg = msgUnknownFailure
		}
		return fmt.Sprintf("Server Error (%d): %s", backendErr.Status, msg)
	}
	return services.UserMessage(err, "Error sending sentence")
}

func (c *Controller) notify(ctx context.Context, event notifications.Event) {
	if err := c.sink.Notify(ctx, event); err != nil {
		c.logger.Warn("notification failed", logging.Error(err))
	}
}

func (c *Controller) record(ctx context.Context, entry journal.Entry) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, entry); err != nil {
		c.logger.Warn("journal write failed", logging.Error(err))
	}
}
