package upload

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
	"cbir/internal/session"
)

const (
	notificationTitle = "Upload"

	msgNoFiles      = "Please select at least one file to upload."
	msgAuthRequired = "Please log in to upload files."
	msgAccepted     = "Files uploaded successfully!"
	msgRejected     = "Failed to upload files."
	msgUnreachable  = "Error uploading files."
)

// State is the lifecycle of the current batch.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
)

// Options are the per-batch processing flags.
type Options struct {
	RedactFaces bool
	RedactText  bool
}

// Outcome describes how a batch settled.
type Outcome struct {
	Accepted     bool
	Message      string
	ValidFiles   []string
	InvalidFiles []string
}

// Status is a snapshot of the current batch.
type Status struct {
	State   State
	Files   int
	Message string
}

// Backend is the subset of the gateway the controller needs.
type Backend interface {
	Upload(ctx context.Context, req gateway.UploadRequest) (gateway.UploadResult, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "upload")
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

// WithJournal records every settled batch.
func WithJournal(recorder journal.Recorder) Option {
	return func(c *Controller) {
		c.journal = recorder
	}
}

// WithRequireAuth controls whether a session is required before submitting.
func WithRequireAuth(required bool) Option {
	return func(c *Controller) {
		c.requireAuth = required
	}
}

// Controller validates and submits upload batches.
type Controller struct {
	backend     Backend
	sessions    session.Store
	sink        notifications.Sink
	journal     journal.Recorder
	logger      *slog.Logger
	requireAuth bool

	mu     sync.Mutex
	status Status
}

// New constructs a Controller. Uploads require a session unless
// WithRequireAuth(false) is given.
func New(backend Backend, sessions session.Store, opts ...Option) *Controller {
	c := &Controller{
		backend:     backend,
		sessions:    sessions,
		sink:        notifications.Noop{},
		logger:      logging.NewComponentLogger(nil, "upload"),
		requireAuth: true,
		status:      Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current batch snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Submit validates files and sends them as one batch.
func (c *Controller) Submit(ctx context.Context, files []gateway.UploadFile, opts Options) (Outcome, error) {
	subject := describeBatch(files)

	token, err := c.token(ctx)
	if err != nil {
		return c.reject(ctx, subject, len(files), err, err.Error())
	}
	if token == "" && c.requireAuth {
		err := services.Wrap(services.ErrAuthRequired, gateway.OpUpload, msgAuthRequired, nil)
		return c.reject(ctx, subject, len(files), err, msgAuthRequired)
	}
	if len(files) == 0 {
		err := services.Validation(gateway.OpUpload, msgNoFiles)
		return c.reject(ctx, subject, 0, err, msgNoFiles)
	}

	c.setStatus(Status{State: StateSubmitting, Files: len(files)})
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("submitting upload batch",
		"files", len(files),
		"redact_faces", opts.RedactFaces,
		"redact_text", opts.RedactText,
	)

	result, err := c.backend.Upload(ctx, gateway.UploadRequest{
		Files:        files,
		SessionToken: token,
		RedactFaces:  opts.RedactFaces,
		RedactText:   opts.RedactText,
	})
	if err != nil {
		message := msgRejected
		var backendErr *services.BackendError
		switch {
		case errors.As(err, &backendErr):
			message = services.UserMessage(err, msgRejected)
		case errors.Is(err, services.ErrTransport):
			message = msgUnreachable + " " + services.UserMessage(err, "")
		}
		logger.Warn("upload rejected", "kind", services.Kind(err), logging.Error(err))
		return c.reject(ctx, subject, len(files), err, strings.TrimSpace(message))
	}

	outcome := Outcome{
		Accepted:     true,
		Message:      msgAccepted,
		ValidFiles:   result.ValidFiles,
		InvalidFiles: result.InvalidFiles,
	}
	event := notifications.Success(notificationTitle, msgAccepted)
	if len(result.InvalidFiles) > 0 {
		outcome.Message = fmt.Sprintf("%s Skipped invalid files: %s", msgAccepted, strings.Join(result.InvalidFiles, ", "))
		event = notifications.Warning(notificationTitle, outcome.Message)
	}
	c.setStatus(Status{State: StateAccepted, Files: len(files), Message: outcome.Message})
	logger.Info("upload accepted", "valid", len(result.ValidFiles), "invalid", len(result.InvalidFiles))

	c.notify(ctx, event)
	c.record(ctx, journal.NewEntry(journal.KindUpload, subject, outcome.Message, nil))
	return outcome, nil
}

func (c *Controller) reject(ctx context.Context, subject string, files int, err error, message string) (Outcome, error) {
	c.setStatus(Status{State: StateRejected, Files: files, Message: message})
	c.notify(ctx, notifications.Failure(notificationTitle, message))
	c.record(ctx, journal.NewEntry(journal.KindUpload, subject, "", err))
	return Outcome{Message: message}, err
}

func (c *Controller) token(ctx context.Context) (string, error) {
	if c.sessions == nil {
		return "", nil
	}
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("upload: read session: %w", err)
	}
	return sess.Token, nil
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
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

func describeBatch(files []gateway.UploadFile) string {
	switch len(files) {
	case 0:
		return "no files"
	case 1:
		return files[0].Name
	default:
		return fmt.Sprintf("%d files", len(files))
	}
}
