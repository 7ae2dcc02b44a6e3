package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cbir/internal/account"
	"cbir/internal/config"
	"cbir/internal/feedback"
	"cbir/internal/gateway"
	"cbir/internal/journal"
	"cbir/internal/logging"
	"cbir/internal/notifications"
	"cbir/internal/poller"
	"cbir/internal/search"
	"cbir/internal/session"
	"cbir/internal/upload"
)

// ErrJournalDisabled is returned by History when the journal is off.
var ErrJournalDisabled = errors.New("activity journal is disabled")

// Option customizes App construction.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	sink       notifications.Sink
	out        io.Writer
	colorize   bool
	httpClient gateway.HTTPDoer
	store      session.Store
	pollerOpts []poller.Option
}

// WithLogger overrides the logger built from config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSink overrides the sink built from config.
func WithSink(sink notifications.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithConsole sets where console notifications are written.
func WithConsole(out io.Writer, colorize bool) Option {
	return func(o *options) {
		o.out = out
		o.colorize = colorize
	}
}

// WithHTTPClient overrides the gateway's HTTP client.
func WithHTTPClient(client gateway.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithSessionStore overrides the file-backed session store.
func WithSessionStore(store session.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithPollerOptions passes extra options to the error poller.
func WithPollerOptions(opts ...poller.Option) Option {
	return func(o *options) {
		o.pollerOpts = append(o.pollerOpts, opts...)
	}
}

// App is the client core assembled from config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Sessions session.Store
	Gateway  *gateway.Client
	Sink     notifications.Sink
	Journal  *journal.Store

	Search   *search.Controller
	Upload   *upload.Controller
	Feedback *feedback.Controller
	Account  *account.Controller
	Poller   *poller.Poller
}

// New builds an App from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		built, err := logging.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("app: build logger: %w", err)
		}
		logger = built
	}

	store := o.store
	if store == nil {
		store = session.NewFileStore(cfg.Session.Path)
	}

	gatewayOpts := []gateway.Option{
		gateway.WithTimeout(cfg.RequestTimeout()),
		gateway.WithLogger(logger),
	}
	if o.httpClient != nil {
		gatewayOpts = append(gatewayOpts, gateway.WithHTTPClient(o.httpClient))
	}
	client, err := gateway.New(cfg.Backend.BaseURL, gatewayOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	sink := o.sink
	if sink == nil {
		sink = notifications.NewSink(cfg, o.out, o.colorize, logger)
	}
	sink = notifications.Logged(sink, logger)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: store,
		Gateway:  client,
		Sink:     sink,
	}

	var recorder journal.Recorder
	if cfg.Journal.Enabled {
		js, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Journal = js
		recorder = journal.Logged(js, logger)
	}

	a.Feedback = feedback.New(client,
		feedback.WithLogger(logger),
		feedback.WithSink(sink),
		feedback.WithJournal(recorder),
	)

	searchOpts := []search.Option{
		search.WithLogger(logger),
		search.WithSink(sink),
		search.WithJournal(recorder),
		search.WithObserver(a.resetFeedback),
	}
	if cfg.Session.PersonalizeSearch {
		searchOpts = append(searchOpts, search.WithSession(store))
	}
	a.Search = search.New(client, searchOpts...)

	a.Upload = upload.New(client, store,
		upload.WithLogger(logger),
		upload.WithSink(sink),
		upload.WithJournal(recorder),
		upload.WithRequireAuth(cfg.Session.RequireAuthForUpload),
	)

	a.Account = account.New(client, store,
		account.WithLogger(logger),
		account.WithSink(sink),
	)

	pollerOpts := append([]poller.Option{
		poller.WithLogger(logger),
		poller.WithInterval(cfg.PollInterval()),
	}, o.pollerOpts...)
	a.Poller = poller.New(client, sink, pollerOpts...)

	return a, nil
}

// resetFeedback gives every new result set fresh per-item state.
func (a *App) resetFeedback(view search.View) {
	a.Feedback.Load(view.Query, view.Filenames())
}

// History returns the most recent journal entries.
func (a *App) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if a.Journal == nil {
		return nil, ErrJournalDisabled
	}
	return a.Journal.Recent(ctx, limit)
}

// Close stops the poller and closes the journal.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Poller != nil {
		a.Poller.Stop()
	}
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
