package search

import (
	"context"
	"log/slog"
	"strconv"
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
	msgEmptyQuery     = "Please enter a search query."
	msgSearchFailed   = "Failed to fetch images. Please try again."
	msgListAllFailed  = "Failed to fetch all images. Please try again."
	notificationTitle = "Search"
)

// State is the view state of the results area.
type State string

const (
	StateIdle      State = "idle"
	StateNoQuery   State = "no_query"
	StateLoading   State = "loading"
	StateResults   State = "results"
	StateNoResults State = "no_results"
	StateError     State = "error"
)

// Item is one rendered result.
type Item struct {
	Filename string
	Image    []byte
}

// View is a snapshot of what the shell should render.
type View struct {
	State   State
	Query   string
	Seq     uint64
	Items   []Item
	Message string
}

// Filenames returns the filenames of v's items in order.
func (v View) Filenames() []string {
	names := make([]string, len(v.Items))
	for i, item := range v.Items {
		names[i] = item.Filename
	}
	return names
}

// Backend is the subset of the gateway the controller needs.
type Backend interface {
	Search(ctx context.Context, req gateway.SearchRequest) ([]gateway.Item, error)
	ListAll(ctx context.Context) ([]gateway.Item, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "search")
	}
}

// WithSink routes user-facing failures to sink.
func WithSink(sink notifications.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithJournal records every settled query.
func WithJournal(recorder journal.Recorder) Option {
	return func(c *Controller) {
		c.journal = recorder
	}
}

// WithSession attaches the session token to searches when one is present.
func WithSession(store session.Store) Option {
	return func(c *Controller) {
		c.sessions = store
	}
}

// WithObserver registers fn to receive every view transition. Observers run
// while the controller's state lock is held and must not call back into the
// Controller.
func WithObserver(fn func(View)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// Controller sequences queries and reconciles their responses.
type Controller struct {
	backend   Backend
	sessions  session.Store
	sink      notifications.Sink
	journal   journal.Recorder
	logger    *slog.Logger
	observers []func(View)

	mu   sync.Mutex
	seq  uint64
	view View
}

// New constructs a Controller over backend.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		sink:    notifications.Noop{},
		logger:  logging.NewComponentLogger(nil, "search"),
		view:    View{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View returns the current view snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneView(c.view)
}

// Search issues text as the new active query. Blank text is rejected without
// a network call and leaves the view in StateNoQuery.
func (c *Controller) Search(ctx context.Context, text string) (View, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		err := services.Validation(gateway.OpSearch, msgEmptyQuery)
		view := c.transition(func(seq uint64) View {
			return View{State: StateNoQuery, Seq: seq, Message: msgEmptyQuery}
		})
		c.notify(ctx, notifications.Warning(notificationTitle, msgEmptyQuery))
		c.record(ctx, journal.NewEntry(journal.KindSearch, text, "", err))
		return view, err
	}

	view := c.transition(func(seq uint64) View {
		return View{State: StateLoading, Query: query, Seq: seq}
	})
	ctx = services.WithQuerySeq(ctx, view.Seq)

	req := gateway.SearchRequest{Query: query, SessionToken: c.sessionToken(ctx)}
	items, err := c.backend.Search(ctx, req)
	return c.settle(ctx, view.Seq, journal.KindSearch, query, items, err, msgSearchFailed)
}

// ListAll issues a list-all request as the new active query. It shares the
// sequence counter with Search, so either supersedes the other.
func (c *Controller) ListAll(ctx context.Context) (View, error) {
	view := c.transition(func(seq uint64) View {
		return View{State: StateLoading, Seq: seq}
	})
	ctx = services.WithQuerySeq(ctx, view.Seq)

	items, err := c.backend.ListAll(ctx)
	return c.settle(ctx, view.Seq, journal.KindList, "", items, err, msgListAllFailed)
}

// transition advances the sequence counter, installs the view built by next,
// and notifies observers.
func (c *Controller) transition(next func(seq uint64) View) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.view = next(c.seq)
	c.publishLocked()
	return cloneView(c.view)
}

func (c *Controller) settle(ctx context.Context, seq uint64, kind journal.Kind, query string, items []gateway.Item, err error, fallback string) (View, error) {
	logger := logging.WithContext(ctx, c.logger)

	c.mu.Lock()
	if seq != c.seq {
		current := cloneView(c.view)
		c.mu.Unlock()
		logger.Debug("discarding superseded response", "active_seq", current.Seq)
		c.record(ctx, journal.NewEntry(kind, query, "", services.ErrStaleResponse))
		return current, services.ErrStaleResponse
	}

	var view View
	if err != nil {
		view = View{
			State:   StateError,
			Query:   query,
			Seq:     seq,
			Message: services.UserMessage(err, fallback),
		}
	} else {
		view = View{Query: query, Seq: seq, Items: c.uniqueItems(logger, items)}
		view.State = StateResults
		if len(view.Items) == 0 {
			view.State = StateNoResults
		}
	}
	c.view = view
	c.publishLocked()
	snapshot := cloneView(view)
	c.mu.Unlock()

	if err != nil {
		logger.Warn("query failed", "kind", services.Kind(err), logging.Error(err))
		c.notify(ctx, notifications.Failure(notificationTitle, view.Message))
		c.record(ctx, journal.NewEntry(kind, query, "", err))
		return snapshot, err
	}

	logger.Info("query settled", "results", len(snapshot.Items))
	c.record(ctx, journal.NewEntry(kind, query, strconv.Itoa(len(snapshot.Items))+" results", nil))
	return snapshot, nil
}

// uniqueItems keeps the first occurrence of each filename.
func (c *Controller) uniqueItems(logger *slog.Logger, items []gateway.Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Filename]; dup {
			logger.Warn("duplicate filename in response", logging.FieldFilename, item.Filename)
			continue
		}
		seen[item.Filename] = struct{}{}
		out = append(out, Item{Filename: item.Filename, Image: item.Image})
	}
	return out
}

func (c *Controller) publishLocked() {
	if len(c.observers) == 0 {
		return
	}
	snapshot := cloneView(c.view)
	for _, fn := range c.observers {
		fn(snapshot)
	}
}

func (c *Controller) sessionToken(ctx context.Context) string {
	if c.sessions == nil {
		return ""
	}
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		logging.WithContext(ctx, c.logger).Warn("session read failed; searching anonymously", logging.Error(err))
		return ""
	}
	return sess.Token
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

func cloneView(v View) View {
	if v.Items != nil {
		items := make([]Item, len(v.Items))
		copy(items, v.Items)
		v.Items = items
	}
	return v
}
