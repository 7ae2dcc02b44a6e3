package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cbir/internal/gateway"
	"cbir/internal/logging"
	"cbir/internal/notifications"
	"cbir/internal/services"
)

const defaultInterval = 5 * time.Second

// ErrStopped is returned when starting a poller that was already stopped.
var ErrStopped = errors.New("poller stopped")

// State is the poller lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

// Fetcher is the subset of the gateway the poller needs.
type Fetcher interface {
	PollErrors(ctx context.Context) (gateway.ErrorReport, error)
}

// Option customizes a Poller.
type Option func(*Poller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logging.NewComponentLogger(logger, "poller")
	}
}

// WithInterval sets the tick interval.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithTicks replaces the interval timer with ticks. Tests use it to drive the
// loop one tick at a time.
func WithTicks(ticks <-chan time.Time) Option {
	return func(p *Poller) {
		p.ticks = ticks
	}
}

// Poller periodically forwards processing errors to a sink.
type Poller struct {
	fetcher  Fetcher
	sink     notifications.Sink
	logger   *slog.Logger
	interval time.Duration
	ticks    <-chan time.Time

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	fetches int
}

// New constructs an idle Poller.
func New(fetcher Fetcher, sink notifications.Sink, opts ...Option) *Poller {
	if sink == nil {
		sink = notifications.Noop{}
	}
	p := &Poller{
		fetcher:  fetcher,
		sink:     sink,
		logger:   logging.NewComponentLogger(nil, "poller"),
		interval: defaultInterval,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Fetches returns how many fetches have completed.
func (p *Poller) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// Start launches the loop. Starting a running poller is a no-op; starting a
// stopped one returns ErrStopped. The loop ends when ctx is cancelled or Stop
// is called, and either way the poller is then Stopped.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return ErrStopped
	}
	if p.started {
		return nil
	}
	loopCtx, cancel := context.WithCancel(services.WithComponent(ctx, "poller"))
	p.started = true
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(loopCtx, p.done)
	p.logger.Debug("poller started", "interval", p.interval)
	return nil
}

// Stop ends the loop and waits for it to exit. It is safe to call more than
// once and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.state = StateStopped
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	p.logger.Debug("poller stopped")
}

// Wait blocks until the loop exits.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.finish()

	ticks := p.ticks
	if ticks == nil {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.setState(StatePolling) {
		return
	}
	defer p.setState(StateIdle)

	report, err := p.fetcher.PollErrors(ctx)
	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()

	logger := logging.WithContext(ctx, p.logger)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, services.ErrTransport) {
			logger.Debug("processing error poll failed", logging.Error(err))
		} else {
			logger.Warn("processing error poll failed", "kind", services.Kind(err), logging.Error(err))
		}
		return
	}

	seen := make(map[gateway.ProcessingError]struct{}, len(report.Errors))
	for _, procErr := range report.Errors {
		if _, dup := seen[procErr]; dup {
			continue
		}
		seen[procErr] = struct{}{}
		if ctx.Err() != nil {
			return
		}
		if err := p.sink.Notify(ctx, notifications.ProcessingFailure(procErr.File, procErr.Error)); err != nil {
			logger.Warn("processing error notification failed", logging.FieldFilename, procErr.File, logging.Error(err))
		}
	}
	if len(seen) > 0 {
		logger.Info("processing errors reported", "count", len(seen))
	}
}

// finish marks the poller stopped once its loop has exited, whatever ended it.
func (p *Poller) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateStopped
}

// setState moves the poller between Idle and Polling. It refuses to leave
// Stopped.
func (p *Poller) setState(state State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return false
	}
	p.state = state
	return true
}
