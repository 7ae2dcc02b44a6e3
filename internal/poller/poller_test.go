package poller_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cbir/internal/gateway"
	"cbir/internal/poller"
	"cbir/internal/testsupport"
)

type fixture struct {
	backend *testsupport.Backend
	sink    *testsupport.RecordingSink
	ticks   chan time.Time
	poller  *poller.Poller
}

func newFixture(t *testing.T, opts ...gateway.Option) *fixture {
	t.Helper()
	backend := testsupport.NewBackend(t)
	client, err := gateway.New(backend.URL(), opts...)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	sink := testsupport.NewRecordingSink()
	ticks := make(chan time.Time)
	p := poller.New(client, sink, poller.WithTicks(ticks))
	t.Cleanup(p.Stop)
	return &fixture{backend: backend, sink: sink, ticks: ticks, poller: p}
}

func (f *fixture) tick(t *testing.T, wantFetches int) {
	t.Helper()
	f.ticks <- time.Now()
	testsupport.WaitFor(t, 5*time.Second, func() bool {
		return f.poller.Fetches() >= wantFetches && f.poller.State() == poller.StateIdle
	})
}

func TestStopBeforeFirstTickYieldsNoSinkCalls(t *testing.T) {
	f := newFixture(t)
	f.backend.SetProcessingErrors(gateway.ProcessingError{File: "x.jpg", Error: "corrupt"})

	if err := f.poller.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	f.poller.Stop()

	if f.sink.Count() != 0 {
		t.Fatalf("expected zero sink calls, got %d", f.sink.Count())
	}
	if f.backend.Calls(gateway.OpPollErrors) != 0 {
		t.Fatalf("expected no fetch, got %d", f.backend.Calls(gateway.OpPollErrors))
	}
	if f.poller.State() != poller.StateStopped {
		t.Fatalf("unexpected state %s", f.poller.State())
	}
}

func TestEachTickForwardsEachError(t *testing.T) {
	f := newFixture(t)
	if err := f.poller.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	const ticks = 4
	for i := 1; i <= ticks; i++ {
		f.backend.SetProcessingErrors(gateway.ProcessingError{File: fmt.Sprintf("img-%d.jpg", i), Error: "corrupt"})
		f.tick(t, i)
	}
	f.poller.Stop()

	events := f.sink.Events()
	if len(events) != ticks {
		t.Fatalf("expected %d sink calls, got %d", ticks, len(events))
	}
	for i, ev := range events {
		want := fmt.Sprintf("img-%d.jpg: corrupt", i+1)
		if ev.Message != want {
			t.Fatalf("event %d: got %q, want %q", i, ev.Message, want)
		}
	}
}

func TestDuplicatePairsInOneTickAreForwardedOnce(t *testing.T) {
	f := newFixture(t)
	_ = f.poller.Start(context.Background())

	dup := gateway.ProcessingError{File: "x.jpg", Error: "corrupt"}
	f.backend.SetProcessingErrors(dup, dup, gateway.ProcessingError{File: "y.jpg", Error: "corrupt"})
	f.tick(t, 1)

	if f.sink.Count() != 2 {
		t.Fatalf("expected 2 sink calls, got %d", f.sink.Count())
	}
}

func TestFetchFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	_ = f.poller.Start(context.Background())

	f.backend.Fail(gateway.OpPollErrors, http.StatusInternalServerError, "boom")
	f.tick(t, 1)
	if f.sink.Count() != 0 {
		t.Fatalf("fetch failure must not reach the sink, got %v", f.sink.Events())
	}

	f.backend.Recover(gateway.OpPollErrors)
	f.backend.SetProcessingErrors(gateway.ProcessingError{File: "x.jpg", Error: "corrupt"})
	f.tick(t, 2)
	if f.sink.Count() != 1 {
		t.Fatalf("loop should continue after a failure, got %d sink calls", f.sink.Count())
	}
}

func TestStopCancelsInFlightFetch(t *testing.T) {
	f := newFixture(t)
	f.backend.SetProcessingErrors(gateway.ProcessingError{File: "x.jpg", Error: "corrupt"})
	release := f.backend.Hold(gateway.OpPollErrors)
	defer release()
	_ = f.poller.Start(context.Background())

	f.ticks <- time.Now()
	f.backend.WaitCalls(t, gateway.OpPollErrors, 1)

	stopped := make(chan struct{})
	go func() {
		f.poller.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a fetch was in flight")
	}
	release()

	if f.sink.Count() != 0 {
		t.Fatalf("no sink call may happen after Stop, got %d", f.sink.Count())
	}
}

func TestStartAfterStopFails(t *testing.T) {
	f := newFixture(t)
	f.poller.Stop()
	if err := f.poller.Start(context.Background()); err != poller.ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestCancelledContextStopsPoller(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.poller.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	cancel()
	f.poller.Wait()

	if f.poller.State() != poller.StateStopped {
		t.Fatalf("expected stopped after cancellation, got %s", f.poller.State())
	}
	if err := f.poller.Start(context.Background()); !errors.Is(err, poller.ErrStopped) {
		t.Fatalf("expected ErrStopped on restart, got %v", err)
	}
}

func TestIntervalTicker(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.SetProcessingErrors(gateway.ProcessingError{File: "x.jpg", Error: "corrupt"})
	client, err := gateway.New(backend.URL())
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	sink := testsupport.NewRecordingSink()
	p := poller.New(client, sink, poller.WithInterval(20*time.Millisecond))
	_ = p.Start(context.Background())

	testsupport.WaitFor(t, 5*time.Second, func() bool { return sink.Count() >= 2 })
	p.Stop()

	after := sink.Count()
	time.Sleep(60 * time.Millisecond)
	if sink.Count() != after {
		t.Fatalf("sink called after Stop: %d -> %d", after, sink.Count())
	}
}
