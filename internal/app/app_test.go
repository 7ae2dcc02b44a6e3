package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cbir/internal/app"
	"cbir/internal/gateway"
	"cbir/internal/journal"
	"cbir/internal/logging"
	"cbir/internal/poller"
	"cbir/internal/search"
	"cbir/internal/services"
	"cbir/internal/testsupport"
	"cbir/internal/upload"
)

func newApp(t *testing.T, backend *testsupport.Backend, opts ...testsupport.ConfigOption) (*app.App, *testsupport.RecordingSink) {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithBackend(backend)}, opts...)...)
	sink := testsupport.NewRecordingSink()
	a, err := app.New(cfg, app.WithLogger(logging.NewNop()), app.WithSink(sink))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, sink
}

func TestSearchLoadsFeedbackAndJournal(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.AddImage("red-car.jpg", []byte("car"))
	a, _ := newApp(t, backend)
	ctx := context.Background()

	view, err := a.Search.Search(ctx, "red")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.State != search.StateResults {
		t.Fatalf("unexpected state %s", view.State)
	}
	if a.Feedback.Query() != "red" {
		t.Fatalf("feedback should follow the rendered query, got %q", a.Feedback.Query())
	}

	if _, err := a.Feedback.Vote(ctx, "red-car.jpg", gateway.VotePositive); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if calls := backend.Feedback(); len(calls) != 1 || calls[0].Query != "red" {
		t.Fatalf("unexpected feedback calls %+v", calls)
	}

	entries, err := a.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != journal.KindVote || entries[1].Kind != journal.KindSearch {
		t.Fatalf("unexpected journal entries %+v", entries)
	}
}

func TestLoginEnablesGatedUploadAndPersonalizedSearch(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.AddUser("a", "b", "T1")
	a, _ := newApp(t, backend)
	ctx := context.Background()

	files := []gateway.UploadFile{{Name: "a.jpg", Data: []byte("x")}}
	if _, err := a.Upload.Submit(ctx, files, upload.Options{}); !errors.Is(err, services.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired before login, got %v", err)
	}

	if _, err := a.Account.Login(ctx, "a", "b"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, err := a.Sessions.Get(ctx)
	if err != nil || sess.Token != "T1" {
		t.Fatalf("expected persisted token T1, got %+v, %v", sess, err)
	}

	if _, err := a.Upload.Submit(ctx, files, upload.Options{RedactFaces: true}); err != nil {
		t.Fatalf("Submit after login: %v", err)
	}
	if uploads := backend.Uploads(); len(uploads) != 1 || uploads[0].SessionToken != "T1" || !uploads[0].RedactFaces {
		t.Fatalf("unexpected uploads %+v", uploads)
	}
}

func TestHistoryDisabled(t *testing.T) {
	backend := testsupport.NewBackend(t)
	a, _ := newApp(t, backend, testsupport.WithoutJournal())

	if _, err := a.History(context.Background(), 5); !errors.Is(err, app.ErrJournalDisabled) {
		t.Fatalf("expected ErrJournalDisabled, got %v", err)
	}
	if _, err := a.Search.Search(context.Background(), "x"); err != nil {
		t.Fatalf("search without journal: %v", err)
	}
}

func TestPollerForwardsToAppSink(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.SetProcessingErrors(gateway.ProcessingError{File: "x.jpg", Error: "corrupt"})
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))
	sink := testsupport.NewRecordingSink()
	ticks := make(chan time.Time)
	a, err := app.New(cfg,
		app.WithLogger(logging.NewNop()),
		app.WithSink(sink),
		app.WithPollerOptions(poller.WithTicks(ticks)),
	)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	if err := a.Poller.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ticks <- time.Now()
	testsupport.WaitFor(t, 5*time.Second, func() bool { return sink.Count() == 1 })

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.Poller.State() != poller.StateStopped {
		t.Fatalf("Close should stop the poller, got %s", a.Poller.State())
	}
}
