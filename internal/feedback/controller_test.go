package feedback_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"cbir/internal/feedback"
	"cbir/internal/gateway"
	"cbir/internal/notifications"
	"cbir/internal/services"
	"cbir/internal/testsupport"
)

type fixture struct {
	backend *testsupport.Backend
	sink    *testsupport.RecordingSink
	ctrl    *feedback.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testsupport.NewBackend(t)
	client, err := gateway.New(backend.URL())
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	sink := testsupport.NewRecordingSink()
	ctrl := feedback.New(client, feedback.WithSink(sink))
	ctrl.Load("red car", []string{"a.jpg", "b.jpg"})
	return &fixture{backend: backend, sink: sink, ctrl: ctrl}
}

func TestVoteSendsQueryContext(t *testing.T) {
	f := newFixture(t)

	msg, err := f.ctrl.Vote(context.Background(), "a.jpg", gateway.VotePositive)
	if err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}
	if msg != "Feedback received" {
		t.Fatalf("unexpected message %q", msg)
	}
	calls := f.backend.Feedback()
	if len(calls) != 1 || calls[0].Filename != "a.jpg" || calls[0].Feedback != "positive" || calls[0].Query != "red car" {
		t.Fatalf("unexpected feedback calls %+v", calls)
	}
	if f.ctrl.Item("a.jpg").Vote != gateway.VotePositive {
		t.Fatalf("expected local vote to stick, got %+v", f.ctrl.Item("a.jpg"))
	}
	if f.ctrl.Item("b.jpg").Vote != gateway.VoteNone {
		t.Fatal("other items must not change")
	}
}

func TestFailedVoteReverts(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Vote(context.Background(), "a.jpg", gateway.VotePositive); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	f.backend.Fail(gateway.OpVote, http.StatusInternalServerError, "Failed to process feedback")

	_, err := f.ctrl.Vote(context.Background(), "a.jpg", gateway.VoteNegative)
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if got := f.ctrl.Item("a.jpg").Vote; got != gateway.VotePositive {
		t.Fatalf("expected vote to revert to positive, got %q", got)
	}
	ev, _ := f.sink.Last()
	if ev.Level != notifications.LevelError || ev.Message != "Failed to process feedback" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

type voteCall struct {
	vote  gateway.Vote
	reply chan error
}

type gatedBackend struct {
	calls chan voteCall
}

func (g *gatedBackend) Vote(_ context.Context, _ string, vote gateway.Vote, _ string) (string, error) {
	reply := make(chan error)
	g.calls <- voteCall{vote: vote, reply: reply}
	return "ok", <-reply
}

func (g *gatedBackend) Annotate(context.Context, string, string) (string, error) {
	return "ok", nil
}

func TestFailedVoteKeepsNewerVote(t *testing.T) {
	backend := &gatedBackend{calls: make(chan voteCall)}
	ctrl := feedback.New(backend)
	ctrl.Load("red car", []string{"a.jpg"})

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Vote(context.Background(), "a.jpg", gateway.VotePositive)
		firstDone <- err
	}()
	first := <-backend.calls

	secondDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Vote(context.Background(), "a.jpg", gateway.VoteNegative)
		secondDone <- err
	}()
	second := <-backend.calls

	second.reply <- nil
	if err := <-secondDone; err != nil {
		t.Fatalf("second vote failed: %v", err)
	}
	first.reply <- errors.New("boom")
	if err := <-firstDone; err == nil {
		t.Fatal("expected first vote to fail")
	}

	if first.vote != gateway.VotePositive || second.vote != gateway.VoteNegative {
		t.Fatalf("unexpected call order %s, %s", first.vote, second.vote)
	}
	if got := ctrl.Item("a.jpg").Vote; got != gateway.VoteNegative {
		t.Fatalf("a stale failure must not revert a newer vote, got %q", got)
	}
}

func TestVotesOnDifferentFilesDoNotInterfere(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for _, name := range []string{"a.jpg", "b.jpg"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, _ = f.ctrl.Vote(context.Background(), name, gateway.VoteNegative)
		}(name)
	}
	wg.Wait()

	if f.ctrl.Item("a.jpg").Vote != gateway.VoteNegative || f.ctrl.Item("b.jpg").Vote != gateway.VoteNegative {
		t.Fatalf("unexpected states a=%+v b=%+v", f.ctrl.Item("a.jpg"), f.ctrl.Item("b.jpg"))
	}
	if len(f.backend.Feedback()) != 2 {
		t.Fatalf("expected two votes, got %d", len(f.backend.Feedback()))
	}
}

func TestInvalidVoteIsRejectedLocally(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Vote(context.Background(), "a.jpg", gateway.Vote("meh")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ev, _ := f.sink.Last(); ev.Message != "Vote must be positive or negative." {
		t.Fatalf("event should carry the bare message, got %q", ev.Message)
	}
	if _, err := f.ctrl.Vote(context.Background(), " ", gateway.VotePositive); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.backend.TotalCalls() != 0 {
		t.Fatal("invalid votes must not reach the backend")
	}
}

func TestAnnotateBlankIsRejectedWithoutCall(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"", "   "} {
		if _, err := f.ctrl.Annotate(context.Background(), "a.jpg", text); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Annotate(%q) expected validation error, got %v", text, err)
		}
	}
	if f.backend.Calls(gateway.OpAnnotate) != 0 {
		t.Fatal("blank annotations must not reach the backend")
	}
	if ev, _ := f.sink.Last(); ev.Message != "Please enter a sentence for this image." {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAnnotateSuccessClearsOnlyThatNote(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetNote("a.jpg", "a red sports car")
	f.ctrl.SetNote("b.jpg", "a bus")

	msg, err := f.ctrl.SubmitNote(context.Background(), "a.jpg")
	if err != nil {
		t.Fatalf("SubmitNote returned error: %v", err)
	}
	if msg != "Sentence received and processed" {
		t.Fatalf("unexpected message %q", msg)
	}
	if f.ctrl.Note("a.jpg") != "" {
		t.Fatalf("expected a.jpg note cleared, got %q", f.ctrl.Note("a.jpg"))
	}
	if f.ctrl.Note("b.jpg") != "a bus" {
		t.Fatalf("b.jpg note must be untouched, got %q", f.ctrl.Note("b.jpg"))
	}
	calls := f.backend.Sentences()
	if len(calls) != 1 || calls[0].Sentence != "a red sports car" {
		t.Fatalf("unexpected sentences %+v", calls)
	}
}

func TestAnnotateFailurePreservesNote(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail(gateway.OpAnnotate, http.StatusInternalServerError, "Failed to process sentence")

	_, err := f.ctrl.Annotate(context.Background(), "a.jpg", "retry me")
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if f.ctrl.Note("a.jpg") != "retry me" {
		t.Fatalf("expected note preserved, got %q", f.ctrl.Note("a.jpg"))
	}
	ev, _ := f.sink.Last()
	if ev.Message != "Server Error (500): Failed to process sentence" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLoadResetsState(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetNote("a.jpg", "draft")
	_, _ = f.ctrl.Vote(context.Background(), "a.jpg", gateway.VotePositive)

	f.ctrl.Load("blue", []string{"c.jpg"})

	if f.ctrl.Query() != "blue" {
		t.Fatalf("unexpected query %q", f.ctrl.Query())
	}
	if got := f.ctrl.Item("a.jpg"); got.Vote != gateway.VoteNone || got.Note != "" {
		t.Fatalf("expected reset state, got %+v", got)
	}
}
