package journal_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cbir/internal/journal"
	"cbir/internal/services"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	entries := []journal.Entry{
		journal.NewEntry(journal.KindSearch, "red car", "3 results", nil),
		journal.NewEntry(journal.KindUpload, "2 files", "", &services.BackendError{Operation: "upload", Status: 500, Message: "disk full"}),
		journal.NewEntry(journal.KindAnnotate, "a.jpg", "", services.Validation("annotate", "sentence is required")),
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Kind != journal.KindAnnotate || got[0].Outcome != journal.OutcomeRejected || got[0].ErrorKind != "validation" {
		t.Fatalf("unexpected newest entry %+v", got[0])
	}
	if got[1].Kind != journal.KindUpload || got[1].Outcome != journal.OutcomeFailed || got[1].ErrorKind != "backend" {
		t.Fatalf("unexpected second entry %+v", got[1])
	}
	if got[1].CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(ctx, journal.NewEntry(journal.KindVote, "a.jpg", "positive", nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Subject != "a.jpg" || got[0].Outcome != journal.OutcomeOK {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want journal.Outcome
	}{
		{nil, journal.OutcomeOK},
		{services.ErrStaleResponse, journal.OutcomeSuperseded},
		{services.Wrap(services.ErrAuthRequired, "upload", "log in first", nil), journal.OutcomeRejected},
		{&services.TransportError{Operation: "search", Timeout: true}, journal.OutcomeFailed},
	}
	for _, tt := range tests {
		if got := journal.OutcomeFor(tt.err); got != tt.want {
			t.Errorf("OutcomeFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, journal.Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestLoggedSwallowsFailures(t *testing.T) {
	inner := &failingRecorder{}
	rec := journal.Logged(inner, nil)
	if err := rec.Record(context.Background(), journal.Entry{Kind: journal.KindSearch}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner recorder to be called once, got %d", inner.calls)
	}
	if err := journal.Logged(nil, nil).Record(context.Background(), journal.Entry{}); err != nil {
		t.Fatalf("nil recorder should be a no-op, got %v", err)
	}
}
