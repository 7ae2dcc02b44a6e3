package journal

import (
	"errors"
	"time"

	"cbir/internal/services"
)

// Kind identifies the client operation an entry records.
type Kind string

const (
	KindSearch   Kind = "search"
	KindList     Kind = "list"
	KindUpload   Kind = "upload"
	KindVote     Kind = "vote"
	KindAnnotate Kind = "annotate"
)

// Outcome is how an operation settled.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeFailed     Outcome = "failed"
	OutcomeRejected   Outcome = "rejected"
	OutcomeSuperseded Outcome = "superseded"
)

// Entry is one journal row.
type Entry struct {
	ID        int64
	Kind      Kind
	Subject   string
	Detail    string
	Outcome   Outcome
	ErrorKind string
	Message   string
	CreatedAt time.Time
}

// OutcomeFor maps an operation error onto an Outcome. Client-side rejections
// (validation, missing session) are distinguished from backend or transport
// failures.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, services.ErrStaleResponse):
		return OutcomeSuperseded
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrAuthRequired):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// NewEntry builds an entry for an operation that settled with err.
func NewEntry(kind Kind, subject, detail string, err error) Entry {
	entry := Entry{
		Kind:    kind,
		Subject: subject,
		Detail:  detail,
		Outcome: OutcomeFor(err),
	}
	if err != nil {
		entry.ErrorKind = services.Kind(err)
		entry.Message = err.Error()
	}
	return entry
}
