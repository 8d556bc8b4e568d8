package ports

import (
	"context"

	"github.com/aretw0/operant/pkg/domain"
)

// Journal persists trial records as they complete, so a crash loses at most the
// trial in progress.
type Journal interface {
	// Begin records the session's metadata. It is called once before the first
	// trial so recovery can rebuild the same output file name.
	Begin(ctx context.Context, meta domain.SessionMeta) error

	// Meta returns what Begin recorded.
	// Returns domain.ErrSessionNotFound if Begin was never called for the session.
	Meta(ctx context.Context, sessionID string) (domain.SessionMeta, error)

	// Append stores one record at the end of the session's journal.
	Append(ctx context.Context, sessionID string, rec domain.TrialRecord) error

	// Load returns the session's records in append order.
	// Returns domain.ErrSessionNotFound if nothing was journaled for the session.
	Load(ctx context.Context, sessionID string) ([]domain.TrialRecord, error)

	// List returns the journaled session IDs.
	List(ctx context.Context) ([]string, error)
}

// RecordWriter writes the session's output data file.
type RecordWriter interface {
	// WriteRecords writes every record under the session's metadata and returns
	// the location that was written.
	WriteRecords(ctx context.Context, meta domain.SessionMeta, records []domain.TrialRecord) (string, error)
}
