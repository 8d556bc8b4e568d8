package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/operant/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	data  map[string][]domain.TrialRecord
	metas map[string]domain.SessionMeta
	mu    sync.RWMutex
}

// NewJournal creates a new in-memory journal.
func NewJournal() *Journal {
	return &Journal{
		data:  make(map[string][]domain.TrialRecord),
		metas: make(map[string]domain.SessionMeta),
	}
}

// Begin stores the session's metadata.
func (j *Journal) Begin(ctx context.Context, meta domain.SessionMeta) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.metas[meta.SessionID] = meta
	return nil
}

// Meta returns what Begin stored.
func (j *Journal) Meta(ctx context.Context, sessionID string) (domain.SessionMeta, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	meta, ok := j.metas[sessionID]
	if !ok {
		return domain.SessionMeta{}, domain.ErrSessionNotFound
	}
	return meta, nil
}

// Append stores a copy of the record.
func (j *Journal) Append(ctx context.Context, sessionID string, rec domain.TrialRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[sessionID] = append(j.data[sessionID], rec)
	return nil
}

// Load returns a copy of the session's records so callers can't mutate the journal.
func (j *Journal) Load(ctx context.Context, sessionID string) ([]domain.TrialRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	recs, ok := j.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := make([]domain.TrialRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// List returns the journaled sessions.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	sessions := make([]string, 0, len(j.data))
	for id := range j.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Writer implements ports.RecordWriter by keeping the last write of each session.
type Writer struct {
	mu     sync.Mutex
	writes map[string][]domain.TrialRecord
	metas  map[string]domain.SessionMeta
	calls  int
}

// NewWriter creates a new in-memory record writer.
func NewWriter() *Writer {
	return &Writer{
		writes: make(map[string][]domain.TrialRecord),
		metas:  make(map[string]domain.SessionMeta),
	}
}

// WriteRecords stores a copy of records and returns a memory:// location.
func (w *Writer) WriteRecords(ctx context.Context, meta domain.SessionMeta, records []domain.TrialRecord) (string, error) {
	out := make([]domain.TrialRecord, len(records))
	copy(out, records)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes[meta.SessionID] = out
	w.metas[meta.SessionID] = meta
	w.calls++
	return fmt.Sprintf("memory://%s", meta.SessionID), nil
}

// Records returns what was last written for a session.
func (w *Writer) Records(sessionID string) ([]domain.TrialRecord, domain.SessionMeta, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	recs, ok := w.writes[sessionID]
	return recs, w.metas[sessionID], ok
}

// Calls is the number of WriteRecords calls.
func (w *Writer) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}
