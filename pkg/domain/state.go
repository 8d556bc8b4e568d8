package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// drawStream separates the outcome-draw random stream from the sequencer stream
// derived from the same seed.
const drawStream = 0x6f706572616e74

// SessionState is the running snapshot of a session.
// It is owned by the session controller and only changes through Fold.
type SessionState struct {
	SessionID string
	SubjectID string
	Phase     Phase
	Seed      uint64
	StartedAt time.Time

	// Index is the number of trials folded so far.
	Index   int
	Records []TrialRecord

	// Counts and the current run track the realized sequence.
	Counts    map[TrialType]int
	LastType  TrialType
	RunLength int

	// Rand is the per-session source for outcome draws.
	Rand *rand.Rand

	// Decks is non-nil only under the balanced forced-outcome policy.
	Decks *OutcomeDecks
}

// NewSessionState creates an empty state with a seeded outcome source.
func NewSessionState(sessionID, subjectID string, phase Phase, seed uint64, startedAt time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		SubjectID: subjectID,
		Phase:     phase,
		Seed:      seed,
		StartedAt: startedAt,
		Counts:    make(map[TrialType]int),
		Rand:      rand.New(rand.NewPCG(seed, drawStream)),
	}
}

// NextTrialNumber is the 1-based number of the trial about to run.
func (s *SessionState) NextTrialNumber() int {
	return s.Index + 1
}

// Fold appends a completed record. Records must arrive in trial order and carry
// the session's subject and phase.
func (s *SessionState) Fold(rec TrialRecord) error {
	if rec.TrialNumber != s.Index+1 {
		return fmt.Errorf("%w: expected trial %d, got %d", ErrRecordOutOfOrder, s.Index+1, rec.TrialNumber)
	}
	if rec.SubjectID != s.SubjectID || rec.Phase != s.Phase.String() {
		return fmt.Errorf("record %d belongs to %s/%s, session is %s/%s",
			rec.TrialNumber, rec.SubjectID, rec.Phase, s.SubjectID, s.Phase)
	}

	s.Records = append(s.Records, rec)
	s.Index++
	s.Counts[rec.TrialType]++
	if rec.TrialType == s.LastType {
		s.RunLength++
	} else {
		s.LastType = rec.TrialType
		s.RunLength = 1
	}
	return nil
}

// Snapshot returns a copy of the accumulated records.
func (s *SessionState) Snapshot() []TrialRecord {
	out := make([]TrialRecord, len(s.Records))
	copy(out, s.Records)
	return out
}

// Meta builds the persistence metadata of the session.
func (s *SessionState) Meta(experiment string) SessionMeta {
	return SessionMeta{
		SessionID:  s.SessionID,
		SubjectID:  s.SubjectID,
		Phase:      s.Phase,
		Experiment: experiment,
		StartedAt:  s.StartedAt,
	}
}
