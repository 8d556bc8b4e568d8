package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/ports"
)

// Recover rebuilds the output data file of an interrupted session from its trial
// journal. The records are re-folded, so a journal with gaps or foreign rows is
// rejected rather than written.
//
// The session metadata recorded at start gives the same file name the session
// itself writes, so a recovered file replaces a flushed one. Journals without
// metadata fall back to the first trial's timestamp and the given experiment.
func Recover(ctx context.Context, journal ports.Journal, writer ports.RecordWriter, sessionID, experiment string) (string, []domain.TrialRecord, error) {
	records, err := journal.Load(ctx, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("load journal %s: %w", sessionID, err)
	}
	if len(records) == 0 {
		return "", nil, fmt.Errorf("%w: %s has no records", domain.ErrSessionNotFound, sessionID)
	}

	meta, err := journal.Meta(ctx, sessionID)
	switch {
	case err == nil:
		if meta.Experiment != "" {
			experiment = meta.Experiment
		}
	case errors.Is(err, domain.ErrSessionNotFound):
		first := records[0]
		phase, err := domain.ParsePhase(first.Phase)
		if err != nil {
			return "", nil, fmt.Errorf("journal %s: %w", sessionID, err)
		}
		meta = domain.SessionMeta{SubjectID: first.SubjectID, Phase: phase, StartedAt: first.Timestamp}
	default:
		return "", nil, fmt.Errorf("load session metadata %s: %w", sessionID, err)
	}

	state := domain.NewSessionState(sessionID, meta.SubjectID, meta.Phase, 0, meta.StartedAt)
	for _, rec := range records {
		if err := state.Fold(rec); err != nil {
			return "", nil, fmt.Errorf("journal %s: %w", sessionID, err)
		}
	}

	if experiment == "" {
		experiment = DefaultExperiment
	}
	path, err := writer.WriteRecords(ctx, state.Meta(experiment), state.Snapshot())
	if err != nil {
		return "", nil, fmt.Errorf("write records: %w", err)
	}
	return path, state.Snapshot(), nil
}
