package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/operant/internal/adapters/memory"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/session"
	"github.com/aretw0/operant/pkg/trial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journaled(n int) domain.TrialRecord {
	return domain.TrialRecord{
		Timestamp:   time.Date(2023, 6, 9, 9, 1, n, 0, time.UTC),
		TrialNumber: n,
		TrialType:   domain.FreeChoice,
		Block:       1,
		Outcome:     domain.OutcomeNoFood,
		SubjectID:   "Zappa",
		Phase:       domain.PhaseChoice.String(),
	}
}

func TestRecover(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournal()
	w := memory.NewWriter()
	for i := 1; i <= 3; i++ {
		require.NoError(t, j.Append(ctx, "crashed", journaled(i)))
	}

	path, recs, err := session.Recover(ctx, j, w, "crashed", "")
	require.NoError(t, err)
	assert.Equal(t, "memory://crashed", path)
	assert.Len(t, recs, 3)

	written, meta, ok := w.Records("crashed")
	require.True(t, ok)
	assert.Len(t, written, 3)
	assert.Equal(t, "Zappa", meta.SubjectID)
	assert.Equal(t, domain.PhaseChoice, meta.Phase)
	assert.Equal(t, session.DefaultExperiment, meta.Experiment)
	assert.True(t, meta.StartedAt.Equal(journaled(1).Timestamp))
}

func TestRecover_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown session", func(t *testing.T) {
		_, _, err := session.Recover(ctx, memory.NewJournal(), memory.NewWriter(), "nope", "")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Gap in trial numbers", func(t *testing.T) {
		j := memory.NewJournal()
		require.NoError(t, j.Append(ctx, "gappy", journaled(1)))
		require.NoError(t, j.Append(ctx, "gappy", journaled(3)))

		w := memory.NewWriter()
		_, _, err := session.Recover(ctx, j, w, "gappy", "")
		assert.ErrorIs(t, err, domain.ErrRecordOutOfOrder)
		assert.Zero(t, w.Calls())
	})
}

func TestRecover_UsesSessionStart(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournal()
	start := time.Date(2023, 6, 9, 8, 59, 0, 0, time.UTC)
	require.NoError(t, j.Begin(ctx, domain.SessionMeta{
		SessionID:  "crashed",
		SubjectID:  "Zappa",
		Phase:      domain.PhaseChoice,
		Experiment: "P038",
		StartedAt:  start,
	}))
	for i := 1; i <= 2; i++ {
		require.NoError(t, j.Append(ctx, "crashed", journaled(i)))
	}

	w := memory.NewWriter()
	_, _, err := session.Recover(ctx, j, w, "crashed", "P037")
	require.NoError(t, err)

	_, meta, ok := w.Records("crashed")
	require.True(t, ok)
	assert.True(t, meta.StartedAt.Equal(start), "the session start, not the first onset")
	assert.Equal(t, "P038", meta.Experiment)
}

func TestRecover_MatchesFlushedFile(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := f.controller(t, trial.Config{Feedback: time.Second}, domain.LifecycleHooks{
		OnTrialComplete: func(_ context.Context, rec *domain.TrialRecord) {
			if rec.TrialNumber == 5 {
				cancel()
			}
		},
	}, session.Timing{Acclimation: 30 * time.Second, ITI: 10 * time.Second}, session.WithExperiment("P038"))

	_, err := c.Run(ctx)
	require.NoError(t, err)
	flushed, flushedMeta, ok := f.writer.Records("session-1")
	require.True(t, ok)

	w := memory.NewWriter()
	_, _, err = session.Recover(context.Background(), f.journal, w, "session-1", "")
	require.NoError(t, err)

	recovered, meta, ok := w.Records("session-1")
	require.True(t, ok)
	assert.Equal(t, flushedMeta, meta)
	assert.Equal(t, flushed, recovered)
}
