package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	rec := func(n int) domain.TrialRecord {
		return domain.TrialRecord{
			Timestamp:        time.Date(2023, 6, 9, 10, 0, n, 0, time.UTC),
			TrialNumber:      n,
			TrialType:        domain.FreeChoice,
			Block:            1,
			ChosenOption:     domain.OptionInformative,
			TouchX:           200,
			TouchY:           300,
			TerminalStimulus: string(domain.StimulusSMinus),
			Outcome:          domain.OutcomeNoFood,
			SubjectID:        "Zappa",
			Phase:            domain.PhaseChoice.String(),
			LatencyMS:        int64(100 * n),
		}
	}

	t.Run("Append and Load keep order", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			require.NoError(t, journal.Append(ctx, sessionID, rec(i)))
		}

		loaded, err := journal.Load(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		for i, r := range loaded {
			assert.Equal(t, i+1, r.TrialNumber)
			assert.True(t, rec(i+1).Timestamp.Equal(r.Timestamp))
			assert.Equal(t, domain.OutcomeNoFood, r.Outcome)
			assert.Equal(t, int64(100*(i+1)), r.LatencyMS)
		}
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := journal.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Begin and Meta", func(t *testing.T) {
		meta := domain.SessionMeta{
			SessionID:  sessionID,
			SubjectID:  "Zappa",
			Phase:      domain.PhaseChoice,
			Experiment: "P037",
			StartedAt:  time.Date(2023, 6, 9, 9, 58, 30, 0, time.UTC),
		}
		require.NoError(t, journal.Begin(ctx, meta))

		got, err := journal.Meta(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, meta.SubjectID, got.SubjectID)
		assert.Equal(t, meta.Phase, got.Phase)
		assert.Equal(t, meta.Experiment, got.Experiment)
		assert.True(t, meta.StartedAt.Equal(got.StartedAt))

		_, err = journal.Meta(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		sessions, err := journal.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, countOf(sessions, sessionID), "metadata does not add a session entry")
	})

	t.Run("List", func(t *testing.T) {
		other := fmt.Sprintf("%s-other", sessionID)
		require.NoError(t, journal.Append(ctx, other, rec(1)))

		sessions, err := journal.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, sessionID)
		assert.Contains(t, sessions, other)
	})
}

func countOf(ids []string, id string) int {
	n := 0
	for _, s := range ids {
		if s == id {
			n++
		}
	}
	return n
}
