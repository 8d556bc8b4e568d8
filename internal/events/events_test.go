package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/internal/testutils"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/trial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Zappa")
	sink, err := NewFileSink(dir, "s1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "events-s1.jsonl"), sink.Path())

	now := time.Date(2023, 6, 9, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write([]Event{
		{Timestamp: now, Type: EventSessionStart, SessionID: "s1"},
		{Timestamp: now, Type: EventTouch, SessionID: "s1", Region: "left_choice_key", X: 200, Y: 300},
	}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.Error(t, sink.WriteOne(Event{}), "writes after close fail")

	// Reopening appends.
	sink, err = NewFileSink(dir, "s1")
	require.NoError(t, err)
	require.NoError(t, sink.WriteOne(Event{Timestamp: now, Type: EventSessionEnd, Reason: "completed"}))
	require.NoError(t, sink.Close())

	events, err := ReadEvents(sink.Path())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 200.0, events[1].X)
	assert.Equal(t, "completed", events[2].Reason)
	assert.Len(t, FilterByType(events, EventTouch), 1)
	assert.Len(t, FilterByType(events), 3)
}

type memWriter struct {
	events []Event
	err    error
}

func (m *memWriter) WriteOne(e Event) error {
	m.events = append(m.events, e)
	return m.err
}

func TestHooks_RecordTrial(t *testing.T) {
	rig := testutils.NewRig(testutils.PeckFirst)
	start := rig.Clock().Now()
	w := &memWriter{}

	exec, err := trial.New(rig, trial.Config{Subject: testutils.Subject(), Probabilities: trial.DefaultProbabilities()},
		trial.WithClock(rig.Clock()),
		trial.WithLifecycleHooks(Hooks(w, "s1", start, logging.NewNop())))
	require.NoError(t, err)

	state := domain.NewSessionState("s1", "Zappa", domain.PhaseChoice, 1, start)
	rec, err := exec.Run(context.Background(), domain.TrialSpec{Type: domain.ForcedInformative, Block: 1, Position: 1}, state)
	require.NoError(t, err)

	touches := FilterByType(w.events, EventTouch)
	require.NotEmpty(t, touches)
	assert.Equal(t, "left_choice_key", touches[0].Region)
	assert.Equal(t, domain.TouchKey, touches[0].Kind)
	assert.Equal(t, 1, touches[0].Trial)

	stages := FilterByType(w.events, EventStage)
	require.NotEmpty(t, stages)
	assert.Equal(t, string(domain.StageStimulusOnset), stages[0].Stage)

	done := FilterByType(w.events, EventTrialComplete)
	require.Len(t, done, 1)
	assert.Equal(t, string(rec.Outcome), done[0].Outcome)

	for _, e := range w.events {
		assert.Equal(t, "s1", e.SessionID)
		assert.GreaterOrEqual(t, e.SessionMS, int64(0))
	}
	exit := stages[len(stages)-1]
	assert.Equal(t, string(domain.StageLogAndExit), exit.Stage)
	assert.Equal(t, int64(3000), exit.SessionMS, "the hopper hold is the only wait")
}

func TestHooks_WriteErrorsDoNotPanic(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	hooks := Hooks(w, "s1", time.Now(), logging.NewNop())
	hooks.OnFeeder(context.Background(), &domain.FeederEvent{Duration: time.Second, Err: errors.New("jam")})
	hooks.OnSessionEnd(context.Background(), &domain.SessionEvent{Reason: "fault", Trials: 3})

	require.Len(t, w.events, 2)
	assert.Equal(t, int64(1000), w.events[0].DurationMS)
	assert.Equal(t, "jam", w.events[0].Error)
	assert.Equal(t, 3, w.events[1].Trial)
}
