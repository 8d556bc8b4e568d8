package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/operant/internal/adapters/memory"
	"github.com/aretw0/operant/internal/testutils"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/sequence"
	"github.com/aretw0/operant/pkg/session"
	"github.com/aretw0/operant/pkg/trial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	rig     *testutils.Rig
	journal *memory.Journal
	writer  *memory.Writer
	state   *domain.SessionState
	specs   []domain.TrialSpec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	comp, blocks := sequence.ForPhase(domain.PhaseChoice)
	specs, err := sequence.New(comp, blocks).Generate(sequence.NewRand(11))
	require.NoError(t, err)

	return &fixture{
		rig:     testutils.NewRig(testutils.PeckFirst),
		journal: memory.NewJournal(),
		writer:  memory.NewWriter(),
		state:   domain.NewSessionState("session-1", "Zappa", domain.PhaseChoice, 11, time.Date(2023, 6, 9, 9, 0, 0, 0, time.UTC)),
		specs:   specs,
	}
}

func (f *fixture) controller(t *testing.T, cfg trial.Config, hooks domain.LifecycleHooks, timing session.Timing, opts ...session.Option) *session.Controller {
	t.Helper()
	cfg.Subject = testutils.Subject()
	if cfg.Probabilities == (trial.Probabilities{}) {
		cfg.Probabilities = trial.DefaultProbabilities()
	}
	exec, err := trial.New(f.rig, cfg, trial.WithClock(f.rig.Clock()), trial.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	opts = append([]session.Option{
		session.WithClock(f.rig.Clock()),
		session.WithJournal(f.journal),
		session.WithRecordWriter(f.writer),
		session.WithTiming(timing),
	}, opts...)
	c, err := session.New(f.rig, exec, f.specs, f.state, opts...)
	require.NoError(t, err)
	return c
}

func assertOrdered(t *testing.T, recs []domain.TrialRecord, specs []domain.TrialSpec) {
	t.Helper()
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.TrialNumber)
		assert.Equal(t, specs[i].Type, rec.TrialType)
		assert.Equal(t, specs[i].Block, rec.Block)
		assert.Equal(t, "Zappa", rec.SubjectID)
		assert.Equal(t, "choice_training", rec.Phase)
	}
}

func TestController_FullSession(t *testing.T) {
	f := newFixture(t)
	var ended *domain.SessionEvent
	c := f.controller(t, trial.Config{Feedback: 15 * time.Second}, domain.LifecycleHooks{}, session.Timing{
		Acclimation: 30 * time.Second,
		ITI:         10 * time.Second,
	}, session.WithLifecycleHooks(domain.LifecycleHooks{
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) { ended = e },
	}))

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, session.ReasonCompleted, res.Reason)
	require.Len(t, res.Records, 100)
	assertOrdered(t, res.Records, f.specs)
	assert.Equal(t, "memory://session-1", res.Path)

	written, meta, ok := f.writer.Records("session-1")
	require.True(t, ok)
	assert.Equal(t, res.Records, written)
	assert.Equal(t, session.DefaultExperiment, meta.Experiment)

	journaled, err := f.journal.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, res.Records, journaled)

	assert.Equal(t, 30*time.Second, f.rig.Clock().Sleeps()[0], "acclimation comes first")
	assert.Equal(t, 1, f.rig.Closed())
	log := f.rig.Log()
	assert.Equal(t, []string{"clear", "close"}, log[len(log)-2:])

	require.NotNil(t, ended)
	assert.Equal(t, "completed", ended.Reason)
	assert.Equal(t, 100, ended.Trials)
}

func TestController_AbortAfterTrial47(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelledAt int
	c := f.controller(t, trial.Config{Feedback: time.Second}, domain.LifecycleHooks{
		OnTrialComplete: func(_ context.Context, rec *domain.TrialRecord) {
			if rec.TrialNumber == 47 {
				cancel()
				cancelledAt = len(f.rig.Log())
			}
		},
	}, session.Timing{ITI: time.Second})

	res, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, session.ReasonAborted, res.Reason)
	require.Len(t, res.Records, 47)
	assertOrdered(t, res.Records, f.specs)

	written, _, ok := f.writer.Records("session-1")
	require.True(t, ok)
	require.Len(t, written, 47)
	for i, rec := range written {
		assert.Equal(t, i+1, rec.TrialNumber, "no duplicate or missing trials")
	}

	// Only teardown happens after cancellation.
	assert.Equal(t, []string{"clear", "close"}, f.rig.Log()[cancelledAt:])
}

func TestController_AbortMidTrialDiscardsIt(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := f.controller(t, trial.Config{}, domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			if e.Trial == 48 && e.Stage == domain.StageStimulusOnset {
				cancel()
			}
		},
	}, session.Timing{})

	res, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ReasonAborted, res.Reason)
	assert.Len(t, res.Records, 47)
	assert.Equal(t, 0, f.rig.Feeds()-countFood(res.Records), "no feeder activity for the discarded trial")

	written, _, ok := f.writer.Records("session-1")
	require.True(t, ok)
	assert.Len(t, written, 47)
}

func countFood(recs []domain.TrialRecord) int {
	n := 0
	for _, r := range recs {
		if r.Outcome == domain.OutcomeFood {
			n++
		}
	}
	return n
}

func TestController_DeviceFault(t *testing.T) {
	f := newFixture(t)
	always := trial.Probabilities{Informative: 1, NonInformative: 1, NonInformativeS1: 0.2}
	c := f.controller(t, trial.Config{Probabilities: always}, domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			if e.Trial == 10 && e.Stage == domain.StageStimulusOnset {
				f.rig.FeederErr = fmt.Errorf("hopper relay: %w", domain.ErrDeviceFault)
			}
		},
	}, session.Timing{ITI: time.Second})

	res, err := c.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrDeviceFault)

	assert.Equal(t, session.ReasonFault, res.Reason)
	require.Len(t, res.Records, 10, "the faulted trial reached its outcome and is kept")
	assert.NotEmpty(t, res.Records[9].Anomaly)
	assert.Equal(t, 1, f.rig.Closed())

	written, _, ok := f.writer.Records("session-1")
	require.True(t, ok)
	assert.Len(t, written, 10)
}

func TestController_RecoverableFeederErrorContinues(t *testing.T) {
	f := newFixture(t)
	f.rig.FeederErr = fmt.Errorf("hopper slow to rise")
	always := trial.Probabilities{Informative: 1, NonInformative: 1, NonInformativeS1: 0.2}
	c := f.controller(t, trial.Config{Probabilities: always}, domain.LifecycleHooks{}, session.Timing{})

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 100)
	for _, rec := range res.Records {
		assert.Contains(t, rec.Anomaly, "hopper slow to rise")
	}
}

func TestController_TimeLimit(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t, trial.Config{}, domain.LifecycleHooks{}, session.Timing{
		ITI:   10 * time.Second,
		Limit: time.Minute,
	})

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.ReasonTimeLimit, res.Reason)
	assert.NotEmpty(t, res.Records)
	assert.Less(t, len(res.Records), 100)
	assertOrdered(t, res.Records, f.specs)
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)
	exec, err := trial.New(f.rig, trial.Config{Subject: testutils.Subject()})
	require.NoError(t, err)

	_, err = session.New(f.rig, exec, nil, f.state)
	assert.Error(t, err)

	_, err = session.New(nil, exec, f.specs, f.state)
	assert.Error(t, err)
}
