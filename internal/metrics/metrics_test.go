package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHooks(t *testing.T) {
	m := New()
	h := m.Hooks()
	ctx := context.Background()

	h.OnSessionStart(ctx, &domain.SessionEvent{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))

	h.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageStimulusOnset})
	h.OnTouch(ctx, &domain.TouchEvent{Kind: domain.TouchBackground})
	h.OnTouch(ctx, &domain.TouchEvent{Kind: domain.TouchBackground})
	h.OnFeeder(ctx, &domain.FeederEvent{})
	h.OnFeeder(ctx, &domain.FeederEvent{Err: errors.New("jam")})
	h.OnTrialComplete(ctx, &domain.TrialRecord{
		TrialType:    domain.FreeChoice,
		ChosenOption: domain.OptionInformative,
		Outcome:      domain.OutcomeNoFood,
		LatencyMS:    1500,
	})
	h.OnSessionEnd(ctx, &domain.SessionEvent{Reason: "aborted"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("stimulus_onset")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Touches.WithLabelValues("background")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeederPulses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeederPulses.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trials.WithLabelValues("free_choice", "informative", "no_food")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("aborted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Latency))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Hooks().OnTouch(context.Background(), &domain.TouchEvent{Kind: domain.TouchKey})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `operant_touches_total{kind="key"} 1`)
}
