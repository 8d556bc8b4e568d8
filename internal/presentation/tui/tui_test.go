package tui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "chamber controller 1.2.3")
}

func TestStartScreen(t *testing.T) {
	md := StartScreen(SessionInfo{
		SessionID:  "s1",
		Subject:    domain.SubjectConfig{SubjectID: "Zappa", InformativeSide: domain.SideLeft, HopperDuration: 3 * time.Second},
		Phase:      domain.PhaseChoice,
		Experiment: "P037",
		Trials:     100,
		Seed:       42,
	})
	assert.Contains(t, md, "**Zappa**")
	assert.Contains(t, md, "1: Sub-Optimal Choice Training")
	assert.Contains(t, md, "press **Enter**")
}

func TestSummary(t *testing.T) {
	md := Summary(SummaryInfo{
		Reason: "time_limit",
		Records: []domain.TrialRecord{
			{TrialType: domain.FreeChoice, ChosenOption: domain.OptionInformative, Outcome: domain.OutcomeFood},
			{TrialType: domain.FreeChoice, ChosenOption: domain.OptionNonInformative, Outcome: domain.OutcomeNoFood},
			{TrialType: domain.RejectionInformative, Rejected: true, Outcome: domain.OutcomeFood},
		},
		Path:     "data/Zappa/x.csv",
		Err:      errors.New("disk full"),
		Recovery: "operant recover s1",
	})
	assert.Contains(t, md, "# Session time limit")
	assert.Contains(t, md, "Trials: **3**")
	assert.Contains(t, md, "Food deliveries: 2")
	assert.Contains(t, md, "Rejections: 1")
	assert.Contains(t, md, "Informative on free choice: 1/2")
	assert.Contains(t, md, "disk full")
	assert.Contains(t, md, "operant recover s1")
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("# Hello")
	assert.NoError(t, err)
	assert.Contains(t, out, "Hello")
}
