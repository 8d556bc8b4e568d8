package domain_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(n int, tt domain.TrialType) domain.TrialRecord {
	return domain.TrialRecord{
		TrialNumber: n,
		TrialType:   tt,
		SubjectID:   "Zappa",
		Phase:       domain.PhaseChoice.String(),
	}
}

func TestSessionState_Fold(t *testing.T) {
	s := domain.NewSessionState("s1", "Zappa", domain.PhaseChoice, 7, time.Now())

	require.NoError(t, s.Fold(record(1, domain.FreeChoice)))
	require.NoError(t, s.Fold(record(2, domain.FreeChoice)))
	require.NoError(t, s.Fold(record(3, domain.ForcedInformative)))

	assert.Equal(t, 3, s.Index)
	assert.Equal(t, 4, s.NextTrialNumber())
	assert.Equal(t, 2, s.Counts[domain.FreeChoice])
	assert.Equal(t, domain.ForcedInformative, s.LastType)
	assert.Equal(t, 1, s.RunLength)

	t.Run("Out of order", func(t *testing.T) {
		err := s.Fold(record(5, domain.FreeChoice))
		assert.ErrorIs(t, err, domain.ErrRecordOutOfOrder)
		assert.Equal(t, 3, s.Index)
	})

	t.Run("Foreign subject", func(t *testing.T) {
		rec := record(4, domain.FreeChoice)
		rec.SubjectID = "Joplin"
		assert.Error(t, s.Fold(rec))
	})

	t.Run("Snapshot is a copy", func(t *testing.T) {
		snap := s.Snapshot()
		snap[0].TrialNumber = 99
		assert.Equal(t, 1, s.Records[0].TrialNumber)
	})
}

func TestDeck_DrawsWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	d := domain.NewDeck(20, 0.2)

	hits := 0
	for i := 0; i < 20; i++ {
		v, ok := d.Draw(rng)
		require.True(t, ok)
		if v {
			hits++
		}
	}
	assert.Equal(t, 4, hits)

	_, ok := d.Draw(rng)
	assert.False(t, ok, "empty deck")
}

func TestSubjectConfig_Validate(t *testing.T) {
	valid := domain.SubjectConfig{
		SubjectID:           "Zappa",
		HopperDuration:      3 * time.Second,
		RejectionFIDuration: 0,
		InformativeSide:     domain.SideLeft,
		Colors:              domain.StimulusColors{SPlus: "red", SMinus: "green", S1: "yellow", S2: "#0000ff"},
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, domain.SideRight, valid.NonInformativeSide())
	assert.Equal(t, domain.OptionNonInformative, valid.OptionOn(domain.SideRight))

	cases := map[string]func(*domain.SubjectConfig){
		"missing subject": func(c *domain.SubjectConfig) { c.SubjectID = " " },
		"zero hopper":     func(c *domain.SubjectConfig) { c.HopperDuration = 0 },
		"negative FI":     func(c *domain.SubjectConfig) { c.RejectionFIDuration = -time.Millisecond },
		"bad side":        func(c *domain.SubjectConfig) { c.InformativeSide = "up" },
		"missing color":   func(c *domain.SubjectConfig) { c.Colors.S2 = "" },
		"unknown color":   func(c *domain.SubjectConfig) { c.Colors.SPlus = "ultraviolet" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), domain.ErrMalformedSettings)
		})
	}
}

func TestRegion_Hit(t *testing.T) {
	r := domain.Region{
		Name:      "left_choice_key",
		Bounds:    domain.Rect{X1: 150, Y1: 250, X2: 250, Y2: 350},
		HitBounds: domain.Rect{X1: 125, Y1: 225, X2: 275, Y2: 375},
	}
	assert.True(t, r.Hit(200, 300))
	assert.True(t, r.Hit(130, 300), "inside the grown oval")
	assert.False(t, r.Hit(126, 226), "corner of the box is outside the oval")
	assert.False(t, r.Hit(600, 300))
}
