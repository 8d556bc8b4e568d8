package trial

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/aretw0/operant/pkg/domain"
)

// Probabilities are the reinforcement contingencies of the two options.
type Probabilities struct {
	// Informative is P(food) after choosing the informative option. S+ is shown iff food.
	Informative float64 `mapstructure:"informative" json:"informative" yaml:"informative"`
	// NonInformative is P(food) after choosing the non-informative option.
	NonInformative float64 `mapstructure:"noninformative" json:"noninformative" yaml:"noninformative"`
	// NonInformativeS1 is P(S1) on non-informative trials, drawn independently of food.
	NonInformativeS1 float64 `mapstructure:"noninformative_s1" json:"noninformative_s1" yaml:"noninformative_s1"`
}

// DefaultProbabilities returns the suboptimal-choice contingencies.
func DefaultProbabilities() Probabilities {
	return Probabilities{Informative: 0.2, NonInformative: 0.5, NonInformativeS1: 0.2}
}

// Validate checks that every probability lies in [0, 1].
func (p Probabilities) Validate() error {
	for name, v := range map[string]float64{
		"informative":       p.Informative,
		"noninformative":    p.NonInformative,
		"noninformative_s1": p.NonInformativeS1,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("probability %s must be within [0, 1] (got %g)", name, v)
		}
	}
	return nil
}

// OutcomePolicy selects how forced-choice outcomes are drawn.
type OutcomePolicy string

const (
	// PolicyIndependent draws every outcome fresh from the trial's probabilities.
	PolicyIndependent OutcomePolicy = "independent"
	// PolicyBalancedForced draws forced-choice outcomes without replacement from
	// per-session decks so the realized rates equal the nominal ones.
	PolicyBalancedForced OutcomePolicy = "balanced_forced"
)

// ParseOutcomePolicy validates a policy name. Empty means independent.
func ParseOutcomePolicy(s string) (OutcomePolicy, error) {
	switch OutcomePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyIndependent:
		return PolicyIndependent, nil
	case PolicyBalancedForced:
		return PolicyBalancedForced, nil
	}
	return "", fmt.Errorf("unknown outcome policy %q", s)
}

// NewDecks sizes the balanced decks from the forced trials of a sequence.
func NewDecks(specs []domain.TrialSpec, p Probabilities) *domain.OutcomeDecks {
	var informative, nonInformative int
	for _, s := range specs {
		switch s.Type {
		case domain.ForcedInformative:
			informative++
		case domain.ForcedNonInformative:
			nonInformative++
		}
	}
	return &domain.OutcomeDecks{
		InformativeFood:    domain.NewDeck(informative, p.Informative),
		NonInformativeFood: domain.NewDeck(nonInformative, p.NonInformative),
		NonInformativeS1:   domain.NewDeck(nonInformative, p.NonInformativeS1),
	}
}

// Resolution is the terminal link and outcome of a choice.
type Resolution struct {
	Stimulus domain.TerminalStimulus
	Outcome  domain.Outcome
}

// Resolve draws the outcome of choosing o. forced selects the session decks
// when they exist; otherwise every draw is a fresh uniform variate from rng.
func Resolve(o domain.Option, forced bool, p Probabilities, rng *rand.Rand, decks *domain.OutcomeDecks) Resolution {
	if !forced {
		decks = nil
	}
	switch o {
	case domain.OptionInformative:
		var d *domain.Deck
		if decks != nil {
			d = decks.InformativeFood
		}
		if draw(rng, d, p.Informative) {
			return Resolution{Stimulus: domain.StimulusSPlus, Outcome: domain.OutcomeFood}
		}
		return Resolution{Stimulus: domain.StimulusSMinus, Outcome: domain.OutcomeNoFood}

	case domain.OptionNonInformative:
		var food, s1 *domain.Deck
		if decks != nil {
			food, s1 = decks.NonInformativeFood, decks.NonInformativeS1
		}
		r := Resolution{Stimulus: domain.StimulusS2, Outcome: domain.OutcomeNoFood}
		if draw(rng, food, p.NonInformative) {
			r.Outcome = domain.OutcomeFood
		}
		if draw(rng, s1, p.NonInformativeS1) {
			r.Stimulus = domain.StimulusS1
		}
		return r
	}
	return Resolution{Outcome: domain.OutcomeNoFood}
}

// draw takes the next card of d, falling back to a fresh draw once d is nil or empty.
func draw(rng *rand.Rand, d *domain.Deck, p float64) bool {
	if d != nil {
		if v, ok := d.Draw(rng); ok {
			return v
		}
	}
	return rng.Float64() < p
}
