package trial

import (
	"fmt"
	"strings"

	"github.com/aretw0/operant/pkg/domain"
)

// Screen geometry of the chamber display (800x600).
var (
	leftKeyBounds      = domain.Rect{X1: 150, Y1: 250, X2: 250, Y2: 350}
	rightKeyBounds     = domain.Rect{X1: 550, Y1: 250, X2: 650, Y2: 350}
	rejectionKeyBounds = domain.Rect{X1: 350, Y1: 250, X2: 450, Y2: 350}
)

// HitMargin is how far outside the drawn key a peck still counts.
const HitMargin = 25

// Region names as they appear in touch events.
const (
	RegionLeftChoice  = "left_choice_key"
	RegionRightChoice = "right_choice_key"
	RegionRejection   = "rejection_key"
)

const (
	choiceKeyColor    = "white"
	rejectionKeyColor = "darkslategrey"
)

// Key is a drawable, touchable stimulus.
type Key struct {
	Region domain.Region
	Shape  domain.Shape
	Color  string
}

func newKey(name string, bounds domain.Rect, shape domain.Shape, color string) Key {
	return Key{
		Region: domain.Region{Name: name, Bounds: bounds, HitBounds: bounds.Grow(HitMargin)},
		Shape:  shape,
		Color:  color,
	}
}

func sideBounds(s domain.Side) domain.Rect {
	if s == domain.SideLeft {
		return leftKeyBounds
	}
	return rightKeyBounds
}

// ChoiceKey is the initial-link key on a side.
func ChoiceKey(s domain.Side) Key {
	name := RegionRightChoice
	if s == domain.SideLeft {
		name = RegionLeftChoice
	}
	return newKey(name, sideBounds(s), domain.ShapeCircle, choiceKeyColor)
}

// OptionKey is the choice key of an option, on the side the subject config assigns it.
func OptionKey(cfg domain.SubjectConfig, o domain.Option) Key {
	return ChoiceKey(cfg.SideOf(o))
}

// RejectionKey is the center key offered on rejection trials.
func RejectionKey() Key {
	return newKey(RegionRejection, rejectionKeyBounds, domain.ShapeCross, rejectionKeyColor)
}

// TerminalKey is the terminal-link stimulus shown after choosing o.
// Keys are named <side><l|r>_feedback_key, where l marks S+/S1 and r marks S-/S2.
func TerminalKey(cfg domain.SubjectConfig, o domain.Option, stim domain.TerminalStimulus) Key {
	side := cfg.SideOf(o)
	valence := "r"
	if stim == domain.StimulusSPlus || stim == domain.StimulusS1 {
		valence = "l"
	}
	name := string(side)[:1] + valence + "_feedback_key"
	return newKey(name, sideBounds(side), domain.ShapeCircle, cfg.Colors.Color(stim))
}

// PretrainKey is the single key lit on a pre-training trial.
func PretrainKey(cfg domain.SubjectConfig, t domain.TrialType) (Key, error) {
	if !t.IsPretraining() {
		return Key{}, fmt.Errorf("%s is not a pre-training trial", t)
	}
	name := strings.TrimPrefix(string(t), "pretrain-")
	switch name {
	case RegionRejection:
		return RejectionKey(), nil
	case RegionLeftChoice:
		return ChoiceKey(domain.SideLeft), nil
	case RegionRightChoice:
		return ChoiceKey(domain.SideRight), nil
	}

	if len(name) < 2 || !strings.HasSuffix(name, "_feedback_key") {
		return Key{}, fmt.Errorf("unknown pre-training key %q", name)
	}
	side := domain.SideLeft
	if name[0] == 'r' {
		side = domain.SideRight
	}
	o := cfg.OptionOn(side)
	plus := name[1] == 'l'
	var stim domain.TerminalStimulus
	switch {
	case o == domain.OptionInformative && plus:
		stim = domain.StimulusSPlus
	case o == domain.OptionInformative:
		stim = domain.StimulusSMinus
	case plus:
		stim = domain.StimulusS1
	default:
		stim = domain.StimulusS2
	}
	return TerminalKey(cfg, o, stim), nil
}

// OptionForRegion maps a touched choice key back to its option.
func OptionForRegion(cfg domain.SubjectConfig, region string) (domain.Option, bool) {
	switch region {
	case RegionLeftChoice:
		return cfg.OptionOn(domain.SideLeft), true
	case RegionRightChoice:
		return cfg.OptionOn(domain.SideRight), true
	case RegionRejection:
		return domain.OptionRejected, true
	}
	return domain.OptionNone, false
}
