package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side is a physical side of the chamber screen.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left"/"right" in any case ("Left" in the settings sheet).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	}
	return "", fmt.Errorf("invalid side %q (must be left or right)", s)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// StimulusColors assigns a color to each terminal-link stimulus.
// S+ and S- belong to the informative option, S1 and S2 to the non-informative one.
type StimulusColors struct {
	SPlus  string `json:"s_plus"`
	SMinus string `json:"s_minus"`
	S1     string `json:"s1"`
	S2     string `json:"s2"`
}

// Color returns the color assigned to a terminal stimulus.
func (c StimulusColors) Color(s TerminalStimulus) string {
	switch s {
	case StimulusSPlus:
		return c.SPlus
	case StimulusSMinus:
		return c.SMinus
	case StimulusS1:
		return c.S1
	case StimulusS2:
		return c.S2
	}
	return ""
}

// SubjectConfig holds the per-subject parameters of a session.
// It is loaded once at startup and never changes during the session.
type SubjectConfig struct {
	SubjectID           string         `json:"subject_id"`
	HopperDuration      time.Duration  `json:"hopper_duration"`
	RejectionFIDuration time.Duration  `json:"rejection_fi_duration"`
	InformativeSide     Side           `json:"informative_side"`
	Colors              StimulusColors `json:"colors"`
}

// NonInformativeSide is always opposite the informative side.
func (c SubjectConfig) NonInformativeSide() Side {
	return c.InformativeSide.Opposite()
}

// SideOf returns the screen side of a choice option.
func (c SubjectConfig) SideOf(o Option) Side {
	if o == OptionNonInformative {
		return c.NonInformativeSide()
	}
	return c.InformativeSide
}

// OptionOn returns the option presented on a side.
func (c SubjectConfig) OptionOn(s Side) Option {
	if s == c.InformativeSide {
		return OptionInformative
	}
	return OptionNonInformative
}

// Validate checks that the configuration can drive a session.
func (c SubjectConfig) Validate() error {
	if strings.TrimSpace(c.SubjectID) == "" {
		return fmt.Errorf("%w: subject id is required", ErrMalformedSettings)
	}
	if c.HopperDuration <= 0 {
		return fmt.Errorf("%w: hopper duration must be positive (got %s)", ErrMalformedSettings, c.HopperDuration)
	}
	if c.RejectionFIDuration < 0 {
		return fmt.Errorf("%w: rejection FI duration cannot be negative (got %s)", ErrMalformedSettings, c.RejectionFIDuration)
	}
	if _, err := ParseSide(string(c.InformativeSide)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSettings, err)
	}
	for _, s := range []TerminalStimulus{StimulusSPlus, StimulusSMinus, StimulusS1, StimulusS2} {
		color := c.Colors.Color(s)
		if color == "" {
			return fmt.Errorf("%w: missing color for %s", ErrMalformedSettings, s)
		}
		if _, err := ResolveColor(color); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedSettings, s, err)
		}
	}
	return nil
}
