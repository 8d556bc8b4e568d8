package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TrialType identifies the kind of trial presented at a position of the session.
type TrialType string

const (
	ForcedInformative       TrialType = "forced_choice-informative"
	ForcedNonInformative    TrialType = "forced_choice-noninformative"
	FreeChoice              TrialType = "free_choice"
	RejectionInformative    TrialType = "rejection-informative"
	RejectionNonInformative TrialType = "rejection-noninformative"

	// Pre-training: a single key is lit and pecking it (FR times) is reinforced.
	PretrainRejectionKey TrialType = "pretrain-rejection_key"
	PretrainLeftChoice   TrialType = "pretrain-left_choice_key"
	PretrainRightChoice  TrialType = "pretrain-right_choice_key"
	PretrainLeftFirst    TrialType = "pretrain-ll_feedback_key"
	PretrainLeftSecond   TrialType = "pretrain-lr_feedback_key"
	PretrainRightFirst   TrialType = "pretrain-rl_feedback_key"
	PretrainRightSecond  TrialType = "pretrain-rr_feedback_key"
)

// ChoiceTrialTypes lists the trial types of the choice-training phase.
var ChoiceTrialTypes = []TrialType{
	ForcedInformative,
	ForcedNonInformative,
	RejectionInformative,
	RejectionNonInformative,
	FreeChoice,
}

// PretrainTrialTypes lists the key types of the pre-training phase.
var PretrainTrialTypes = []TrialType{
	PretrainRejectionKey,
	PretrainLeftChoice,
	PretrainRightChoice,
	PretrainLeftFirst,
	PretrainLeftSecond,
	PretrainRightFirst,
	PretrainRightSecond,
}

// ParseTrialType validates a trial type string.
func ParseTrialType(s string) (TrialType, error) {
	t := TrialType(strings.TrimSpace(s))
	for _, known := range ChoiceTrialTypes {
		if t == known {
			return t, nil
		}
	}
	for _, known := range PretrainTrialTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown trial type %q", s)
}

// IsForced reports whether only one option is presented.
func (t TrialType) IsForced() bool {
	return t == ForcedInformative || t == ForcedNonInformative
}

// IsRejection reports whether the rejection key is offered alongside the option.
func (t TrialType) IsRejection() bool {
	return t == RejectionInformative || t == RejectionNonInformative
}

// IsPretraining reports whether the type belongs to the pre-training phase.
func (t TrialType) IsPretraining() bool {
	return strings.HasPrefix(string(t), "pretrain-")
}

// Offered returns the option presented first on forced and rejection trials.
// Free-choice and pre-training trials return OptionNone.
func (t TrialType) Offered() Option {
	switch t {
	case ForcedInformative, RejectionInformative:
		return OptionInformative
	case ForcedNonInformative, RejectionNonInformative:
		return OptionNonInformative
	}
	return OptionNone
}

// Option is the choice made by the subject on a trial.
type Option string

const (
	OptionInformative    Option = "informative"
	OptionNonInformative Option = "noninformative"
	OptionRejected       Option = "rejected"
	OptionNone           Option = "none"
)

// Alternative returns the other choice option.
func (o Option) Alternative() Option {
	switch o {
	case OptionInformative:
		return OptionNonInformative
	case OptionNonInformative:
		return OptionInformative
	}
	return OptionNone
}

// Outcome is the reinforcement result of a trial.
type Outcome string

const (
	OutcomeFood   Outcome = "food"
	OutcomeNoFood Outcome = "no_food"
)

// TerminalStimulus identifies the terminal-link stimulus shown after a choice.
type TerminalStimulus string

const (
	StimulusSPlus  TerminalStimulus = "S+"
	StimulusSMinus TerminalStimulus = "S-"
	StimulusS1     TerminalStimulus = "S1"
	StimulusS2     TerminalStimulus = "S2"
)

// Phase is the experimental phase of a session.
type Phase int

const (
	PhasePretraining Phase = 0
	PhaseChoice      Phase = 1
)

// ParsePhase accepts the numeric phase ("0", "1") or its label.
func ParsePhase(s string) (Phase, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0", "pretraining", "pre-training":
		return PhasePretraining, nil
	case "1", "choice", "choice_training":
		return PhaseChoice, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) String() string {
	switch p {
	case PhasePretraining:
		return "pretraining"
	case PhaseChoice:
		return "choice_training"
	}
	return "phase" + strconv.Itoa(int(p))
}

// Title is the operator-facing name of the phase.
func (p Phase) Title() string {
	switch p {
	case PhasePretraining:
		return "0: Pre-Training"
	case PhaseChoice:
		return "1: Sub-Optimal Choice Training"
	}
	return p.String()
}

// TrialSpec describes one entry of the generated session sequence.
type TrialSpec struct {
	Type     TrialType `json:"trial_type"`
	Block    int       `json:"block"`
	Position int       `json:"position"`
}

// TrialRecord is the output row of one completed trial.
// Records are never mutated once folded into a SessionState.
type TrialRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	TrialNumber      int       `json:"trial_number"`
	TrialType        TrialType `json:"trial_type"`
	Block            int       `json:"block"`
	ChosenOption     Option    `json:"chosen_option"`
	Rejected         bool      `json:"rejected"`
	RejectionDelayMS int64     `json:"rejection_delay_ms"`
	TouchX           float64   `json:"touch_x"`
	TouchY           float64   `json:"touch_y"`
	TerminalStimulus string    `json:"terminal_stimulus"`
	Outcome          Outcome   `json:"outcome"`
	SubjectID        string    `json:"subject_id"`
	Phase            string    `json:"phase"`
	LatencyMS        int64     `json:"latency_ms"`
	Anomaly          string    `json:"anomaly,omitempty"`
}

// Complete reports whether the trial reached its outcome. Records of trials
// interrupted before that point are discarded.
func (r TrialRecord) Complete() bool {
	return r.Outcome != ""
}

// RecordHeader is the fixed column header of the output data file.
var RecordHeader = []string{
	"timestamp",
	"trial_number",
	"trial_type",
	"block",
	"chosen_option",
	"rejection_flag",
	"rejection_delay_ms",
	"touch_x",
	"touch_y",
	"terminal_stimulus",
	"outcome",
	"subject_id",
	"phase",
	"latency_ms",
	"anomaly",
}

// Fields renders the record in RecordHeader column order.
func (r TrialRecord) Fields() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		strconv.Itoa(r.TrialNumber),
		string(r.TrialType),
		strconv.Itoa(r.Block),
		string(r.ChosenOption),
		strconv.FormatBool(r.Rejected),
		strconv.FormatInt(r.RejectionDelayMS, 10),
		strconv.FormatFloat(r.TouchX, 'f', -1, 64),
		strconv.FormatFloat(r.TouchY, 'f', -1, 64),
		r.TerminalStimulus,
		string(r.Outcome),
		r.SubjectID,
		r.Phase,
		strconv.FormatInt(r.LatencyMS, 10),
		r.Anomaly,
	}
}

// SessionMeta identifies a session for persistence.
type SessionMeta struct {
	SessionID  string    `json:"session_id"`
	SubjectID  string    `json:"subject_id"`
	Phase      Phase     `json:"phase"`
	Experiment string    `json:"experiment"`
	StartedAt  time.Time `json:"started_at"`
}
