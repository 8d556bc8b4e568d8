package domain

import (
	"context"
	"time"
)

// TrialStage is a state of the trial executor.
type TrialStage string

const (
	StageStimulusOnset     TrialStage = "stimulus_onset"
	StageResponseWait      TrialStage = "response_wait"
	StageRejectionOffered  TrialStage = "rejection_offered"
	StageOutcomeResolution TrialStage = "outcome_resolution"
	StageReinforcement     TrialStage = "reinforcement_or_timeout"
	StageLogAndExit        TrialStage = "log_and_exit"
)

// TouchKind classifies a peck for the event journal.
type TouchKind string

const (
	TouchKey        TouchKind = "key"
	TouchTerminal   TouchKind = "terminal_link"
	TouchBackground TouchKind = "background"
)

// EventBase contains common fields for all trial events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Trial     int       `json:"trial"`
	TrialType TrialType `json:"trial_type,omitempty"`
}

// StageEvent marks entry into an executor state.
type StageEvent struct {
	EventBase
	Stage TrialStage `json:"stage"`
}

// TouchEvent is a peck observed by the executor.
type TouchEvent struct {
	EventBase
	Stage TrialStage `json:"stage"`
	Kind  TouchKind  `json:"kind"`
	Touch Touch      `json:"touch"`
}

// FeederEvent reports a reinforcement attempt.
type FeederEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// SessionEvent marks the start or end of a session.
type SessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	Phase     Phase     `json:"phase"`
	// Reason is set on end events: completed, aborted, time_limit or fault.
	Reason string `json:"reason,omitempty"`
	Trials int    `json:"trials"`
}

// LifecycleHooks defines callbacks for trial observability.
// All callbacks are invoked from the session's control goroutine.
type LifecycleHooks struct {
	OnStageEnter    func(context.Context, *StageEvent)
	OnTouch         func(context.Context, *TouchEvent)
	OnFeeder        func(context.Context, *FeederEvent)
	OnTrialComplete func(context.Context, *TrialRecord)
	OnSessionStart  func(context.Context, *SessionEvent)
	OnSessionEnd    func(context.Context, *SessionEvent)
}

// MergeHooks fans every callback out to all non-nil hooks, in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *StageEvent) {
			for _, h := range all {
				if h.OnStageEnter != nil {
					h.OnStageEnter(ctx, e)
				}
			}
		},
		OnTouch: func(ctx context.Context, e *TouchEvent) {
			for _, h := range all {
				if h.OnTouch != nil {
					h.OnTouch(ctx, e)
				}
			}
		},
		OnFeeder: func(ctx context.Context, e *FeederEvent) {
			for _, h := range all {
				if h.OnFeeder != nil {
					h.OnFeeder(ctx, e)
				}
			}
		},
		OnTrialComplete: func(ctx context.Context, r *TrialRecord) {
			for _, h := range all {
				if h.OnTrialComplete != nil {
					h.OnTrialComplete(ctx, r)
				}
			}
		},
		OnSessionStart: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				if h.OnSessionStart != nil {
					h.OnSessionStart(ctx, e)
				}
			}
		},
		OnSessionEnd: func(ctx context.Context, e *SessionEvent) {
			for _, h := range all {
				if h.OnSessionEnd != nil {
					h.OnSessionEnd(ctx, e)
				}
			}
		},
	}
}
