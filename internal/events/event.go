// Package events keeps the per-peck event log of a session: every touch,
// stimulus onset, feeder pulse and session boundary, one JSON object per line.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/operant/pkg/domain"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventStage         EventType = "stage"
	EventTouch         EventType = "touch"
	EventFeeder        EventType = "feeder"
	EventTrialComplete EventType = "trial_complete"
	EventSessionEnd    EventType = "session_end"
)

// Event is one line of the event log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	// SessionMS is the time since the session started.
	SessionMS int64     `json:"session_ms"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`

	Trial     int              `json:"trial,omitempty"`
	TrialType domain.TrialType `json:"trial_type,omitempty"`
	Stage     string           `json:"stage,omitempty"`

	Kind   domain.TouchKind `json:"kind,omitempty"`
	Region string           `json:"region,omitempty"`
	X      float64          `json:"x,omitempty"`
	Y      float64          `json:"y,omitempty"`

	DurationMS int64  `json:"duration_ms,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Writer receives events. *FileSink implements it.
type Writer interface {
	WriteOne(Event) error
}

// Hooks records every lifecycle callback into w. Write failures are logged and
// never interrupt the session.
func Hooks(w Writer, sessionID string, start time.Time, logger *slog.Logger) domain.LifecycleHooks {
	emit := func(e Event) {
		e.SessionID = sessionID
		e.SessionMS = e.Timestamp.Sub(start).Milliseconds()
		if err := w.WriteOne(e); err != nil {
			logger.Warn("event log write failed", "type", e.Type, "err", err)
		}
	}

	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			emit(Event{Timestamp: e.Timestamp, Type: EventSessionStart})
		},
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			emit(Event{
				Timestamp: e.Timestamp,
				Type:      EventStage,
				Trial:     e.Trial,
				TrialType: e.TrialType,
				Stage:     string(e.Stage),
			})
		},
		OnTouch: func(_ context.Context, e *domain.TouchEvent) {
			ts := e.Touch.At
			if ts.IsZero() {
				ts = e.Timestamp
			}
			emit(Event{
				Timestamp: ts,
				Type:      EventTouch,
				Trial:     e.Trial,
				TrialType: e.TrialType,
				Stage:     string(e.Stage),
				Kind:      e.Kind,
				Region:    e.Touch.Region,
				X:         e.Touch.X,
				Y:         e.Touch.Y,
			})
		},
		OnFeeder: func(_ context.Context, e *domain.FeederEvent) {
			ev := Event{
				Timestamp:  e.Timestamp,
				Type:       EventFeeder,
				Trial:      e.Trial,
				TrialType:  e.TrialType,
				DurationMS: e.Duration.Milliseconds(),
			}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			emit(ev)
		},
		OnTrialComplete: func(_ context.Context, r *domain.TrialRecord) {
			emit(Event{
				Timestamp: r.Timestamp,
				Type:      EventTrialComplete,
				Trial:     r.TrialNumber,
				TrialType: r.TrialType,
				Outcome:   string(r.Outcome),
				Error:     r.Anomaly,
			})
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			emit(Event{Timestamp: e.Timestamp, Type: EventSessionEnd, Reason: e.Reason, Trial: e.Trials})
		},
	}
}

// FilterByType filters events by event type.
func FilterByType(events []Event, types ...EventType) []Event {
	if len(types) == 0 {
		return events
	}
	typeSet := make(map[EventType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var filtered []Event
	for _, e := range events {
		if typeSet[e.Type] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
