package domain

import "errors"

// ErrSettingsNotFound is returned when the settings sheet cannot be opened.
var ErrSettingsNotFound = errors.New("settings file not found")

// ErrMalformedSettings is returned when a settings row cannot be decoded or validated.
var ErrMalformedSettings = errors.New("malformed settings")

// ErrSubjectNotFound is returned when no settings row matches the requested subject.
var ErrSubjectNotFound = errors.New("subject not found in settings")

// ErrSequenceExhausted is returned when the sequencer cannot satisfy the run-length
// constraint, even after repair. It is a logic error and must stop the session before it starts.
var ErrSequenceExhausted = errors.New("trial sequence constraint could not be satisfied")

// ErrDeviceFault is returned (wrapped) by hardware adapters for unrecoverable device failures.
var ErrDeviceFault = errors.New("fatal device fault")

// ErrSessionNotFound is returned when a session ID cannot be found in a journal.
var ErrSessionNotFound = errors.New("session not found")

// ErrRecordOutOfOrder is returned when a record is folded into a session out of sequence.
var ErrRecordOutOfOrder = errors.New("trial record out of order")
