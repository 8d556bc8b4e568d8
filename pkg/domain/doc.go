/*
Package domain contains the core domain models of the operant chamber controller.

It defines the entities shared by the sequencer, the trial executor and the session
controller. This package is kept free of I/O and persistence, following the same
hexagonal split as the adapters under internal/.

# Key Entities

  - TrialType / TrialSpec: what kind of trial runs at which position of the session.
  - SubjectConfig: per-subject parameters loaded from the settings sheet.
  - TrialRecord: one output row per completed trial.
  - SessionState: the running snapshot owned by the session controller.
  - Region / Touch: screen geometry and the touch events produced by a display.
*/
package domain
