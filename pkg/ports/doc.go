/*
Package ports defines the driven ports (interfaces) of the chamber controller.

These interfaces decouple the trial logic from concrete hardware, storage and time,
so the same executor runs against the operant box, the console simulator or a test rig.

# Key Interfaces

  - Display: draws stimuli, registers touchable regions and blanks the screen.
  - Feeder: pulses the food hopper for a duration (fire-and-forget).
  - Hardware: the Display and Feeder pair injected into the session controller.
  - Journal: append-only per-trial persistence used for crash recovery.
  - RecordWriter: writes the output data file at the end of a session.
  - Clock: time source, replaceable in tests.
*/
package ports
