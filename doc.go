/*
Package operant runs suboptimal-choice experiments in a pigeon touchscreen chamber.

A session shows the subject an initial-link choice between an informative and a
non-informative option, followed by a terminal-link stimulus and, with some
probability, access to the food hopper. Each session follows a pre-generated,
seeded trial sequence and produces one CSV data file with one row per trial.

# Architecture

The controller is hexagonal. The experiment logic lives in pkg/ and only talks to
the chamber through the ports in pkg/ports:

  - pkg/sequence builds block-balanced trial sequences with a cap on repeated types.
  - pkg/trial runs one trial through its stages and resolves the contingencies.
  - pkg/session runs acclimation, the trial loop and teardown, journaling each
    completed trial so an interrupted session can be recovered.
  - pkg/settings reads the per-subject settings sheet.

Adapters in internal/adapters drive a console or HTTP display and a GPIO,
command-line or simulated hopper. The operant command in cmd/operant wires them
together from an operant.yaml file, OPERANT_* environment variables and flags.

# Usage

	operant config init
	operant validate-settings P037_subject_settings.csv
	operant run --subject Zappa --phase 1
	operant recover            # list journaled sessions
	operant recover <session>  # rewrite the data file of an interrupted session
*/
package operant
