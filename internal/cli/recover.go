package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/operant/internal/adapters/file"
	"github.com/aretw0/operant/internal/config"
	"github.com/aretw0/operant/pkg/session"
)

// RecoverSession rewrites the data file of an interrupted session from its journal.
func RecoverSession(ctx context.Context, w io.Writer, cfg *config.Config, sessionID string) error {
	journal, closeJournal, err := createJournal(cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	path, recs, err := session.Recover(ctx, journal, file.NewRecordWriter(cfg.DataDir), sessionID, cfg.Experiment)
	if err != nil {
		return err
	}
	printSystemMessage(w, "Recovered %d trials of %s into %s", len(recs), sessionID, path)
	return nil
}

// ListSessions prints the IDs of every journaled session.
func ListSessions(ctx context.Context, w io.Writer, cfg *config.Config) error {
	journal, closeJournal, err := createJournal(cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	ids, err := journal.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printSystemMessage(w, "No journaled sessions.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}
