package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/sequence"
)

// PrintSequence writes the trial sequence a session with this phase and seed would run.
func PrintSequence(w io.Writer, phase domain.Phase, seed uint64) error {
	specs, err := generate(phase, seed, logging.NewNop())
	if err != nil {
		return err
	}
	comp, blocks := sequence.ForPhase(phase)
	if err := sequence.Validate(specs, comp, blocks, sequence.DefaultMaxRun); err != nil {
		return fmt.Errorf("generated sequence is invalid: %w", err)
	}

	fmt.Fprintf(w, "# %s, seed %d, %d trials\n", phase.Title(), seed, len(specs))
	for _, s := range specs {
		fmt.Fprintf(w, "%3d  block %d  %s\n", s.Position, s.Block, s.Type)
	}
	return nil
}
