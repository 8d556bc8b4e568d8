package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/operant/pkg/settings"
)

// ValidateSettings checks every row of the settings sheet and reports one line per subject.
// It fails if any row is malformed.
func ValidateSettings(w io.Writer, path string) error {
	sheet, err := settings.Load(path)
	if err != nil {
		return err
	}

	for _, id := range sheet.Subjects() {
		cfg, err := sheet.Subject(id)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "✓ %s: informative %s, hopper %s, rejection FI %s\n",
			id, cfg.InformativeSide, cfg.HopperDuration, cfg.RejectionFIDuration)
	}

	errs := sheet.Errors()
	if len(errs) == 0 {
		printSystemMessage(w, "%s: %d subjects OK", path, len(sheet.Subjects()))
		return nil
	}
	bad := make([]string, 0, len(errs))
	for id := range errs {
		bad = append(bad, id)
	}
	sort.Strings(bad)
	return fmt.Errorf("%d malformed rows: %v", len(bad), bad)
}
