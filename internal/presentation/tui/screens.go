package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/operant/pkg/domain"
)

// SessionInfo describes the session about to start.
type SessionInfo struct {
	SessionID  string
	Subject    domain.SubjectConfig
	Phase      domain.Phase
	Experiment string
	Trials     int
	Seed       uint64
	Mode       string
}

// StartScreen is the markdown shown before acclimation begins.
func StartScreen(info SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment %s\n\n", info.Experiment)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Subject | **%s** |\n", info.Subject.SubjectID)
	fmt.Fprintf(&b, "| Phase | %s |\n", info.Phase.Title())
	fmt.Fprintf(&b, "| Trials | %d |\n", info.Trials)
	fmt.Fprintf(&b, "| Informative side | %s |\n", info.Subject.InformativeSide)
	fmt.Fprintf(&b, "| Hopper | %s |\n", info.Subject.HopperDuration)
	fmt.Fprintf(&b, "| Rejection FI | %s |\n", info.Subject.RejectionFIDuration)
	fmt.Fprintf(&b, "| Seed | `%d` |\n", info.Seed)
	fmt.Fprintf(&b, "| Mode | %s |\n", info.Mode)
	fmt.Fprintf(&b, "| Session | `%s` |\n\n", info.SessionID)
	b.WriteString("> Place the bird in the box, then press **Enter** to begin.\n")
	return b.String()
}

// SummaryInfo describes a finished session.
type SummaryInfo struct {
	Reason   string
	Records  []domain.TrialRecord
	Path     string
	Elapsed  time.Duration
	Err      error
	Recovery string
}

// Summary is the markdown shown after teardown.
func Summary(info SummaryInfo) string {
	var food, rejected, free, freeInformative int
	for _, r := range info.Records {
		if r.Outcome == domain.OutcomeFood {
			food++
		}
		if r.Rejected {
			rejected++
		}
		if r.TrialType == domain.FreeChoice {
			free++
			if r.ChosenOption == domain.OptionInformative {
				freeInformative++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", strings.ReplaceAll(info.Reason, "_", " "))
	fmt.Fprintf(&b, "- Trials: **%d**\n", len(info.Records))
	fmt.Fprintf(&b, "- Food deliveries: %d\n", food)
	fmt.Fprintf(&b, "- Rejections: %d\n", rejected)
	if free > 0 {
		fmt.Fprintf(&b, "- Informative on free choice: %d/%d\n", freeInformative, free)
	}
	if info.Elapsed > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", info.Elapsed.Round(time.Second))
	}
	if info.Path != "" {
		fmt.Fprintf(&b, "\nData written to `%s`\n", info.Path)
	}
	if info.Err != nil {
		fmt.Fprintf(&b, "\n**Error:** %v\n", info.Err)
	}
	if info.Recovery != "" {
		fmt.Fprintf(&b, "\nRecover the data with `%s`\n", info.Recovery)
	}
	return b.String()
}
