package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the operant banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"   ___  _ __   ___ _ __ __ _ _ __ | |_ ", "#34d399"},
		{"  / _ \\| '_ \\ / _ \\ '__/ _` | '_ \\| __|", "#2dd4bf"},
		{" | (_) | |_) |  __/ | | (_| | | | | |_ ", "#22d3ee"},
		{"  \\___/| .__/ \\___|_|  \\__,_|_| |_|\\__|", "#38bdf8"},
		{"       |_|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  chamber controller "+version).Faint())
	fmt.Fprintln(w)
}
