// Package sim provides a feeder that only reports what the hopper would do.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/muesli/termenv"
)

// Feeder implements ports.Feeder without hardware. Each activation is printed
// and the hopper is considered raised until its timer fires.
type Feeder struct {
	out    *termenv.Output
	logger *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	raised bool
	pulses int
	total  time.Duration
}

// NewFeeder prints activations to w. A nil w prints nothing.
func NewFeeder(w io.Writer, logger *slog.Logger) *Feeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &Feeder{logger: logger}
	if w != nil {
		f.out = termenv.NewOutput(w)
	}
	return f
}

func (f *Feeder) ActivateFeeder(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.raised = true
	f.pulses++
	f.total += d
	f.timer = time.AfterFunc(d, func() {
		f.mu.Lock()
		f.raised = false
		f.mu.Unlock()
	})

	f.logger.Info("hopper raised (simulated)", "duration", d)
	if f.out != nil {
		msg := f.out.String(fmt.Sprintf("  ▲ hopper up for %s", d)).Bold()
		fmt.Fprintln(f.out, msg)
	}
	return nil
}

// Raised reports whether the simulated hopper is up.
func (f *Feeder) Raised() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raised
}

// Pulses returns the number of activations and their summed duration.
func (f *Feeder) Pulses() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulses, f.total
}

func (f *Feeder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.raised = false
	return nil
}
