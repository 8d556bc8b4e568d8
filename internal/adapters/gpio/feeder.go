// Package gpio drives the hopper and house light through Linux sysfs GPIO value files.
package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
)

// Pin is an exported sysfs GPIO line, e.g. /sys/class/gpio/gpio17/value.
type Pin struct {
	Path string
	// ActiveLow inverts the written level.
	ActiveLow bool
}

// Set drives the line.
func (p Pin) Set(on bool) error {
	level := on != p.ActiveLow
	v := []byte("0")
	if level {
		v = []byte("1")
	}
	// sysfs value files exist already; never create one.
	f, err := os.OpenFile(p.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Feeder implements ports.Feeder by raising the hopper line for the requested
// duration. A timer lowers it, so ActivateFeeder returns immediately.
type Feeder struct {
	hopper Pin
	light  *Pin

	mu     sync.Mutex
	timer  *time.Timer
	raised bool
	closed bool
	logger *slog.Logger
}

// Option configures the Feeder.
type Option func(*Feeder)

// WithHouseLight switches the house light off while the hopper is raised.
func WithHouseLight(p Pin) Option {
	return func(f *Feeder) {
		f.light = &p
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feeder) {
		f.logger = logger
	}
}

// NewFeeder creates a feeder on the hopper pin, lowered.
func NewFeeder(hopper Pin, opts ...Option) (*Feeder, error) {
	f := &Feeder{hopper: hopper, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.hopper.Set(false); err != nil {
		return nil, fmt.Errorf("%w: hopper %s: %v", domain.ErrDeviceFault, hopper.Path, err)
	}
	if f.light != nil {
		if err := f.light.Set(true); err != nil {
			return nil, fmt.Errorf("%w: house light %s: %v", domain.ErrDeviceFault, f.light.Path, err)
		}
	}
	return f, nil
}

// ActivateFeeder raises the hopper for d. Activating a raised hopper extends
// the pulse to d from now.
func (f *Feeder) ActivateFeeder(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("%w: feeder is closed", domain.ErrDeviceFault)
	}

	if f.timer != nil {
		f.timer.Stop()
	}
	if !f.raised {
		if err := f.hopper.Set(true); err != nil {
			return fmt.Errorf("%w: raise hopper: %v", domain.ErrDeviceFault, err)
		}
		f.raised = true
		if f.light != nil {
			if err := f.light.Set(false); err != nil {
				f.logger.Warn("house light off failed", "err", err)
			}
		}
	}
	f.logger.Debug("hopper raised", "duration", d)
	f.timer = time.AfterFunc(d, f.lower)
	return nil
}

func (f *Feeder) lower() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lowerLocked()
}

func (f *Feeder) lowerLocked() {
	if !f.raised {
		return
	}
	if err := f.hopper.Set(false); err != nil {
		f.logger.Error("lower hopper failed", "err", err)
		return
	}
	f.raised = false
	if f.light != nil {
		if err := f.light.Set(true); err != nil {
			f.logger.Warn("house light on failed", "err", err)
		}
	}
	f.logger.Debug("hopper lowered")
}

// Raised reports whether the hopper is up.
func (f *Feeder) Raised() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raised
}

// Close lowers the hopper and switches the house light off.
func (f *Feeder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.lowerLocked()
	if err := f.hopper.Set(false); err != nil {
		return fmt.Errorf("lower hopper: %w", err)
	}
	if f.light != nil {
		if err := f.light.Set(false); err != nil {
			return fmt.Errorf("house light: %w", err)
		}
	}
	return nil
}
