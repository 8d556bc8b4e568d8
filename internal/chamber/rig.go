// Package chamber composes a display and a feeder into the hardware the
// session controller drives.
package chamber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/ports"
)

// Rig implements ports.Hardware. When the display can report background
// touches, so does the rig.
type Rig struct {
	Display ports.Display
	Feeder  ports.Feeder

	once     sync.Once
	closeErr error
}

var (
	_ ports.Hardware           = (*Rig)(nil)
	_ ports.BackgroundReporter = (*Rig)(nil)
)

// New creates a rig. Both parts are required.
func New(display ports.Display, feeder ports.Feeder) (*Rig, error) {
	if display == nil || feeder == nil {
		return nil, errors.New("rig requires a display and a feeder")
	}
	return &Rig{Display: display, Feeder: feeder}, nil
}

func (r *Rig) DrawStimulus(region domain.Region, shape domain.Shape, color string) error {
	return r.Display.DrawStimulus(region, shape, color)
}

func (r *Rig) RegisterHitRegion(region domain.Region, onTouch func(domain.Touch)) error {
	return r.Display.RegisterHitRegion(region, onTouch)
}

func (r *Rig) ClearDisplay() error {
	return r.Display.ClearDisplay()
}

func (r *Rig) ActivateFeeder(ctx context.Context, d time.Duration) error {
	return r.Feeder.ActivateFeeder(ctx, d)
}

// OnBackgroundTouch forwards to the display, if it supports it.
func (r *Rig) OnBackgroundTouch(fn func(domain.Touch)) {
	if br, ok := r.Display.(ports.BackgroundReporter); ok {
		br.OnBackgroundTouch(fn)
	}
}

// Close blanks the display and closes both parts. Later calls return the
// first result.
func (r *Rig) Close() error {
	r.once.Do(func() {
		var errs []error
		if err := r.Display.ClearDisplay(); err != nil {
			errs = append(errs, fmt.Errorf("clear display: %w", err))
		}
		if c, ok := r.Feeder.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close feeder: %w", err))
			}
		}
		if c, ok := r.Display.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close display: %w", err))
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
