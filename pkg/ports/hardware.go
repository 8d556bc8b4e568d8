package ports

import (
	"context"
	"io"
	"time"

	"github.com/aretw0/operant/pkg/domain"
)

// Display draws stimuli on the chamber screen and reports touches on registered regions.
type Display interface {
	// DrawStimulus paints a shape of the given color inside the region bounds.
	DrawStimulus(region domain.Region, shape domain.Shape, color string) error

	// RegisterHitRegion makes a region touchable. onTouch may be called from any goroutine
	// and must not block. Registrations are dropped by ClearDisplay.
	RegisterHitRegion(region domain.Region, onTouch func(domain.Touch)) error

	// ClearDisplay blanks the screen and removes every hit region.
	ClearDisplay() error
}

// BackgroundReporter is implemented by displays that can report touches landing
// outside every registered region.
type BackgroundReporter interface {
	OnBackgroundTouch(fn func(domain.Touch))
}

// Feeder delivers reinforcement.
type Feeder interface {
	// ActivateFeeder raises the hopper for d and returns without waiting for it to drop.
	// Errors wrapping domain.ErrDeviceFault are unrecoverable.
	ActivateFeeder(ctx context.Context, d time.Duration) error
}

// Hardware is the capability set the trial logic depends on.
// Close blanks the display and leaves the hopper down.
type Hardware interface {
	Display
	Feeder
	io.Closer
}
