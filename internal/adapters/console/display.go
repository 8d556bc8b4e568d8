// Package console renders the chamber screen in a terminal and turns typed
// commands into pecks, for running sessions without the touchscreen.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/muesli/termenv"
)

// Peck positions of the typed shortcuts, at the centers of the chamber keys.
var shortcuts = map[string][2]float64{
	"l": {200, 300},
	"r": {600, 300},
	"x": {400, 300},
	"b": {400, 80},
}

// Help lists the accepted commands.
const Help = "l/r peck the left/right key, x the center key, b the background, " +
	"\"<x> <y>\" an exact position, q abort"

// Display implements ports.Display and ports.BackgroundReporter on a terminal.
type Display struct {
	mu      sync.Mutex
	out     *termenv.Output
	regions []registration
	bg      func(domain.Touch)
	now     func() time.Time
}

type registration struct {
	region  domain.Region
	onTouch func(domain.Touch)
}

// NewDisplay writes the screen to w using the color profile detected on it.
func NewDisplay(w io.Writer) *Display {
	return &Display{
		out: termenv.NewOutput(w),
		now: time.Now,
	}
}

func (d *Display) DrawStimulus(region domain.Region, shape domain.Shape, color string) error {
	glyph := "●"
	if shape == domain.ShapeCross {
		glyph = "⊗"
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.out.String(glyph).Foreground(d.out.Color(domain.ColorHex(color)))
	_, err := fmt.Fprintf(d.out, "  %s %s (%s)\n", s, region.Name, color)
	return err
}

func (d *Display) RegisterHitRegion(region domain.Region, onTouch func(domain.Touch)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions = append(d.regions, registration{region: region, onTouch: onTouch})
	return nil
}

func (d *Display) ClearDisplay() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.regions == nil {
		return nil
	}
	d.regions = nil
	_, err := fmt.Fprintln(d.out, d.out.String("  ·").Faint())
	return err
}

func (d *Display) OnBackgroundTouch(fn func(domain.Touch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bg = fn
}

// Touch delivers a peck at (x, y) and returns the name of the region hit.
func (d *Display) Touch(x, y float64) string {
	d.mu.Lock()
	t := domain.Touch{X: x, Y: y, At: d.now()}
	var deliver func(domain.Touch)
	for i := len(d.regions) - 1; i >= 0; i-- {
		if d.regions[i].region.Hit(x, y) {
			t.Region = d.regions[i].region.Name
			deliver = d.regions[i].onTouch
			break
		}
	}
	if deliver == nil {
		deliver = d.bg
	}
	d.mu.Unlock()

	if deliver != nil {
		deliver(t)
	}
	return t.Region
}

// Listen reads one command per line from r until ctx is done or r is exhausted.
// "q" calls abort.
func (d *Display) Listen(ctx context.Context, r io.Reader, abort func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line := <-lines:
			cmd := strings.ToLower(strings.TrimSpace(line))
			if cmd == "" {
				continue
			}
			if cmd == "q" || cmd == "quit" {
				abort()
				return nil
			}
			x, y, err := parsePosition(cmd)
			if err != nil {
				fmt.Fprintf(d.out, "  ? %v (%s)\n", err, Help)
				continue
			}
			d.Touch(x, y)
		}
	}
}

func parsePosition(cmd string) (float64, float64, error) {
	if p, ok := shortcuts[cmd]; ok {
		return p[0], p[1], nil
	}
	fields := strings.Fields(cmd)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unknown command %q", cmd)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad x %q", fields[0])
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad y %q", fields[1])
	}
	return x, y, nil
}
