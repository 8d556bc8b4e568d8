package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/operant/pkg/domain"
)

// Responder decides, as each hit region is registered, whether the simulated bird
// pecks it. Returning true delivers a touch at the region's center synchronously.
type Responder func(region domain.Region) bool

// Rig is a scripted ports.Hardware for tests. It keeps an ordered log of every
// hardware call, shared with its clock:
//
//	clear
//	draw <region> <shape> <color>
//	register <region>
//	touch <region>
//	feeder <duration>
//	sleep <duration>
//	close
type Rig struct {
	mu      sync.Mutex
	log     []string
	regions map[string]func(domain.Touch)
	bg      func(domain.Touch)

	clock   *FakeClock
	respond Responder

	// FeederErr, when set, is returned by every ActivateFeeder call.
	FeederErr error

	feeds  int
	closed int
}

// NewRig creates a rig whose clock starts at a fixed date.
func NewRig(respond Responder) *Rig {
	r := &Rig{
		regions: make(map[string]func(domain.Touch)),
		clock:   NewFakeClock(time.Date(2023, 6, 9, 9, 0, 0, 0, time.UTC)),
		respond: respond,
	}
	r.clock.log = r.record
	return r
}

// Clock is the fake clock sharing the rig's log.
func (r *Rig) Clock() *FakeClock {
	return r.clock
}

// SetResponder swaps the pecking policy.
func (r *Rig) SetResponder(respond Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.respond = respond
}

func (r *Rig) record(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, entry)
}

// Log returns the recorded calls in order.
func (r *Rig) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}

// Feeds is the number of ActivateFeeder calls.
func (r *Rig) Feeds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeds
}

// Closed is the number of Close calls.
func (r *Rig) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Rig) DrawStimulus(region domain.Region, shape domain.Shape, color string) error {
	r.record(fmt.Sprintf("draw %s %s %s", region.Name, shape, color))
	return nil
}

func (r *Rig) RegisterHitRegion(region domain.Region, onTouch func(domain.Touch)) error {
	r.mu.Lock()
	r.regions[region.Name] = onTouch
	r.log = append(r.log, "register "+region.Name)
	respond := r.respond
	r.mu.Unlock()

	if respond != nil && respond(region) {
		r.Touch(region)
	}
	return nil
}

// Touch pecks the center of a registered region. It reports false if the region
// is not currently registered.
func (r *Rig) Touch(region domain.Region) bool {
	r.mu.Lock()
	cb, ok := r.regions[region.Name]
	if ok {
		r.log = append(r.log, "touch "+region.Name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	x, y := region.Bounds.Center()
	cb(domain.Touch{Region: region.Name, X: x, Y: y, At: r.clock.Now()})
	return true
}

// Background pecks outside every key.
func (r *Rig) Background(x, y float64) {
	r.mu.Lock()
	bg := r.bg
	r.mu.Unlock()
	if bg != nil {
		bg(domain.Touch{Region: "background", X: x, Y: y, At: r.clock.Now()})
	}
}

func (r *Rig) OnBackgroundTouch(fn func(domain.Touch)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bg = fn
}

func (r *Rig) ClearDisplay() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = make(map[string]func(domain.Touch))
	r.log = append(r.log, "clear")
	return nil
}

func (r *Rig) ActivateFeeder(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds++
	r.log = append(r.log, "feeder "+d.String())
	return r.FeederErr
}

func (r *Rig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	r.regions = make(map[string]func(domain.Touch))
	r.log = append(r.log, "close")
	return nil
}

// Subject returns a valid subject configuration with the informative option on the left.
func Subject() domain.SubjectConfig {
	return domain.SubjectConfig{
		SubjectID:           "Zappa",
		HopperDuration:      3 * time.Second,
		RejectionFIDuration: 2 * time.Second,
		InformativeSide:     domain.SideLeft,
		Colors: domain.StimulusColors{
			SPlus:  "green",
			SMinus: "red",
			S1:     "blue",
			S2:     "yellow",
		},
	}
}

// PeckFirst pecks every region as soon as it is registered.
func PeckFirst(domain.Region) bool { return true }

// PeckRegion pecks only the named region.
func PeckRegion(name string) Responder {
	return func(region domain.Region) bool { return region.Name == name }
}
