package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// APIVersion is reported by GET /info.
const APIVersion = "0.1.0"

// Stimulus is one key currently drawn on the screen.
type Stimulus struct {
	Region domain.Region `json:"region"`
	Shape  domain.Shape  `json:"shape"`
	Color  string        `json:"color"`
	// Hex is the resolved color for the client to paint.
	Hex string `json:"hex"`
}

// Scene is the full screen state served to the touchscreen client.
type Scene struct {
	Version int64      `json:"version"`
	Stimuli []Stimulus `json:"stimuli"`
}

// TouchRequest is the body of POST /touch, in screen pixels.
type TouchRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Display implements ports.Display and ports.BackgroundReporter for a browser
// running full screen on the chamber monitor. The browser renders GET /display
// and reports every touch to POST /touch.
type Display struct {
	mu      sync.Mutex
	scene   Scene
	regions []registration
	bg      func(domain.Touch)
	subs    map[chan int64]struct{}

	logger  *slog.Logger
	metrics http.Handler
	version string
	now     func() time.Time
}

type registration struct {
	region  domain.Region
	onTouch func(domain.Touch)
}

// Option configures the Display.
type Option func(*Display)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Display) {
		d.logger = logger
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(d *Display) {
		d.metrics = h
	}
}

// WithVersion sets the application version reported by GET /info.
func WithVersion(v string) Option {
	return func(d *Display) {
		d.version = v
	}
}

// NewDisplay creates an empty display.
func NewDisplay(opts ...Option) *Display {
	d := &Display{
		scene:   Scene{Stimuli: []Stimulus{}},
		subs:    make(map[chan int64]struct{}),
		logger:  logging.NewNop(),
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DrawStimulus adds a key to the scene.
func (d *Display) DrawStimulus(region domain.Region, shape domain.Shape, color string) error {
	d.mu.Lock()
	d.scene.Stimuli = append(d.scene.Stimuli, Stimulus{
		Region: region,
		Shape:  shape,
		Color:  color,
		Hex:    domain.ColorHex(color),
	})
	d.changed()
	d.mu.Unlock()
	return nil
}

// RegisterHitRegion makes region touchable until the next ClearDisplay.
func (d *Display) RegisterHitRegion(region domain.Region, onTouch func(domain.Touch)) error {
	if onTouch == nil {
		return errors.New("hit region callback cannot be nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions = append(d.regions, registration{region: region, onTouch: onTouch})
	return nil
}

// ClearDisplay blanks the scene and drops every hit region.
func (d *Display) ClearDisplay() error {
	d.mu.Lock()
	d.scene.Stimuli = []Stimulus{}
	d.regions = nil
	d.changed()
	d.mu.Unlock()
	return nil
}

// OnBackgroundTouch reports touches that miss every registered region.
func (d *Display) OnBackgroundTouch(fn func(domain.Touch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bg = fn
}

// Close blanks the scene and ends every event stream.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scene.Stimuli = []Stimulus{}
	d.regions = nil
	d.scene.Version++
	for ch := range d.subs {
		close(ch)
		delete(d.subs, ch)
	}
	return nil
}

// Touch hit-tests a touch against the registered regions, last registered first,
// and delivers it. It reports the name of the region hit, or "" for background.
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

// Scene returns a copy of the current screen state.
func (d *Display) Scene() Scene {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := Scene{Version: d.scene.Version, Stimuli: make([]Stimulus, len(d.scene.Stimuli))}
	copy(out.Stimuli, d.scene.Stimuli)
	return out
}

// changed bumps the scene version and notifies subscribers. Callers hold mu.
func (d *Display) changed() {
	d.scene.Version++
	for ch := range d.subs {
		select {
		case ch <- d.scene.Version:
		default:
		}
	}
}

func (d *Display) subscribe() chan int64 {
	ch := make(chan int64, 8)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()
	return ch
}

func (d *Display) unsubscribe(ch chan int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subs[ch]; ok {
		delete(d.subs, ch)
		close(ch)
	}
}

// Handler returns the HTTP API of the display.
func (d *Display) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", d.getHealth)
	r.Get("/info", d.getInfo)
	r.Get("/display", d.getDisplay)
	r.Post("/touch", d.postTouch)
	r.Get("/events", d.subscribeEvents)
	if d.metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.metrics)
	}
	return r
}

func (d *Display) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (d *Display) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"app":         "operant-display",
		"version":     d.version,
		"api_version": APIVersion,
	})
}

func (d *Display) getDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.Scene())
}

func (d *Display) postTouch(w http.ResponseWriter, r *http.Request) {
	var body TouchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	region := d.Touch(body.X, body.Y)
	d.logger.Debug("touch", "x", body.X, "y", body.Y, "region", region)
	writeJSON(w, map[string]string{"region": region})
}

// subscribeEvents streams the scene version on every change (SSE), so the client
// refetches /display only when needed.
func (d *Display) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := d.subscribe()
	defer d.unsubscribe(events)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: scene\ndata: %d\n\n", v)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Serve runs h on ln until ctx is cancelled, then shuts down gracefully.
// The caller opens ln so a bind failure surfaces before the session starts.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("display server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
