// Package trial runs one trial of the chamber task as an explicit state machine:
//
//	StimulusOnset -> ResponseWait -> (RejectionOffered -> StimulusOnset -> ResponseWait)
//	  -> OutcomeResolution -> ReinforcementOrTimeout -> LogAndExit
//
// Touches arrive through hit-region callbacks on display goroutines. The callbacks
// only push into a buffered channel; the executor consumes exactly one response per
// wait and discards whatever queued behind it.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
	"github.com/aretw0/operant/pkg/ports"
)

const (
	responseBuffer   = 16
	backgroundBuffer = 64
)

// DelayPolicy is the cost of rejecting the offered option.
type DelayPolicy string

const (
	// DelayImmediate re-offers the alternative at once.
	DelayImmediate DelayPolicy = "immediate"
	// DelayFixed blanks the screen for the subject's rejection FI duration first.
	DelayFixed DelayPolicy = "fixed"
)

// ParseDelayPolicy validates a policy name. Empty means fixed.
func ParseDelayPolicy(s string) (DelayPolicy, error) {
	switch DelayPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DelayFixed:
		return DelayFixed, nil
	case DelayImmediate:
		return DelayImmediate, nil
	}
	return "", fmt.Errorf("unknown rejection delay policy %q", s)
}

// Config holds the trial parameters that stay fixed for a session.
type Config struct {
	Subject domain.SubjectConfig

	// Feedback is how long the terminal-link stimulus stays on screen.
	Feedback time.Duration

	RejectionDelay DelayPolicy

	// FR is the number of pecks a pre-training key requires.
	FR int

	Probabilities Probabilities
}

// Executor runs trials against the chamber hardware.
type Executor struct {
	hw     ports.Hardware
	cfg    Config
	clock  ports.Clock
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	responses  chan domain.Touch
	background chan domain.Touch
}

// Option configures the Executor.
type Option func(*Executor)

// WithClock replaces the wall clock.
func WithClock(c ports.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// New validates the configuration and creates an executor.
// A malformed subject configuration is rejected here, before any trial runs.
func New(hw ports.Hardware, cfg Config, opts ...Option) (*Executor, error) {
	if hw == nil {
		return nil, errors.New("trial executor requires hardware")
	}
	if err := cfg.Subject.Validate(); err != nil {
		return nil, err
	}
	if cfg.Feedback < 0 {
		return nil, fmt.Errorf("feedback duration cannot be negative (got %s)", cfg.Feedback)
	}
	if cfg.FR <= 0 {
		cfg.FR = 1
	}
	policy, err := ParseDelayPolicy(string(cfg.RejectionDelay))
	if err != nil {
		return nil, err
	}
	cfg.RejectionDelay = policy
	if err := cfg.Probabilities.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		hw:         hw,
		cfg:        cfg,
		clock:      ports.SystemClock{},
		logger:     logging.NewNop(),
		responses:  make(chan domain.Touch, responseBuffer),
		background: make(chan domain.Touch, backgroundBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if br, ok := hw.(ports.BackgroundReporter); ok {
		br.OnBackgroundTouch(func(t domain.Touch) {
			select {
			case e.background <- t:
			default:
			}
		})
	}
	return e, nil
}

// Config returns the effective configuration after defaults.
func (e *Executor) Config() Config {
	return e.cfg
}

// run is the working state of one trial.
type run struct {
	spec  domain.TrialSpec
	state *domain.SessionState
	rec   domain.TrialRecord
	stage domain.TrialStage

	start   time.Time
	offerAt time.Time
	lit     map[string]bool
}

// Run executes spec to completion and returns its record.
// It blocks until the subject responds or ctx is cancelled. On error the record is
// kept only if rec.Complete() reports the outcome was reached.
func (e *Executor) Run(ctx context.Context, spec domain.TrialSpec, state *domain.SessionState) (domain.TrialRecord, error) {
	r := &run{
		spec:  spec,
		state: state,
		rec: domain.TrialRecord{
			TrialNumber:  state.NextTrialNumber(),
			TrialType:    spec.Type,
			Block:        spec.Block,
			ChosenOption: domain.OptionNone,
			SubjectID:    e.cfg.Subject.SubjectID,
			Phase:        state.Phase.String(),
		},
	}

	var err error
	if spec.Type.IsPretraining() {
		err = e.runPretraining(ctx, r)
	} else {
		err = e.runChoice(ctx, r)
	}
	if err != nil {
		e.drain()
		return r.rec, err
	}

	e.enter(ctx, r, domain.StageLogAndExit)
	e.logger.Debug("trial complete",
		"trial", r.rec.TrialNumber,
		"type", r.rec.TrialType,
		"choice", r.rec.ChosenOption,
		"outcome", r.rec.Outcome)
	if e.hooks.OnTrialComplete != nil {
		rec := r.rec
		e.hooks.OnTrialComplete(ctx, &rec)
	}
	return r.rec, nil
}

func (e *Executor) runChoice(ctx context.Context, r *run) error {
	subject := e.cfg.Subject
	offered := r.spec.Type.Offered()

	var keys []Key
	switch {
	case r.spec.Type == domain.FreeChoice:
		keys = []Key{ChoiceKey(domain.SideLeft), ChoiceKey(domain.SideRight)}
	case r.spec.Type.IsForced():
		keys = []Key{OptionKey(subject, offered)}
	case r.spec.Type.IsRejection():
		keys = []Key{OptionKey(subject, offered), RejectionKey()}
	default:
		return fmt.Errorf("trial type %q cannot run in the choice phase", r.spec.Type)
	}

	if err := e.onset(ctx, r, keys...); err != nil {
		return err
	}
	touch, err := e.await(ctx, r)
	if err != nil {
		return err
	}
	choice, _ := OptionForRegion(subject, touch.Region)

	if choice == domain.OptionRejected {
		e.enter(ctx, r, domain.StageRejectionOffered)
		if err := e.show(ctx, r); err != nil {
			return err
		}
		delay := e.rejectionDelay()
		r.rec.Rejected = true
		r.rec.RejectionDelayMS = delay.Milliseconds()
		if err := e.hold(ctx, r, delay, domain.TouchBackground); err != nil {
			return err
		}

		// The rejection key is not offered again.
		if err := e.onset(ctx, r, OptionKey(subject, offered.Alternative())); err != nil {
			return err
		}
		if touch, err = e.await(ctx, r); err != nil {
			return err
		}
		choice, _ = OptionForRegion(subject, touch.Region)
	}

	r.rec.ChosenOption = choice
	r.rec.TouchX, r.rec.TouchY = touch.X, touch.Y
	r.rec.LatencyMS = e.latency(r.offerAt, touch)

	e.enter(ctx, r, domain.StageOutcomeResolution)
	res := Resolve(choice, r.spec.Type.IsForced(), e.cfg.Probabilities, r.state.Rand, r.state.Decks)
	r.rec.TerminalStimulus = string(res.Stimulus)

	e.enter(ctx, r, domain.StageReinforcement)
	if err := e.show(ctx, r, TerminalKey(subject, choice, res.Stimulus)); err != nil {
		return err
	}
	if err := e.hold(ctx, r, e.cfg.Feedback, domain.TouchTerminal); err != nil {
		return err
	}
	return e.reinforce(ctx, r, res.Outcome)
}

// runPretraining lights one key until it is pecked FR times, then feeds.
func (e *Executor) runPretraining(ctx context.Context, r *run) error {
	key, err := PretrainKey(e.cfg.Subject, r.spec.Type)
	if err != nil {
		return err
	}
	r.rec.TerminalStimulus = key.Region.Name

	var touch domain.Touch
	for pecks := 0; pecks < e.cfg.FR; pecks++ {
		if err := e.onset(ctx, r, key); err != nil {
			return err
		}
		if touch, err = e.await(ctx, r); err != nil {
			return err
		}
	}
	r.rec.TouchX, r.rec.TouchY = touch.X, touch.Y
	r.rec.LatencyMS = e.latency(r.start, touch)

	e.enter(ctx, r, domain.StageOutcomeResolution)
	e.enter(ctx, r, domain.StageReinforcement)
	return e.reinforce(ctx, r, domain.OutcomeFood)
}

// reinforce blanks the screen for the hopper duration, raising the hopper first
// when outcome is food, so both branches take the same time.
func (e *Executor) reinforce(ctx context.Context, r *run, outcome domain.Outcome) error {
	if err := e.show(ctx, r); err != nil {
		return err
	}
	r.rec.Outcome = outcome

	hopper := e.cfg.Subject.HopperDuration
	if outcome == domain.OutcomeFood {
		err := e.hw.ActivateFeeder(ctx, hopper)
		if e.hooks.OnFeeder != nil {
			e.hooks.OnFeeder(ctx, &domain.FeederEvent{EventBase: e.base(r), Duration: hopper, Err: err})
		}
		if err != nil {
			if errors.Is(err, domain.ErrDeviceFault) {
				r.rec.Anomaly = err.Error()
				return fmt.Errorf("trial %d: %w", r.rec.TrialNumber, err)
			}
			r.rec.Anomaly = "feeder: " + err.Error()
			e.logger.Warn("feeder failed", "trial", r.rec.TrialNumber, "err", err)
		}
	}
	return e.hold(ctx, r, hopper, domain.TouchBackground)
}

// onset presents keys as a new offer.
func (e *Executor) onset(ctx context.Context, r *run, keys ...Key) error {
	e.enter(ctx, r, domain.StageStimulusOnset)
	if err := e.show(ctx, r, keys...); err != nil {
		return err
	}
	now := e.clock.Now()
	if r.start.IsZero() {
		r.start = now
		r.rec.Timestamp = now
	}
	r.offerAt = now
	return nil
}

// show replaces the screen contents with keys. With no keys the screen is left blank.
// No stimulation is issued once ctx is cancelled.
func (e *Executor) show(ctx context.Context, r *run, keys ...Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.hw.ClearDisplay(); err != nil {
		return fmt.Errorf("clear display: %w", err)
	}
	e.drain()

	r.lit = make(map[string]bool, len(keys))
	for _, k := range keys {
		if err := e.hw.DrawStimulus(k.Region, k.Shape, k.Color); err != nil {
			return fmt.Errorf("draw %s: %w", k.Region.Name, err)
		}
		if err := e.hw.RegisterHitRegion(k.Region, e.push); err != nil {
			return fmt.Errorf("register %s: %w", k.Region.Name, err)
		}
		r.lit[k.Region.Name] = true
	}
	return nil
}

// await blocks until one of the lit keys is pecked. There is no timeout.
func (e *Executor) await(ctx context.Context, r *run) (domain.Touch, error) {
	e.enter(ctx, r, domain.StageResponseWait)
	for {
		e.flushBackground(ctx, r)
		select {
		case <-ctx.Done():
			return domain.Touch{}, ctx.Err()
		case t := <-e.background:
			e.touched(ctx, r, domain.TouchBackground, t)
		case t := <-e.responses:
			if !r.lit[t.Region] {
				e.touched(ctx, r, domain.TouchBackground, t)
				continue
			}
			e.touched(ctx, r, domain.TouchKey, t)
			e.drain()
			return t, nil
		}
	}
}

// hold waits for d, journaling pecks as kind.
func (e *Executor) hold(ctx context.Context, r *run, d time.Duration, kind domain.TouchKind) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := e.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer:
			e.flushBackground(ctx, r)
			return nil
		case t := <-e.background:
			e.touched(ctx, r, domain.TouchBackground, t)
		case t := <-e.responses:
			e.touched(ctx, r, kind, t)
		}
	}
}

func (e *Executor) push(t domain.Touch) {
	select {
	case e.responses <- t:
	default:
	}
}

// flushBackground journals queued background pecks ahead of any key response.
func (e *Executor) flushBackground(ctx context.Context, r *run) {
	for {
		select {
		case t := <-e.background:
			e.touched(ctx, r, domain.TouchBackground, t)
		default:
			return
		}
	}
}

func (e *Executor) drain() {
	for {
		select {
		case <-e.responses:
		default:
			return
		}
	}
}

func (e *Executor) rejectionDelay() time.Duration {
	if e.cfg.RejectionDelay == DelayImmediate {
		return 0
	}
	return e.cfg.Subject.RejectionFIDuration
}

func (e *Executor) latency(from time.Time, t domain.Touch) int64 {
	at := t.At
	if at.IsZero() || at.Before(from) {
		at = e.clock.Now()
	}
	return at.Sub(from).Milliseconds()
}

func (e *Executor) base(r *run) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.clock.Now(),
		Trial:     r.rec.TrialNumber,
		TrialType: r.spec.Type,
	}
}

func (e *Executor) enter(ctx context.Context, r *run, stage domain.TrialStage) {
	r.stage = stage
	if e.hooks.OnStageEnter != nil {
		e.hooks.OnStageEnter(ctx, &domain.StageEvent{EventBase: e.base(r), Stage: stage})
	}
}

func (e *Executor) touched(ctx context.Context, r *run, kind domain.TouchKind, t domain.Touch) {
	e.logger.Debug("peck", "trial", r.rec.TrialNumber, "stage", r.stage, "kind", kind,
		"region", t.Region, "x", t.X, "y", t.Y)
	if e.hooks.OnTouch != nil {
		e.hooks.OnTouch(ctx, &domain.TouchEvent{EventBase: e.base(r), Stage: r.stage, Kind: kind, Touch: t})
	}
}
