// Package sequence builds the semi-randomized trial order of a session.
//
// Each block is a uniform shuffle of its trial multiset, rejected and reshuffled
// while any trial type repeats more than MaxRun times in a row. The constraint is
// checked across block boundaries, so it holds for the whole session.
package sequence

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/aretw0/operant/internal/logging"
	"github.com/aretw0/operant/pkg/domain"
)

const (
	// DefaultMaxRun is the longest allowed run of identical trial types.
	DefaultMaxRun = 3

	// DefaultMaxAttempts caps the reshuffles per block before falling back to repair.
	DefaultMaxAttempts = 1000

	seqStream = 0x73657175656e6365
)

// NewRand returns the sequencer's random source for a seed.
// The same seed always yields the same sequence.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seqStream))
}

// Generator produces session sequences.
type Generator struct {
	Composition Composition
	Blocks      int
	MaxRun      int
	MaxAttempts int
	Logger      *slog.Logger
}

// New creates a generator with the default run constraint.
func New(c Composition, blocks int) *Generator {
	return &Generator{
		Composition: c,
		Blocks:      blocks,
		MaxRun:      DefaultMaxRun,
		MaxAttempts: DefaultMaxAttempts,
		Logger:      logging.NewNop(),
	}
}

// Generate returns the ordered specs of a full session.
func (g *Generator) Generate(rng *rand.Rand) ([]domain.TrialSpec, error) {
	if g.Blocks <= 0 || g.Composition.Size() == 0 {
		return nil, fmt.Errorf("empty composition (%d blocks of %d trials)", g.Blocks, g.Composition.Size())
	}
	maxRun := g.MaxRun
	if maxRun <= 0 {
		maxRun = DefaultMaxRun
	}
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	logger := g.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var order []domain.TrialType
	for b := 1; b <= g.Blocks; b++ {
		block, tries, err := arrangeBlock(rng, g.Composition.Multiset(), tail(order, maxRun), maxRun, attempts)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b, err)
		}
		logger.Debug("block arranged", "block", b, "attempts", tries)
		order = append(order, block...)
	}

	specs := make([]domain.TrialSpec, len(order))
	size := g.Composition.Size()
	for i, t := range order {
		specs[i] = domain.TrialSpec{Type: t, Block: i/size + 1, Position: i + 1}
	}
	return specs, nil
}

// arrangeBlock shuffles items until prev+items has no run longer than maxRun.
// After attempts failures it repairs the last shuffle by swaps.
func arrangeBlock(rng *rand.Rand, items, prev []domain.TrialType, maxRun, attempts int) ([]domain.TrialType, int, error) {
	for i := 1; i <= attempts; i++ {
		rng.Shuffle(len(items), func(a, b int) { items[a], items[b] = items[b], items[a] })
		if violations(prev, items, maxRun) == 0 {
			return items, i, nil
		}
	}
	if repair(items, prev, maxRun) {
		return items, attempts, nil
	}
	return nil, attempts, domain.ErrSequenceExhausted
}

// repair swaps entries until no run exceeds maxRun. Each accepted swap strictly
// lowers the violation count, so it terminates.
func repair(items, prev []domain.TrialType, maxRun int) bool {
	current := violations(prev, items, maxRun)
	for current > 0 {
		if !improve(items, prev, maxRun, &current) {
			return false
		}
	}
	return true
}

func improve(items, prev []domain.TrialType, maxRun int, current *int) bool {
	var at []int
	walkRuns(prev, items, maxRun, func(i int) { at = append(at, i) })
	for _, i := range at {
		for j := range items {
			if j == i || items[j] == items[i] {
				continue
			}
			items[i], items[j] = items[j], items[i]
			if n := violations(prev, items, maxRun); n < *current {
				*current = n
				return true
			}
			items[i], items[j] = items[j], items[i]
		}
	}
	return false
}

// violations counts positions of items that end a run longer than maxRun,
// with prev prepended so runs spanning the block boundary count.
func violations(prev, items []domain.TrialType, maxRun int) int {
	n := 0
	walkRuns(prev, items, maxRun, func(int) { n++ })
	return n
}

func firstViolation(prev, items []domain.TrialType, maxRun int) int {
	first := -1
	walkRuns(prev, items, maxRun, func(i int) {
		if first < 0 {
			first = i
		}
	})
	return first
}

func walkRuns(prev, items []domain.TrialType, maxRun int, visit func(int)) {
	var last domain.TrialType
	run := 0
	for _, t := range prev {
		if t == last {
			run++
		} else {
			last, run = t, 1
		}
	}
	for i, t := range items {
		if t == last {
			run++
		} else {
			last, run = t, 1
		}
		if run > maxRun {
			visit(i)
		}
	}
}

func tail(order []domain.TrialType, n int) []domain.TrialType {
	if len(order) <= n {
		return order
	}
	return order[len(order)-n:]
}

// Validate checks that specs cover blocks × composition exactly and that no
// type runs longer than maxRun anywhere in the session.
func Validate(specs []domain.TrialSpec, c Composition, blocks, maxRun int) error {
	size := c.Size()
	if len(specs) != size*blocks {
		return fmt.Errorf("sequence has %d trials, want %d", len(specs), size*blocks)
	}
	for b := 0; b < blocks; b++ {
		counts := make(map[domain.TrialType]int)
		for _, s := range specs[b*size : (b+1)*size] {
			if s.Block != b+1 {
				return fmt.Errorf("trial %d is labelled block %d, want %d", s.Position, s.Block, b+1)
			}
			counts[s.Type]++
		}
		for t, want := range c {
			if counts[t] != want {
				return fmt.Errorf("block %d has %d %s trials, want %d", b+1, counts[t], t, want)
			}
		}
		if len(counts) != len(c) {
			return fmt.Errorf("block %d contains trial types outside the composition", b+1)
		}
	}

	types := make([]domain.TrialType, len(specs))
	for i, s := range specs {
		if s.Position != i+1 {
			return fmt.Errorf("trial at index %d has position %d", i, s.Position)
		}
		types[i] = s.Type
	}
	if i := firstViolation(nil, types, maxRun); i >= 0 {
		return fmt.Errorf("%s repeats more than %d times ending at trial %d", types[i], maxRun, i+1)
	}
	return nil
}
