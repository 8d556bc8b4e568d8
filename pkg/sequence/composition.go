package sequence

import (
	"slices"

	"github.com/aretw0/operant/pkg/domain"
)

// Composition is the number of trials of each type in one block.
type Composition map[domain.TrialType]int

// ChoiceBlock is one 50-trial block of the choice-training phase:
// 10 forced informative, 10 forced non-informative, 10 of each rejection type and 10 free choice.
func ChoiceBlock() Composition {
	c := make(Composition, len(domain.ChoiceTrialTypes))
	for _, t := range domain.ChoiceTrialTypes {
		c[t] = 10
	}
	return c
}

// PretrainBlock lights each of the seven keys n times.
func PretrainBlock(n int) Composition {
	c := make(Composition, len(domain.PretrainTrialTypes))
	for _, t := range domain.PretrainTrialTypes {
		c[t] = n
	}
	return c
}

// ForPhase returns the block composition and block count of a phase.
func ForPhase(p domain.Phase) (Composition, int) {
	if p == domain.PhasePretraining {
		return PretrainBlock(8), 1
	}
	return ChoiceBlock(), 2
}

// Size is the number of trials in one block.
func (c Composition) Size() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Types returns the trial types in a stable order.
func (c Composition) Types() []domain.TrialType {
	types := make([]domain.TrialType, 0, len(c))
	for t := range c {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Multiset expands the composition into a list with one entry per trial,
// in stable order so the shuffle is the only source of randomness.
func (c Composition) Multiset() []domain.TrialType {
	out := make([]domain.TrialType, 0, c.Size())
	for _, t := range c.Types() {
		for i := 0; i < c[t]; i++ {
			out = append(out, t)
		}
	}
	return out
}
