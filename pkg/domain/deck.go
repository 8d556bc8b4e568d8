package domain

import (
	"math"
	"math/rand/v2"
)

// Deck draws boolean outcomes without replacement.
type Deck struct {
	items []bool
}

// NewDeck builds a deck of n cards where round(p*n) are true.
func NewDeck(n int, p float64) *Deck {
	hits := int(math.Round(p * float64(n)))
	d := &Deck{items: make([]bool, n)}
	for i := 0; i < hits && i < n; i++ {
		d.items[i] = true
	}
	return d
}

// Len is the number of cards left.
func (d *Deck) Len() int {
	return len(d.items)
}

// Draw removes a uniformly chosen card. ok is false once the deck is empty.
func (d *Deck) Draw(rng *rand.Rand) (value, ok bool) {
	if len(d.items) == 0 {
		return false, false
	}
	i := rng.IntN(len(d.items))
	value = d.items[i]
	last := len(d.items) - 1
	d.items[i] = d.items[last]
	d.items = d.items[:last]
	return value, true
}

// OutcomeDecks hold the forced-trial decks of the balanced outcome policy.
type OutcomeDecks struct {
	InformativeFood    *Deck
	NonInformativeFood *Deck
	NonInformativeS1   *Deck
}
