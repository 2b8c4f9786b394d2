package blackjack

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
)

// DeckCount is the number of 52-card decks in a standard shoe
const DeckCount = 6

// NewShoe builds a shoe of decks*52 cards shuffled with a generator seeded
// from crypto/rand.
func NewShoe(decks int) ([]Card, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to seed shoe: %w", err)
	}
	return NewShoeFromRand(decks, rand.New(rand.NewChaCha8(seed)))
}

// NewShoeFromRand builds a shoe shuffled by r. Simulations and tests use it
// with a fixed seed to replay a shoe.
func NewShoeFromRand(decks int, r *rand.Rand) ([]Card, error) {
	if decks <= 0 {
		return nil, fmt.Errorf("invalid deck count %d", decks)
	}

	cards := make([]Card, 0, decks*52)
	for d := 0; d < decks; d++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				cards = append(cards, NewCard(rank, suit))
			}
		}
	}

	// Fisher-Yates
	for i := len(cards) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards, nil
}

// Draw returns the card under the draw cursor and advances it.
func (s *GameState) Draw() (Card, error) {
	if s.DrawIndex < 0 || s.DrawIndex >= len(s.Shoe) {
		return Card{}, fmt.Errorf("draw %d of %d: %w", s.DrawIndex+1, len(s.Shoe), ErrShoeExhausted)
	}
	card := s.Shoe[s.DrawIndex]
	s.DrawIndex++
	return card, nil
}

// CardsRemaining returns the number of undrawn cards in the shoe
func (s *GameState) CardsRemaining() int {
	return len(s.Shoe) - s.DrawIndex
}
