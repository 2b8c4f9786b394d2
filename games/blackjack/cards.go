package blackjack

// Card represents a playing card
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// Ranks lists the card ranks in deck order
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Suits lists the card suits in deck order
var Suits = []string{"♠️", "♥️", "♦️", "♣️"}

var rankValues = map[string]int{
	"A": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 10, "Q": 10, "K": 10,
}

// NewCard creates a new card
func NewCard(rank, suit string) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card
func (c Card) String() string {
	return c.Rank + c.Suit
}

// Value returns the hard value of the card. Aces count as 1 here; the
// soft promotion is applied per hand by HandValue.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// IsAce checks if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// IsTen checks if the card has a value of 10 (10, J, Q, K)
func (c Card) IsTen() bool {
	return c.Value() == 10
}
