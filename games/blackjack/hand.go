package blackjack

import "strings"

// Outcome is the settled result of a single player hand
type Outcome string

const (
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomePush      Outcome = "push"
	OutcomeBust      Outcome = "bust"
)

// Value is the evaluated total of a set of cards
type Value struct {
	Total       int  `json:"total"`
	IsSoft      bool `json:"is_soft"`
	IsBust      bool `json:"is_bust"`
	IsBlackjack bool `json:"is_blackjack"`
}

// HandValue scores cards. Aces count 1, then a single ace is promoted to 11
// when that keeps the total at 21 or below. Only eligible hands
// (canBeBlackjack) score a two-card 21 as blackjack.
func HandValue(cards []Card, canBeBlackjack bool) Value {
	total := 0
	aces := 0
	for _, card := range cards {
		if card.IsAce() {
			aces++
		}
		total += card.Value()
	}

	var v Value
	if aces > 0 && total+10 <= 21 {
		total += 10
		v.IsSoft = true
	}
	v.Total = total
	v.IsBust = total > 21
	v.IsBlackjack = canBeBlackjack && len(cards) == 2 && total == 21
	return v
}

// Hand represents one player hand and its stake
type Hand struct {
	Cards          []Card  `json:"cards"`
	Bet            int64   `json:"bet"`
	IsSplitAces    bool    `json:"is_split_aces"`
	Doubled        bool    `json:"doubled"`
	Complete       bool    `json:"complete"`
	CanBeBlackjack bool    `json:"can_be_blackjack"`
	Outcome        Outcome `json:"outcome,omitempty"`
	Payout         int64   `json:"payout"`
}

// NewHand creates an empty hand eligible for blackjack
func NewHand(bet int64) Hand {
	return Hand{
		Cards:          make([]Card, 0, 4),
		Bet:            bet,
		CanBeBlackjack: true,
	}
}

// Value evaluates the hand
func (h *Hand) Value() Value {
	return HandValue(h.Cards, h.CanBeBlackjack)
}

// CanSplit checks if the hand holds exactly two cards of the same rank
func (h *Hand) CanSplit() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

// String returns string representation of the hand
func (h *Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, card := range h.Cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, " ")
}

func (h *Hand) clone() Hand {
	c := *h
	c.Cards = append([]Card(nil), h.Cards...)
	return c
}
