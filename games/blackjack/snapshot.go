package blackjack

// Snapshot is a read-only copy of a game for rendering. While the hole
// card is concealed DealerHand holds the upcard only.
type Snapshot struct {
	Phase          Phase  `json:"phase"`
	MainBet        int64  `json:"main_bet"`
	InsuranceBet   int64  `json:"insurance_bet"`
	Hands          []Hand `json:"hands"`
	CurrentHand    int    `json:"current_hand"`
	DealerHand     []Card `json:"dealer_hand"`
	DealerValue    Value  `json:"dealer_value"`
	HoleCardHidden bool   `json:"hole_card_hidden"`
	CardsRemaining int    `json:"cards_remaining"`
}

// HoleCardHidden reports whether the dealer's second card must be withheld
func (s *GameState) HoleCardHidden() bool {
	return s.Phase == PhaseInsuranceOffer || s.Phase == PhasePlayerTurn
}

// Snapshot returns a deep copy of the renderable state
func (s *GameState) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:          s.Phase,
		MainBet:        s.MainBet,
		InsuranceBet:   s.InsuranceBet,
		Hands:          make([]Hand, len(s.Hands)),
		CurrentHand:    s.CurrentHand,
		HoleCardHidden: s.HoleCardHidden(),
		CardsRemaining: s.CardsRemaining(),
	}
	for i := range s.Hands {
		snap.Hands[i] = s.Hands[i].clone()
	}

	dealer := s.DealerHand
	if snap.HoleCardHidden && len(dealer) > 1 {
		dealer = dealer[:1]
	}
	snap.DealerHand = append([]Card(nil), dealer...)
	snap.DealerValue = HandValue(snap.DealerHand, !snap.HoleCardHidden)
	return snap
}
