package blackjack

// DealerStandValue is the total the dealer stands on, soft or hard
const DealerStandValue = 17

// DealerShouldDraw reports whether the dealer must take another card.
// The dealer stands on soft 17.
func DealerShouldDraw(v Value) bool {
	return v.Total < DealerStandValue
}

// ResolveDealerTurn draws dealer cards until the draw rule says stop
func ResolveDealerTurn(s *GameState) error {
	for DealerShouldDraw(s.DealerValue()) {
		card, err := s.Draw()
		if err != nil {
			return err
		}
		s.DealerHand = append(s.DealerHand, card)
	}
	return nil
}
