package blackjack

// HandResult is the settled outcome of one player hand
type HandResult struct {
	HandIndex int     `json:"hand_index"`
	Outcome   Outcome `json:"outcome"`
	Bet       int64   `json:"bet"`
	Payout    int64   `json:"payout"`
}

// Settlement is the complete money outcome of a finished game. Total is the
// only amount credited back to the player.
type Settlement struct {
	Hands            []HandResult `json:"hands"`
	InsuranceOffered bool         `json:"insurance_offered"`
	InsuranceBet     int64        `json:"insurance_bet"`
	InsurancePayout  int64        `json:"insurance_payout"`
	Wagered          int64        `json:"wagered"`
	Total            int64        `json:"total"`
}

// Net is the player's profit or loss for the game
func (r Settlement) Net() int64 {
	return r.Total - r.Wagered
}

// Settle computes payouts for a finished game. Stakes were withdrawn up
// front, so payouts include the returned stake.
func Settle(s *GameState) Settlement {
	dealer := s.DealerValue()
	result := Settlement{
		Hands:            make([]HandResult, 0, len(s.Hands)),
		InsuranceOffered: s.InsuranceOffered,
		InsuranceBet:     s.InsuranceBet,
		Wagered:          s.Wagered(),
	}

	for i := range s.Hands {
		hand := &s.Hands[i]
		outcome, payout := settleHand(hand.Value(), dealer, s.DealerHasBlackjack, hand.Bet)
		result.Hands = append(result.Hands, HandResult{
			HandIndex: i,
			Outcome:   outcome,
			Bet:       hand.Bet,
			Payout:    payout,
		})
		result.Total += payout
	}

	if s.InsuranceBet > 0 && s.DealerHasBlackjack {
		result.InsurancePayout = s.InsuranceBet * 3
		result.Total += result.InsurancePayout
	}
	return result
}

func settleHand(player, dealer Value, dealerBlackjack bool, bet int64) (Outcome, int64) {
	switch {
	case player.IsBust:
		return OutcomeBust, 0
	case dealerBlackjack && player.IsBlackjack:
		return OutcomePush, bet
	case dealerBlackjack:
		return OutcomeLose, 0
	case player.IsBlackjack:
		return OutcomeBlackjack, bet * 5 / 2
	case dealer.IsBust:
		return OutcomeWin, bet * 2
	case player.Total > dealer.Total:
		return OutcomeWin, bet * 2
	case player.Total == dealer.Total:
		return OutcomePush, bet
	}
	return OutcomeLose, 0
}
