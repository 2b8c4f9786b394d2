package blackjack

import "fmt"

// Phase is a state of the game state machine
type Phase string

const (
	PhaseInit           Phase = "init"
	PhaseInitialDeal    Phase = "initial_deal"
	PhaseInsuranceOffer Phase = "insurance_offer"
	PhasePlayerTurn     Phase = "player_turn"
	PhaseDealerTurn     Phase = "dealer_turn"
	PhaseSettlement     Phase = "settlement"
	PhaseComplete       Phase = "complete"
)

// MaxHands is the number of hands a player can hold after a split
const MaxHands = 2

// GameState is the full state of a single blackjack game. It is plain data
// so a session store can serialize it.
type GameState struct {
	Phase              Phase  `json:"phase"`
	MainBet            int64  `json:"main_bet"`
	InsuranceBet       int64  `json:"insurance_bet"`
	Shoe               []Card `json:"shoe"`
	DrawIndex          int    `json:"draw_index"`
	DealerHand         []Card `json:"dealer_hand"`
	DealerHasBlackjack bool   `json:"dealer_has_blackjack"`
	Hands              []Hand `json:"hands"`
	CurrentHand        int    `json:"current_hand"`
	InsuranceOffered   bool   `json:"insurance_offered"`
}

// NewGame creates a game in the init phase over a prepared shoe
func NewGame(bet int64, shoe []Card) *GameState {
	return &GameState{
		Phase:      PhaseInit,
		MainBet:    bet,
		Shoe:       shoe,
		DealerHand: make([]Card, 0, 5),
		Hands:      []Hand{NewHand(bet)},
	}
}

// Current returns the hand the player is acting on, or nil outside the
// player's turn.
func (s *GameState) Current() *Hand {
	if s.Phase != PhasePlayerTurn || s.CurrentHand < 0 || s.CurrentHand >= len(s.Hands) {
		return nil
	}
	return &s.Hands[s.CurrentHand]
}

// DealerValue evaluates the full dealer hand
func (s *GameState) DealerValue() Value {
	return HandValue(s.DealerHand, true)
}

// Wagered is the total amount staked on the game, insurance included
func (s *GameState) Wagered() int64 {
	total := s.InsuranceBet
	for _, hand := range s.Hands {
		total += hand.Bet
	}
	return total
}

// Deal runs the initial deal and routes the game to the insurance offer,
// the player's turn or straight to settlement on a natural.
func (s *GameState) Deal() error {
	if s.Phase != PhaseInit {
		return fmt.Errorf("deal in phase %s: %w", s.Phase, ErrIllegalAction)
	}
	s.Phase = PhaseInitialDeal

	player := &s.Hands[0]
	for i := 0; i < 2; i++ {
		card, err := s.Draw()
		if err != nil {
			return err
		}
		player.Cards = append(player.Cards, card)

		card, err = s.Draw()
		if err != nil {
			return err
		}
		s.DealerHand = append(s.DealerHand, card)
	}

	upcard := s.DealerHand[0]
	if upcard.IsAce() || upcard.IsTen() {
		s.DealerHasBlackjack = s.DealerValue().IsBlackjack
	}

	if upcard.IsAce() {
		s.Phase = PhaseInsuranceOffer
		s.InsuranceOffered = true
		return nil
	}
	s.routeAfterNaturals()
	return nil
}

// ResolveInsurance settles the insurance decision. The stake is
// MainBet/2 when taken.
func (s *GameState) ResolveInsurance(take bool) error {
	if s.Phase != PhaseInsuranceOffer {
		return fmt.Errorf("insurance in phase %s: %w", s.Phase, ErrIllegalAction)
	}
	s.InsuranceBet = 0
	if take {
		s.InsuranceBet = s.MainBet / 2
	}
	s.routeAfterNaturals()
	return nil
}

func (s *GameState) routeAfterNaturals() {
	player := &s.Hands[0]
	if s.DealerHasBlackjack || player.Value().IsBlackjack {
		player.Complete = true
		s.Phase = PhaseSettlement
		return
	}
	s.CurrentHand = 0
	s.Phase = PhasePlayerTurn
}

// AdvanceToNextHand makes the first incomplete hand after the current one
// current. When none remain the game moves to the dealer's turn.
func (s *GameState) AdvanceToNextHand() {
	for i := s.CurrentHand; i < len(s.Hands); i++ {
		if !s.Hands[i].Complete {
			s.CurrentHand = i
			return
		}
	}
	s.CurrentHand = len(s.Hands) - 1
	s.Phase = PhaseDealerTurn
}

// PlayDealer resolves the dealer turn and moves the game to settlement
func (s *GameState) PlayDealer() error {
	if s.Phase != PhaseDealerTurn {
		return fmt.Errorf("dealer turn in phase %s: %w", s.Phase, ErrIllegalAction)
	}
	if s.anyLiveHand() {
		if err := ResolveDealerTurn(s); err != nil {
			return err
		}
	}
	s.Phase = PhaseSettlement
	return nil
}

func (s *GameState) anyLiveHand() bool {
	for i := range s.Hands {
		if !s.Hands[i].Value().IsBust {
			return true
		}
	}
	return false
}

// Finish records the settlement on the hands and completes the game
func (s *GameState) Finish(result Settlement) error {
	if s.Phase != PhaseSettlement {
		return fmt.Errorf("finish in phase %s: %w", s.Phase, ErrIllegalAction)
	}
	for i, hr := range result.Hands {
		if i < len(s.Hands) {
			s.Hands[i].Outcome = hr.Outcome
			s.Hands[i].Payout = hr.Payout
		}
	}
	s.Phase = PhaseComplete
	return nil
}

// Terminal reports whether no further player input is possible
func (s *GameState) Terminal() bool {
	return s.Phase == PhaseSettlement || s.Phase == PhaseComplete
}
