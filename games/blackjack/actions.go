package blackjack

import "fmt"

// Action is a player decision
type Action string

const (
	ActionHit           Action = "hit"
	ActionStand         Action = "stand"
	ActionDouble        Action = "double"
	ActionSplit         Action = "split"
	ActionInsure        Action = "insure"
	ActionSkipInsurance Action = "skip_insurance"
)

// AllActions lists every action in display order
var AllActions = []Action{ActionHit, ActionStand, ActionDouble, ActionSplit, ActionInsure, ActionSkipInsurance}

// ParseAction converts a wire name into an Action
func ParseAction(name string) (Action, bool) {
	for _, a := range AllActions {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

func illegal(a Action, reason string) error {
	return fmt.Errorf("%s: %s: %w", a, reason, ErrIllegalAction)
}

// StakeFor validates an action against the state and returns the extra
// stake it needs. It never mutates the state.
func StakeFor(s *GameState, a Action) (int64, error) {
	switch a {
	case ActionInsure:
		if s.Phase != PhaseInsuranceOffer {
			return 0, illegal(a, "no insurance offered")
		}
		cost := s.MainBet / 2
		if cost <= 0 {
			return 0, illegal(a, "bet too small to insure")
		}
		return cost, nil
	case ActionSkipInsurance:
		if s.Phase != PhaseInsuranceOffer {
			return 0, illegal(a, "no insurance offered")
		}
		return 0, nil
	case ActionHit, ActionStand, ActionDouble, ActionSplit:
	default:
		return 0, illegal(a, "unknown action")
	}

	hand := s.Current()
	if hand == nil {
		return 0, illegal(a, fmt.Sprintf("not the player's turn (%s)", s.Phase))
	}
	if hand.Complete {
		return 0, illegal(a, "hand is complete")
	}

	switch a {
	case ActionDouble:
		if len(hand.Cards) != 2 {
			return 0, illegal(a, "only on the first two cards")
		}
		if hand.Doubled {
			return 0, illegal(a, "already doubled")
		}
		if hand.IsSplitAces {
			return 0, illegal(a, "split aces")
		}
		return hand.Bet, nil
	case ActionSplit:
		if len(s.Hands) != 1 {
			return 0, illegal(a, "already split")
		}
		if !hand.CanSplit() {
			return 0, illegal(a, "cards are not a pair")
		}
		return hand.Bet, nil
	}
	return 0, nil
}

// LegalActions lists the actions currently available to the player
func LegalActions(s *GameState) []Action {
	var legal []Action
	for _, a := range AllActions {
		if _, err := StakeFor(s, a); err == nil {
			legal = append(legal, a)
		}
	}
	return legal
}

// Apply validates and applies an action. Any extra stake reported by
// StakeFor must already be charged by the caller.
func (s *GameState) Apply(a Action) error {
	if _, err := StakeFor(s, a); err != nil {
		return err
	}

	switch a {
	case ActionInsure:
		return s.ResolveInsurance(true)
	case ActionSkipInsurance:
		return s.ResolveInsurance(false)
	case ActionHit:
		return s.hit()
	case ActionStand:
		s.Current().Complete = true
		s.AdvanceToNextHand()
		return nil
	case ActionDouble:
		return s.double()
	case ActionSplit:
		return s.split()
	}
	return illegal(a, "unknown action")
}

func (s *GameState) hit() error {
	card, err := s.Draw()
	if err != nil {
		return err
	}
	hand := s.Current()
	hand.Cards = append(hand.Cards, card)
	if hand.Value().Total >= 21 {
		hand.Complete = true
		s.AdvanceToNextHand()
	}
	return nil
}

func (s *GameState) double() error {
	card, err := s.Draw()
	if err != nil {
		return err
	}
	hand := s.Current()
	hand.Bet *= 2
	hand.Doubled = true
	hand.Cards = append(hand.Cards, card)
	hand.Complete = true
	s.AdvanceToNextHand()
	return nil
}

func (s *GameState) split() error {
	if remaining := s.CardsRemaining(); remaining < 2 {
		return fmt.Errorf("split needs 2 cards, %d left: %w", remaining, ErrShoeExhausted)
	}
	original := s.Hands[0]
	aces := original.Cards[0].IsAce()

	hands := make([]Hand, 2)
	for i := range hands {
		card, err := s.Draw()
		if err != nil {
			return err
		}
		hands[i] = Hand{
			Cards: []Card{original.Cards[i], card},
			Bet:   original.Bet,
		}
		if aces {
			hands[i].IsSplitAces = true
			hands[i].Complete = true
		} else if hands[i].Value().Total >= 21 {
			hands[i].Complete = true
		}
	}

	s.Hands = hands
	s.CurrentHand = 0
	s.AdvanceToNextHand()
	return nil
}
