package main

import (
	"slices"

	"hrc-blackjack/games/blackjack"
)

// chooseAction plays basic strategy for a dealer that stands on soft 17.
// Insurance is always declined.
func chooseAction(snap blackjack.Snapshot, legal []blackjack.Action) blackjack.Action {
	can := func(a blackjack.Action) bool { return slices.Contains(legal, a) }

	if can(blackjack.ActionSkipInsurance) {
		return blackjack.ActionSkipInsurance
	}
	if len(snap.DealerHand) == 0 || snap.CurrentHand >= len(snap.Hands) {
		return blackjack.ActionStand
	}

	up := upcard(snap.DealerHand[0])
	hand := snap.Hands[snap.CurrentHand]
	value := hand.Value()

	if can(blackjack.ActionSplit) && shouldSplit(hand.Cards[0], up) {
		return blackjack.ActionSplit
	}

	var want blackjack.Action
	if value.IsSoft {
		want = softMove(value.Total, up)
	} else {
		want = hardMove(value.Total, up)
	}

	switch {
	case can(want):
		return want
	case want == blackjack.ActionDouble && value.IsSoft && value.Total >= 18:
		return blackjack.ActionStand
	case want == blackjack.ActionDouble && can(blackjack.ActionHit):
		return blackjack.ActionHit
	default:
		return blackjack.ActionStand
	}
}

// upcard scores the dealer's upcard with aces high
func upcard(c blackjack.Card) int {
	if c.IsAce() {
		return 11
	}
	return c.Value()
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

func shouldSplit(c blackjack.Card, up int) bool {
	switch v := upcard(c); v {
	case 11, 8:
		return true
	case 9:
		return between(up, 2, 9) && up != 7
	case 7:
		return between(up, 2, 7)
	case 6:
		return between(up, 2, 6)
	case 4:
		return between(up, 5, 6)
	case 2, 3:
		return between(up, 2, 7)
	default:
		return false
	}
}

func softMove(total, up int) blackjack.Action {
	switch {
	case total >= 19:
		return blackjack.ActionStand
	case total == 18:
		if between(up, 3, 6) {
			return blackjack.ActionDouble
		}
		if up <= 8 {
			return blackjack.ActionStand
		}
		return blackjack.ActionHit
	case total == 17:
		if between(up, 3, 6) {
			return blackjack.ActionDouble
		}
	case total >= 15:
		if between(up, 4, 6) {
			return blackjack.ActionDouble
		}
	default:
		if between(up, 5, 6) {
			return blackjack.ActionDouble
		}
	}
	return blackjack.ActionHit
}

func hardMove(total, up int) blackjack.Action {
	switch {
	case total >= 17:
		return blackjack.ActionStand
	case total >= 13:
		if up <= 6 {
			return blackjack.ActionStand
		}
	case total == 12:
		if between(up, 4, 6) {
			return blackjack.ActionStand
		}
	case total == 11:
		return blackjack.ActionDouble
	case total == 10:
		if up <= 9 {
			return blackjack.ActionDouble
		}
	case total == 9:
		if between(up, 3, 6) {
			return blackjack.ActionDouble
		}
	}
	return blackjack.ActionHit
}
