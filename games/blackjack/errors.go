package blackjack

import "errors"

var (
	// ErrIllegalAction is returned when an action is not valid for the
	// current phase or hand shape. No funds may move for such an action.
	ErrIllegalAction = errors.New("illegal action")

	// ErrShoeExhausted means a draw was requested past the end of the shoe.
	// It indicates a shoe sizing defect and the game must be aborted.
	ErrShoeExhausted = errors.New("shoe exhausted")
)
