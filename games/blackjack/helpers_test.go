package blackjack

// cards builds spade cards from ranks
func cards(ranks ...string) []Card {
	out := make([]Card, len(ranks))
	for i, r := range ranks {
		out[i] = NewCard(r, "♠️")
	}
	return out
}

// stackedGame returns a game whose shoe deals the given ranks in order.
// The first four go player, dealer, player, dealer.
func stackedGame(bet int64, ranks ...string) *GameState {
	return NewGame(bet, cards(ranks...))
}

// dealtGame returns a stacked game that has already been dealt
func dealtGame(bet int64, ranks ...string) *GameState {
	g := stackedGame(bet, ranks...)
	if err := g.Deal(); err != nil {
		panic(err)
	}
	return g
}
