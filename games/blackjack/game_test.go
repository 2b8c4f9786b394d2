package blackjack

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShoe(t *testing.T) {
	shoe, err := NewShoe(DeckCount)
	require.NoError(t, err)
	require.Len(t, shoe, DeckCount*52)

	counts := make(map[Card]int)
	for _, c := range shoe {
		counts[c]++
	}
	assert.Len(t, counts, 52)
	for card, n := range counts {
		assert.Equal(t, DeckCount, n, "card %s", card)
	}
}

func TestNewShoeFromRandIsReproducible(t *testing.T) {
	a, err := NewShoeFromRand(2, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	b, err := NewShoeFromRand(2, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = NewShoeFromRand(0, rand.New(rand.NewPCG(1, 2)))
	assert.Error(t, err)
}

func TestDrawPastEnd(t *testing.T) {
	g := stackedGame(100, "2", "3")
	_, err := g.Draw()
	require.NoError(t, err)
	_, err = g.Draw()
	require.NoError(t, err)

	_, err = g.Draw()
	assert.ErrorIs(t, err, ErrShoeExhausted)
	assert.Equal(t, 2, g.DrawIndex, "cursor never passes the shoe")
}

func TestDealOrder(t *testing.T) {
	g := dealtGame(100, "9", "7", "5", "10")

	assert.Equal(t, cards("9", "5"), g.Hands[0].Cards)
	assert.Equal(t, cards("7", "10"), g.DealerHand)
	assert.Equal(t, 4, g.DrawIndex)
}

func TestDealRouting(t *testing.T) {
	tests := []struct {
		name            string
		ranks           []string
		phase           Phase
		dealerBlackjack bool
	}{
		{"no naturals", []string{"9", "7", "5", "10"}, PhasePlayerTurn, false},
		{"player natural", []string{"A", "7", "K", "10"}, PhaseSettlement, false},
		{"dealer natural under ten upcard", []string{"9", "K", "5", "A"}, PhaseSettlement, true},
		{"ace upcard without blackjack", []string{"9", "A", "5", "7"}, PhaseInsuranceOffer, false},
		{"ace upcard with blackjack", []string{"9", "A", "5", "K"}, PhaseInsuranceOffer, true},
		{"both naturals", []string{"A", "K", "K", "A"}, PhaseSettlement, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := dealtGame(100, tt.ranks...)
			assert.Equal(t, tt.phase, g.Phase)
			assert.Equal(t, tt.dealerBlackjack, g.DealerHasBlackjack)
		})
	}
}

func TestDealTwice(t *testing.T) {
	g := dealtGame(100, "9", "7", "5", "10")
	assert.ErrorIs(t, g.Deal(), ErrIllegalAction)
}

func TestDealShoeExhausted(t *testing.T) {
	g := stackedGame(100, "9", "7", "5")
	assert.ErrorIs(t, g.Deal(), ErrShoeExhausted)
}

func TestResolveInsurance(t *testing.T) {
	t.Run("taken, dealer blackjack", func(t *testing.T) {
		g := dealtGame(100, "9", "A", "5", "K")
		require.NoError(t, g.ResolveInsurance(true))
		assert.Equal(t, int64(50), g.InsuranceBet)
		assert.Equal(t, PhaseSettlement, g.Phase)
	})

	t.Run("declined, no blackjack", func(t *testing.T) {
		g := dealtGame(100, "9", "A", "5", "7")
		require.NoError(t, g.ResolveInsurance(false))
		assert.Zero(t, g.InsuranceBet)
		assert.Equal(t, PhasePlayerTurn, g.Phase)
	})

	t.Run("player natural settles", func(t *testing.T) {
		g := dealtGame(100, "A", "A", "K", "7")
		require.NoError(t, g.ResolveInsurance(false))
		assert.Equal(t, PhaseSettlement, g.Phase)
	})

	t.Run("odd bet rounds down", func(t *testing.T) {
		g := dealtGame(101, "9", "A", "5", "7")
		require.NoError(t, g.ResolveInsurance(true))
		assert.Equal(t, int64(50), g.InsuranceBet)
	})

	t.Run("wrong phase", func(t *testing.T) {
		g := dealtGame(100, "9", "7", "5", "10")
		assert.ErrorIs(t, g.ResolveInsurance(true), ErrIllegalAction)
	})
}

func TestPlayDealer(t *testing.T) {
	t.Run("draws to seventeen", func(t *testing.T) {
		g := dealtGame(100, "10", "10", "8", "2", "3", "2", "K")
		require.NoError(t, g.Apply(ActionStand))
		require.Equal(t, PhaseDealerTurn, g.Phase)

		require.NoError(t, g.PlayDealer())
		assert.Equal(t, PhaseSettlement, g.Phase)
		assert.Equal(t, cards("10", "2", "3", "2"), g.DealerHand)
	})

	t.Run("skips drawing when every hand busted", func(t *testing.T) {
		g := dealtGame(100, "10", "10", "6", "2", "K", "5")
		require.NoError(t, g.Apply(ActionHit))
		require.Equal(t, PhaseDealerTurn, g.Phase)

		require.NoError(t, g.PlayDealer())
		assert.Len(t, g.DealerHand, 2)
		assert.Equal(t, PhaseSettlement, g.Phase)
	})

	t.Run("wrong phase", func(t *testing.T) {
		g := dealtGame(100, "10", "10", "8", "7")
		assert.ErrorIs(t, g.PlayDealer(), ErrIllegalAction)
	})
}

func TestFinish(t *testing.T) {
	g := dealtGame(100, "10", "10", "K", "8")
	require.NoError(t, g.Apply(ActionStand))
	require.NoError(t, g.PlayDealer())

	result := Settle(g)
	require.NoError(t, g.Finish(result))
	assert.Equal(t, PhaseComplete, g.Phase)
	assert.Equal(t, OutcomeWin, g.Hands[0].Outcome)
	assert.Equal(t, int64(200), g.Hands[0].Payout)

	assert.ErrorIs(t, g.Finish(result), ErrIllegalAction)
}
