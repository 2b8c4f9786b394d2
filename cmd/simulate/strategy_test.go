package main

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrc-blackjack/games/blackjack"
)

func snapshot(dealerUp string, player ...string) blackjack.Snapshot {
	hand := blackjack.NewHand(10)
	for _, r := range player {
		hand.Cards = append(hand.Cards, blackjack.NewCard(r, "♦️"))
	}
	return blackjack.Snapshot{
		Phase:      blackjack.PhasePlayerTurn,
		Hands:      []blackjack.Hand{hand},
		DealerHand: []blackjack.Card{blackjack.NewCard(dealerUp, "♣️")},
	}
}

var allPlayerActions = []blackjack.Action{blackjack.ActionHit, blackjack.ActionStand, blackjack.ActionDouble, blackjack.ActionSplit}

func TestChooseAction(t *testing.T) {
	tests := []struct {
		name   string
		up     string
		player []string
		legal  []blackjack.Action
		want   blackjack.Action
	}{
		{"hard 17 stands", "10", []string{"10", "7"}, allPlayerActions, blackjack.ActionStand},
		{"hard 16 hits a ten", "K", []string{"10", "6"}, allPlayerActions, blackjack.ActionHit},
		{"hard 13 stands on a six", "6", []string{"8", "5"}, allPlayerActions, blackjack.ActionStand},
		{"eleven doubles", "9", []string{"6", "5"}, allPlayerActions, blackjack.ActionDouble},
		{"eleven hits when double is unavailable", "9", []string{"6", "5"}, []blackjack.Action{blackjack.ActionHit, blackjack.ActionStand}, blackjack.ActionHit},
		{"aces split", "10", []string{"A", "A"}, allPlayerActions, blackjack.ActionSplit},
		{"tens never split", "6", []string{"K", "K"}, allPlayerActions, blackjack.ActionStand},
		{"soft 18 stands on a seven", "7", []string{"A", "7"}, allPlayerActions, blackjack.ActionStand},
		{"soft 18 doubles on a four", "4", []string{"A", "7"}, allPlayerActions, blackjack.ActionDouble},
		{"soft 18 stands when double is gone", "4", []string{"A", "7"}, []blackjack.Action{blackjack.ActionHit, blackjack.ActionStand}, blackjack.ActionStand},
		{"soft 18 hits an ace", "A", []string{"A", "7"}, allPlayerActions, blackjack.ActionHit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseAction(snapshot(tt.up, tt.player...), tt.legal))
		})
	}
}

func TestChooseActionDeclinesInsurance(t *testing.T) {
	snap := snapshot("A", "10", "6")
	snap.Phase = blackjack.PhaseInsuranceOffer
	got := chooseAction(snap, []blackjack.Action{blackjack.ActionInsure, blackjack.ActionSkipInsurance})
	assert.Equal(t, blackjack.ActionSkipInsurance, got)
}

func TestRunConservesChips(t *testing.T) {
	cli := CLI{Games: 200, Players: 3, Bet: 10, Decks: 6, Bankroll: 100000}
	tallies, balances, err := run(context.Background(), cli, 42, log.New(io.Discard))
	require.NoError(t, err)
	require.Len(t, tallies, 3)

	for p, tally := range tallies {
		assert.Equal(t, cli.Games, tally.Games+tally.Aborted)
		assert.Equal(t, cli.Bankroll+tally.Net(), balances[p])
		assert.GreaterOrEqual(t, tally.Wagered, int64(cli.Games)*cli.Bet)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, _, err := run(context.Background(), CLI{Players: 0, Bet: 10}, 1, log.New(io.Discard))
	assert.Error(t, err)
}
