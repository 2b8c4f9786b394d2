package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrc-blackjack/games/blackjack"
)

func dealt(t *testing.T, ranks ...string) *blackjack.GameState {
	t.Helper()
	shoe := make([]blackjack.Card, len(ranks))
	for i, r := range ranks {
		shoe[i] = blackjack.NewCard(r, "♥️")
	}
	g := blackjack.NewGame(100, shoe)
	require.NoError(t, g.Deal())
	return g
}

func fieldNamed(t *testing.T, fields []string, prefix string) string {
	t.Helper()
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			return f
		}
	}
	t.Fatalf("no field starting with %q in %v", prefix, fields)
	return ""
}

func TestBlackjackGameEmbedHidesHoleCard(t *testing.T) {
	g := dealt(t, "10", "7", "9", "K")
	embed := BlackjackGameEmbed(g.Snapshot(), nil, 900, false)

	var names, values []string
	for _, f := range embed.Fields {
		names = append(names, f.Name)
		values = append(values, f.Value)
	}
	assert.Equal(t, "Dealer's Hand - 7", fieldNamed(t, names, "Dealer"))
	assert.Contains(t, values, "`7♥️ ??`")
	assert.Equal(t, "Your Hand - 19", fieldNamed(t, names, "Your Hand"))
	assert.Equal(t, ColorTable, embed.Color)
	assert.Contains(t, embed.Footer.Text, "Bet: 100")
}

func TestBlackjackGameEmbedSettled(t *testing.T) {
	g := dealt(t, "10", "7", "9", "K")
	require.NoError(t, g.Apply(blackjack.ActionStand))
	require.NoError(t, g.PlayDealer())
	result := blackjack.Settle(g)
	require.NoError(t, g.Finish(result))

	embed := BlackjackGameEmbed(g.Snapshot(), &result, 1100, true)
	assert.Equal(t, ColorWin, embed.Color)
	assert.Contains(t, embed.Description, GameTimeoutMessage)

	var names []string
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, "Dealer's Hand - 17", fieldNamed(t, names, "Dealer"))
	assert.Contains(t, names, "Winnings")
	assert.Contains(t, names, "New Balance")
}

func TestOutcomeText(t *testing.T) {
	result := &blackjack.Settlement{
		Hands: []blackjack.HandResult{
			{HandIndex: 0, Outcome: blackjack.OutcomeWin},
			{HandIndex: 1, Outcome: blackjack.OutcomeBust},
		},
		InsuranceBet: 50,
	}
	assert.Equal(t, "Hand 1: You win!\nHand 2: Bust\nInsurance lost", OutcomeText(result))

	declined := &blackjack.Settlement{
		Hands:            []blackjack.HandResult{{Outcome: blackjack.OutcomePush}},
		InsuranceOffered: true,
	}
	assert.Equal(t, "Push\nInsurance declined", OutcomeText(declined))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-12,500", FormatNumber(-12500))
}
