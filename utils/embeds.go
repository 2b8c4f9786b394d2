package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"hrc-blackjack/games/blackjack"
	"hrc-blackjack/ledger"
)

// CreateBrandedEmbed creates a basic embed with bot branding
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    FooterText,
			IconURL: FooterIconURL,
		},
	}
}

// InsufficientChipsEmbed tells the user a bet is more than they hold
func InsufficientChipsEmbed(requiredChips, currentBalance int64, betDescription string) *discordgo.MessageEmbed {
	embed := CreateBrandedEmbed(
		"Insufficient Chips",
		fmt.Sprintf("You need %s %s for %s.", FormatChips(requiredChips), ChipsEmoji, betDescription),
		ColorError,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Current Balance", Value: fmt.Sprintf("%s %s", FormatChips(currentBalance), ChipsEmoji), Inline: true},
		{Name: "Shortfall", Value: fmt.Sprintf("%s %s", FormatChips(requiredChips-currentBalance), ChipsEmoji), Inline: true},
	}
	return embed
}

// CreateTimeoutEmbed creates a generic timeout embed
func CreateTimeoutEmbed() *discordgo.MessageEmbed {
	return CreateBrandedEmbed("⏰ Timeout", TimeoutMessage, ColorWarning)
}

// BetConfirmationEmbed asks the user to confirm a wager before chips move
func BetConfirmationEmbed(bet, balance int64) *discordgo.MessageEmbed {
	embed := CreateBrandedEmbed(
		"Blackjack",
		fmt.Sprintf("Wager %s %s on a hand of blackjack?", FormatChips(bet), ChipsEmoji),
		ColorTable,
	)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: BlackjackIcon}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Balance", Value: fmt.Sprintf("%s %s", FormatChips(balance), ChipsEmoji), Inline: true},
	}
	return embed
}

// BlackjackGameEmbed renders a table snapshot. result is nil while the game
// is in progress.
func BlackjackGameEmbed(snap blackjack.Snapshot, result *blackjack.Settlement, balance int64, timedOut bool) *discordgo.MessageEmbed {
	color := ColorTable
	if result != nil {
		switch net := result.Net(); {
		case net > 0:
			color = ColorWin
		case net < 0:
			color = ColorLoss
		default:
			color = ColorPush
		}
	}

	embed := CreateBrandedEmbed("Blackjack", "", color)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: BlackjackIcon}
	if timedOut {
		embed.Description = "⏰ " + GameTimeoutMessage
	}

	for i := range snap.Hands {
		hand := &snap.Hands[i]
		var title string
		if len(snap.Hands) > 1 {
			marker := ""
			if snap.Phase == blackjack.PhasePlayerTurn && i == snap.CurrentHand {
				marker = "▶ "
			}
			title = fmt.Sprintf("%sYour Hand (%d/%d) - %s", marker, i+1, len(snap.Hands), formatValue(hand.Value()))
		} else {
			title = fmt.Sprintf("Your Hand - %s", formatValue(hand.Value()))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  title,
			Value: fmt.Sprintf("`%s`", hand.String()),
		})
	}

	dealerCards := make([]string, 0, len(snap.DealerHand)+1)
	for _, c := range snap.DealerHand {
		dealerCards = append(dealerCards, c.String())
	}
	if snap.HoleCardHidden {
		dealerCards = append(dealerCards, "??")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("Dealer's Hand - %s", formatValue(snap.DealerValue)),
		Value: fmt.Sprintf("`%s`", strings.Join(dealerCards, " ")),
	})

	if snap.Phase == blackjack.PhaseInsuranceOffer {
		embed.Description = strings.TrimSpace(embed.Description + fmt.Sprintf(
			"\nThe dealer shows an Ace. Insurance costs %s %s.", FormatChips(snap.MainBet/2), ChipsEmoji))
	}

	if result == nil {
		embed.Footer.Text = fmt.Sprintf("%s | Bet: %s chips", FooterText, FormatChips(snap.MainBet))
		return embed
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Outcome",
		Value: OutcomeText(result),
	})
	if net := result.Net(); net > 0 {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Winnings", Value: fmt.Sprintf("%s %s", FormatChips(net), ChipsEmoji), Inline: true},
			&discordgo.MessageEmbedField{Name: "XP Gained", Value: fmt.Sprintf("%s XP", FormatChips(net*ledger.XPPerProfit)), Inline: true},
		)
	} else if net < 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Losses", Value: fmt.Sprintf("%s %s", FormatChips(-net), ChipsEmoji), Inline: true,
		})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "New Balance",
		Value: fmt.Sprintf("%s %s", FormatChips(balance), ChipsEmoji),
	})
	embed.Footer.Text = FooterText + " | Game Over"
	return embed
}

// AbortedGameEmbed reports a game that was cancelled with a full refund
func AbortedGameEmbed(wagered int64) *discordgo.MessageEmbed {
	return CreateBrandedEmbed("Blackjack",
		fmt.Sprintf(GameAbortedMessage, FormatChips(wagered), ChipsEmoji), ColorWarning)
}

// OutcomeText describes each settled hand on its own line
func OutcomeText(result *blackjack.Settlement) string {
	lines := make([]string, 0, len(result.Hands)+1)
	for _, hr := range result.Hands {
		prefix := ""
		if len(result.Hands) > 1 {
			prefix = fmt.Sprintf("Hand %d: ", hr.HandIndex+1)
		}
		lines = append(lines, prefix+outcomeLabel(hr.Outcome))
	}
	if result.InsuranceBet > 0 {
		if result.InsurancePayout > 0 {
			lines = append(lines, fmt.Sprintf("Insurance pays %s", FormatChips(result.InsurancePayout)))
		} else {
			lines = append(lines, "Insurance lost")
		}
	} else if result.InsuranceOffered {
		lines = append(lines, "Insurance declined")
	}
	return strings.Join(lines, "\n")
}

func outcomeLabel(o blackjack.Outcome) string {
	switch o {
	case blackjack.OutcomeBlackjack:
		return "Blackjack! Pays 3:2"
	case blackjack.OutcomeWin:
		return "You win!"
	case blackjack.OutcomePush:
		return "Push"
	case blackjack.OutcomeBust:
		return "Bust"
	}
	return "Dealer wins"
}

func formatValue(v blackjack.Value) string {
	if v.IsSoft && !v.IsBlackjack {
		return "Soft " + strconv.Itoa(v.Total)
	}
	return strconv.Itoa(v.Total)
}

// FormatChips formats a chip amount with thousands separators
func FormatChips(amount int64) string {
	return FormatNumber(amount)
}

func FormatNumber(num int64) string {
	if num < 0 {
		return "-" + FormatNumber(-num)
	}
	str := strconv.FormatInt(num, 10)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(r)
	}
	return result.String()
}
