package cogs

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"hrc-blackjack/casino"
	"hrc-blackjack/utils"
)

// GeneralCommands returns the non-game commands
func GeneralCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check bot latency and status",
		},
		{
			Name:        "balance",
			Description: "Check your current chip balance",
		},
	}
}

// HandlePing reports gateway latency
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	startTime := time.Now()
	latency := s.HeartbeatLatency()

	embed := utils.CreateBrandedEmbed("🏓 Pong!", "", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Latency", Value: fmt.Sprintf("%dms", latency.Milliseconds()), Inline: true},
		{Name: "Status", Value: "✅ Online", Inline: true},
		{Name: "Response Time", Value: fmt.Sprintf("%dms", time.Since(startTime).Milliseconds()), Inline: true},
	}
	utils.SendInteractionResponse(s, i, embed, nil, false)
}

// HandleBalance shows the caller's chips
func HandleBalance(svc *casino.Service) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		userID, err := utils.InteractionUserID(i)
		if err != nil {
			respondError(s, i, "Could not identify you.")
			return
		}
		chips, err := svc.Balance(ctx, userID)
		if err != nil {
			respondError(s, i, "Error accessing user data. Database may be unavailable.")
			return
		}

		embed := utils.CreateBrandedEmbed("💰 Balance",
			fmt.Sprintf("You currently have **%s** %s chips", utils.FormatChips(chips), utils.ChipsEmoji),
			utils.BotColor)
		utils.SendInteractionResponse(s, i, embed, nil, true)
	}
}
