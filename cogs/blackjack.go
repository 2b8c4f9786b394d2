package cogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"hrc-blackjack/casino"
	"hrc-blackjack/utils"
)

// ActionPrefix is the custom ID prefix of in-game buttons
const ActionPrefix = "bj:"

const interactionTimeout = 10 * time.Second

// Blackjack connects the /blackjack command and its buttons to the table
// manager.
type Blackjack struct {
	session *discordgo.Session
	svc     *casino.Service
	logger  *log.Logger
}

// NewBlackjack creates the cog and registers the expiry hook that edits
// the message of a game finished while its player was away.
func NewBlackjack(session *discordgo.Session, svc *casino.Service, logger *log.Logger) *Blackjack {
	bj := &Blackjack{
		session: session,
		svc:     svc,
		logger:  logger.WithPrefix("blackjack"),
	}
	svc.OnResolved(bj.onResolved)
	svc.OnConfirmExpired(bj.onConfirmExpired)
	return bj
}

// RegisterBlackjackCommands returns the /blackjack command definition
func RegisterBlackjackCommands() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "blackjack",
		Description: "Play a game of blackjack",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Your bet amount (supports 'all', 'half', percentages like '50%', or exact amounts)",
				Required:    true,
			},
		},
	}
}

// HandleCommand starts a pending game and asks the user to confirm the wager
func (bj *Blackjack) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	userID, err := utils.InteractionUserID(i)
	if err != nil {
		respondError(s, i, "Could not identify you.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		respondError(s, i, "Please provide a bet.")
		return
	}

	balance, err := bj.svc.Balance(ctx, userID)
	if err != nil {
		bj.logger.Error("balance lookup failed", "user", userID, "err", err)
		respondError(s, i, "Failed to get user data. Please try again.")
		return
	}

	bet, err := utils.ParseBet(options[0].StringValue(), balance)
	if err != nil {
		respondError(s, i, fmt.Sprintf("Invalid bet: %v", err))
		return
	}

	token, err := bj.svc.Initiate(ctx, userID, bet)
	switch {
	case errors.Is(err, casino.ErrInsufficientFunds):
		utils.SendInteractionResponse(s, i, utils.InsufficientChipsEmbed(bet, balance, "blackjack bet"), nil, true)
		return
	case err != nil:
		respondError(s, i, errorMessage(err))
		return
	}

	if err := utils.SendInteractionResponse(s, i, utils.BetConfirmationEmbed(bet, balance), utils.BetConfirmationView(token), false); err != nil {
		bj.logger.Error("confirmation prompt failed", "user", userID, "err", err)
		bj.svc.Cancel(ctx, token)
		return
	}

	msg, err := utils.GetOriginalResponseMessage(s, i)
	if err != nil {
		bj.logger.Warn("could not fetch confirmation message", "user", userID, "err", err)
		return
	}
	if err := bj.svc.Attach(ctx, token, utils.MessageRef(msg.ChannelID, msg.ID)); err != nil && !errors.Is(err, casino.ErrSessionNotFound) {
		bj.logger.Warn("could not attach message", "user", userID, "err", err)
	}
}

// HandleComponent routes a button press. It reports false for custom IDs
// that do not belong to blackjack.
func (bj *Blackjack) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	customID := i.MessageComponentData().CustomID

	var ref string
	switch {
	case strings.HasPrefix(customID, utils.ConfirmPrefix):
		ref = strings.TrimPrefix(customID, utils.ConfirmPrefix)
	case strings.HasPrefix(customID, utils.CancelPrefix):
		ref = strings.TrimPrefix(customID, utils.CancelPrefix)
	case strings.HasPrefix(customID, ActionPrefix):
		ref = customID
	default:
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	userID, err := utils.InteractionUserID(i)
	if err != nil {
		respondError(s, i, "Could not identify you.")
		return true
	}
	owner, err := bj.svc.OwnerOf(ctx, ref)
	if err != nil {
		respondError(s, i, errorMessage(err))
		return true
	}
	if owner != userID {
		respondError(s, i, utils.NotYourGameMessage)
		return true
	}

	switch {
	case strings.HasPrefix(customID, utils.CancelPrefix):
		if err := bj.svc.Cancel(ctx, ref); err != nil {
			respondError(s, i, errorMessage(err))
			return true
		}
		embed := utils.CreateBrandedEmbed("Blackjack", "Game cancelled. No chips were wagered.", utils.ColorPush)
		utils.UpdateComponentInteraction(s, i, embed, []discordgo.MessageComponent{})
	case strings.HasPrefix(customID, utils.ConfirmPrefix):
		view, err := bj.svc.Confirm(ctx, ref)
		bj.respond(ctx, s, i, view, err)
	default:
		view, err := bj.svc.Act(ctx, ref)
		bj.respond(ctx, s, i, view, err)
	}
	return true
}

func (bj *Blackjack) respond(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, view casino.View, err error) {
	if err != nil && !view.Aborted {
		respondError(s, i, errorMessage(err))
		return
	}

	if ref := unboundMessageRef(view, i); ref != "" {
		if err := bj.svc.Attach(ctx, view.Nonce, ref); err != nil {
			bj.logger.Warn("could not attach message", "user", view.OwnerID, "err", err)
		}
	}

	balance, err := bj.svc.Balance(ctx, view.OwnerID)
	if err != nil {
		bj.logger.Warn("balance lookup failed", "user", view.OwnerID, "err", err)
	}
	embed, components := renderView(view, balance)
	if err := utils.UpdateComponentInteraction(s, i, embed, components); err != nil {
		bj.logger.Error("could not update game message", "user", view.OwnerID, "err", err)
	}
}

// unboundMessageRef returns the reference of the message a button was
// pressed on when the live game it belongs to has none yet.
func unboundMessageRef(view casino.View, i *discordgo.InteractionCreate) string {
	if view.MessageRef != "" || view.Nonce == "" || view.Finished() {
		return ""
	}
	if i.Message == nil {
		return ""
	}
	return utils.MessageRef(i.Message.ChannelID, i.Message.ID)
}

func (bj *Blackjack) onResolved(view casino.View) {
	if view.MessageRef == "" || bj.session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	balance, err := bj.svc.Balance(ctx, view.OwnerID)
	if err != nil {
		bj.logger.Warn("balance lookup failed", "user", view.OwnerID, "err", err)
	}
	embed, components := renderView(view, balance)
	if err := utils.EditChannelMessage(bj.session, view.MessageRef, embed, components); err != nil {
		bj.logger.Error("could not edit expired game", "user", view.OwnerID, "ref", view.MessageRef, "err", err)
	}
}

func (bj *Blackjack) onConfirmExpired(ownerID int64, messageRef string) {
	if messageRef == "" || bj.session == nil {
		return
	}
	if err := utils.EditChannelMessage(bj.session, messageRef, utils.CreateTimeoutEmbed(), []discordgo.MessageComponent{}); err != nil {
		bj.logger.Warn("could not expire confirmation", "user", ownerID, "ref", messageRef, "err", err)
	}
}

// renderView turns a table view into the message embed and buttons
func renderView(view casino.View, balance int64) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	if view.Aborted {
		return utils.AbortedGameEmbed(wagered(view)), []discordgo.MessageComponent{}
	}
	embed := utils.BlackjackGameEmbed(view.Snapshot, view.Settlement, balance, view.TimedOut)
	bv := utils.NewBlackjackView(view.Nonce, view.Legal)
	if view.Finished() {
		return embed, bv.DisableAllButtons()
	}
	return embed, bv.GetComponents()
}

func wagered(view casino.View) int64 {
	total := view.Snapshot.InsuranceBet
	for _, h := range view.Snapshot.Hands {
		total += h.Bet
	}
	return total
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, casino.ErrSessionNotFound):
		return utils.NotActiveMessage
	case errors.Is(err, casino.ErrSessionExists):
		return "You already have an active blackjack game!"
	case errors.Is(err, casino.ErrPendingExists):
		return "You already have a blackjack game waiting for confirmation."
	case errors.Is(err, casino.ErrInvalidBet):
		return "Bet must be greater than 0."
	case errors.Is(err, casino.ErrInsufficientFunds):
		return "Insufficient chips."
	case errors.Is(err, casino.ErrIllegalAction):
		return "That move isn't available right now."
	default:
		return "Something went wrong. Please try again."
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "❌ " + message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
