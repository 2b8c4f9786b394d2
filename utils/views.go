package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"hrc-blackjack/casino"
	"hrc-blackjack/games/blackjack"
)

// Custom ID prefixes for the confirmation buttons
const (
	ConfirmPrefix = "bj_confirm:"
	CancelPrefix  = "bj_cancel:"
)

// CreateActionRow creates an action row with buttons
func CreateActionRow(buttons ...discordgo.MessageComponent) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: buttons,
	}
}

// CreateButton creates a button component
func CreateButton(customID, label string, style discordgo.ButtonStyle, disabled bool, emoji *discordgo.ComponentEmoji) discordgo.MessageComponent {
	button := discordgo.Button{
		CustomID: customID,
		Label:    label,
		Style:    style,
		Disabled: disabled,
	}
	if emoji != nil {
		button.Emoji = emoji
	}
	return button
}

type actionButton struct {
	label  string
	style  discordgo.ButtonStyle
	emoji  string
	always bool
}

var actionButtons = map[blackjack.Action]actionButton{
	blackjack.ActionHit:           {"Hit", discordgo.PrimaryButton, "🃏", true},
	blackjack.ActionStand:         {"Stand", discordgo.SecondaryButton, "✋", true},
	blackjack.ActionDouble:        {"Double Down", discordgo.SuccessButton, "💰", false},
	blackjack.ActionSplit:         {"Split", discordgo.SuccessButton, "✂️", false},
	blackjack.ActionInsure:        {"Insurance", discordgo.SecondaryButton, "🛡️", false},
	blackjack.ActionSkipInsurance: {"No Insurance", discordgo.DangerButton, "🚫", false},
}

// BlackjackView builds the action buttons for one game. Each button
// carries the action token for the game's nonce.
type BlackjackView struct {
	Nonce string
	Legal []blackjack.Action
}

// NewBlackjackView creates a view for the legal actions of a game
func NewBlackjackView(nonce string, legal []blackjack.Action) *BlackjackView {
	return &BlackjackView{Nonce: nonce, Legal: legal}
}

func (bv *BlackjackView) legal(a blackjack.Action) bool {
	for _, l := range bv.Legal {
		if l == a {
			return true
		}
	}
	return false
}

// GetComponents returns the button rows. Hit and Stand are always shown,
// disabled when not available; the rest appear only when legal.
func (bv *BlackjackView) GetComponents() []discordgo.MessageComponent {
	if len(bv.Legal) == 0 {
		return []discordgo.MessageComponent{}
	}

	var buttons []discordgo.MessageComponent
	for _, a := range blackjack.AllActions {
		btn := actionButtons[a]
		legal := bv.legal(a)
		if !legal && !btn.always {
			continue
		}
		buttons = append(buttons, CreateButton(
			casino.EncodeToken(bv.Nonce, a),
			btn.label,
			btn.style,
			!legal,
			&discordgo.ComponentEmoji{Name: btn.emoji},
		))
	}
	return []discordgo.MessageComponent{CreateActionRow(buttons...)}
}

// DisableAllButtons clears the legal actions and returns the empty view
func (bv *BlackjackView) DisableAllButtons() []discordgo.MessageComponent {
	bv.Legal = nil
	return bv.GetComponents()
}

// ConfirmationView creates a view for confirmation dialogs
func ConfirmationView(confirmID, cancelID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		CreateActionRow(
			CreateButton(confirmID, "Confirm", discordgo.SuccessButton, false, &discordgo.ComponentEmoji{Name: "✅"}),
			CreateButton(cancelID, "Cancel", discordgo.DangerButton, false, &discordgo.ComponentEmoji{Name: "❌"}),
		),
	}
}

// BetConfirmationView is the confirm/cancel row for a pending game
func BetConfirmationView(pendingToken string) []discordgo.MessageComponent {
	return ConfirmationView(ConfirmPrefix+pendingToken, CancelPrefix+pendingToken)
}

// SendInteractionResponse answers a slash command with an embed
func SendInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// UpdateComponentInteraction replaces the message a button belongs to
func UpdateComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)},
			Components: components,
		},
	})
}

// GetOriginalResponseMessage fetches the message sent as the interaction
// response with a no-op edit.
func GetOriginalResponseMessage(s *discordgo.Session, i *discordgo.InteractionCreate) (*discordgo.Message, error) {
	return s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{})
}

// EditChannelMessage edits a message by its reference. A message that no
// longer exists is not an error.
func EditChannelMessage(s *discordgo.Session, messageRef string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	channelID, messageID, ok := SplitMessageRef(messageRef)
	if !ok {
		return fmt.Errorf("invalid message reference %q", messageRef)
	}
	embeds := []*discordgo.MessageEmbed{OptimizeEmbedPayload(embed)}
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	})
	if isUnknownMessageError(err) {
		return nil
	}
	return err
}

// MessageRef packs a channel and message ID into one opaque reference
func MessageRef(channelID, messageID string) string {
	return channelID + "/" + messageID
}

// SplitMessageRef reverses MessageRef
func SplitMessageRef(ref string) (channelID, messageID string, ok bool) {
	channelID, messageID, ok = strings.Cut(ref, "/")
	if !ok || channelID == "" || messageID == "" {
		return "", "", false
	}
	return channelID, messageID, true
}

// InteractionUserID returns the numeric ID of the user behind an
// interaction, in a guild or a DM.
func InteractionUserID(i *discordgo.InteractionCreate) (int64, error) {
	var user *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		user = i.Member.User
	case i.User != nil:
		user = i.User
	default:
		return 0, fmt.Errorf("interaction has no user")
	}
	return ParseUserID(user.ID)
}

// ParseUserID converts a Discord user ID string to int64
func ParseUserID(id string) (int64, error) { return strconv.ParseInt(id, 10, 64) }

func isUnknownMessageError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Unknown Message") ||
		strings.Contains(msg, "\"code\": 10008") ||
		strings.Contains(msg, "404")
}

// OptimizeEmbedPayload ensures embed payload is minimal and efficiently structured
func OptimizeEmbedPayload(embed *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	if embed == nil {
		return embed
	}

	optimized := &discordgo.MessageEmbed{
		Title:       strings.TrimSpace(embed.Title),
		Description: strings.TrimSpace(embed.Description),
		Color:       embed.Color,
		Timestamp:   embed.Timestamp,
	}

	if embed.Footer != nil && strings.TrimSpace(embed.Footer.Text) != "" {
		optimized.Footer = &discordgo.MessageEmbedFooter{
			Text:    strings.TrimSpace(embed.Footer.Text),
			IconURL: embed.Footer.IconURL,
		}
	}
	if embed.Thumbnail != nil && embed.Thumbnail.URL != "" {
		optimized.Thumbnail = embed.Thumbnail
	}
	if embed.Image != nil && embed.Image.URL != "" {
		optimized.Image = embed.Image
	}

	// Discord rejects fields with an empty name or value
	for _, field := range embed.Fields {
		if field != nil && strings.TrimSpace(field.Name) != "" && strings.TrimSpace(field.Value) != "" {
			optimized.Fields = append(optimized.Fields, &discordgo.MessageEmbedField{
				Name:   strings.TrimSpace(field.Name),
				Value:  strings.TrimSpace(field.Value),
				Inline: field.Inline,
			})
		}
	}
	return optimized
}
