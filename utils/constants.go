package utils

// Branding
const (
	BotColor      = 0x5865F2
	FooterText    = "High Roller Club"
	FooterIconURL = "https://res.cloudinary.com/dfoeiotel/image/upload/v1753043816/HRC-final_ymqwfy.png"
	BlackjackIcon = "https://res.cloudinary.com/dfoeiotel/image/upload/v1753042166/3_vxurig.png"
	ChipsEmoji    = "<:chips:1404332422451040330>"
)

// Embed colors
const (
	ColorTable   = 0x1E5631
	ColorWin     = 0xFFD700
	ColorLoss    = 0xFF0000
	ColorPush    = 0xD3D3D3
	ColorWarning = 0xF39C12
	ColorError   = 0xE74C3C
)

// UI Messages
const (
	TimeoutMessage     = "You did not respond in time. The interaction has timed out."
	GameTimeoutMessage = "You did not respond in time, so your remaining hands were stood for you."
	GameAbortedMessage = "The game could not continue and your wager of %s %s has been refunded."
	NotActiveMessage   = "This game is no longer active."
	NotYourGameMessage = "This isn't your game."
)
