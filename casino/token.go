package casino

import (
	"strings"

	"github.com/google/uuid"

	"hrc-blackjack/games/blackjack"
)

const tokenPrefix = "bj"

// EncodeToken builds the action token a button carries for a session
func EncodeToken(nonce string, action blackjack.Action) string {
	return tokenPrefix + ":" + nonce + ":" + string(action)
}

// ParseToken splits an action token into its nonce and action. Any
// malformed token reports ErrSessionNotFound.
func ParseToken(token string) (string, blackjack.Action, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return "", "", ErrSessionNotFound
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return "", "", ErrSessionNotFound
	}
	action, ok := blackjack.ParseAction(parts[2])
	if !ok {
		return "", "", ErrSessionNotFound
	}
	return parts[1], action, nil
}
