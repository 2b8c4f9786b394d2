package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBet parses a bet string against the user's balance. It accepts
// plain numbers, k/m suffixes, percentages and all/allin/max/half.
func ParseBet(betStr string, userChips int64) (int64, error) {
	betStr = strings.TrimSpace(strings.ToLower(betStr))
	betStr = strings.ReplaceAll(betStr, ",", "")
	betStr = strings.ReplaceAll(betStr, "_", "")

	switch betStr {
	case "all", "allin", "max":
		return userChips, nil
	case "half":
		return userChips / 2, nil
	}

	if strings.HasSuffix(betStr, "%") {
		percent, err := strconv.ParseFloat(strings.TrimSuffix(betStr, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage: %s", betStr)
		}
		if percent < 0 || percent > 100 {
			return 0, fmt.Errorf("percentage must be between 0 and 100")
		}
		return int64(float64(userChips) * percent / 100), nil
	}

	multiplier := int64(1)
	if strings.HasSuffix(betStr, "k") {
		multiplier = 1000
		betStr = strings.TrimSuffix(betStr, "k")
	} else if strings.HasSuffix(betStr, "m") {
		multiplier = 1000000
		betStr = strings.TrimSuffix(betStr, "m")
	}

	bet, err := strconv.ParseInt(betStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bet amount: %s", betStr)
	}
	if bet > 0 && bet > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("bet amount too large: %s", betStr)
	}
	return bet * multiplier, nil
}
