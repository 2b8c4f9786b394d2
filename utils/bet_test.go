package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBet(t *testing.T) {
	tests := []struct {
		input string
		chips int64
		want  int64
	}{
		{"100", 5000, 100},
		{" 1,500 ", 5000, 1500},
		{"2_000", 5000, 2000},
		{"10k", 50000, 10000},
		{"2M", 0, 2000000},
		{"all", 5000, 5000},
		{"allin", 5000, 5000},
		{"max", 5000, 5000},
		{"half", 5001, 2500},
		{"50%", 5000, 2500},
		{"12.5%", 800, 100},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBet(tt.input, tt.chips)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBetRejects(t *testing.T) {
	for _, input := range []string{"", "abc", "101%", "-5%", "x%", "1.5k", "99999999999999999m"} {
		_, err := ParseBet(input, 1000)
		assert.Error(t, err, input)
	}
}
