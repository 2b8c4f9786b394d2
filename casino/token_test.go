package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrc-blackjack/games/blackjack"
	"hrc-blackjack/sessions"
)

func TestParseToken(t *testing.T) {
	nonce := sessions.NewNonce()

	got, action, err := ParseToken(EncodeToken(nonce, blackjack.ActionSkipInsurance))
	require.NoError(t, err)
	assert.Equal(t, nonce, got)
	assert.Equal(t, blackjack.ActionSkipInsurance, action)

	_, _, err = ParseToken("bj:" + nonce + ":hit:extra")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
