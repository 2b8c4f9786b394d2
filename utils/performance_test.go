package utils

import (
	"testing"

	"hrc-blackjack/games/blackjack"
)

// BenchmarkFormatting tests number formatting performance
func BenchmarkFormatting(b *testing.B) {
	testNumbers := []int64{123, 1234, 12345, 123456, 1234567, 12345678}

	b.Run("FormatChips", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			FormatChips(testNumbers[i%len(testNumbers)])
		}
	})

	b.Run("FormatNumber", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			FormatNumber(-testNumbers[i%len(testNumbers)])
		}
	})
}

// BenchmarkGameRender measures building the embed and buttons for one move
func BenchmarkGameRender(b *testing.B) {
	shoe, err := blackjack.NewShoe(blackjack.DeckCount)
	if err != nil {
		b.Fatal(err)
	}
	g := blackjack.NewGame(100, shoe)
	if err := g.Deal(); err != nil {
		b.Fatal(err)
	}
	snap := g.Snapshot()
	legal := blackjack.LegalActions(g)
	nonce := "7b0c5a4e-9a43-4a4e-8f8e-2d0f5c1f3a10"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		OptimizeEmbedPayload(BlackjackGameEmbed(snap, nil, 1000, false))
		NewBlackjackView(nonce, legal).GetComponents()
	}
}
