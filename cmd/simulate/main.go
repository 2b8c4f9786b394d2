package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"hrc-blackjack/casino"
	"hrc-blackjack/games/blackjack"
	"hrc-blackjack/ledger"
	"hrc-blackjack/sessions"
)

type CLI struct {
	Games    int    `default:"10000" help:"Games to play per player"`
	Players  int    `default:"4" help:"Players seated at once"`
	Bet      int64  `default:"10" help:"Main bet per game"`
	Decks    int    `default:"6" help:"Decks per shoe"`
	Bankroll int64  `default:"1000000" help:"Starting chips per player"`
	Seed     uint64 `default:"0" help:"RNG seed (0 for random)"`
	Verbose  bool   `short:"v" help:"Verbose logging"`
}

// Tally accumulates the results of one player's games
type Tally struct {
	Games      int
	Aborted    int
	Hands      int
	Wins       int
	Losses     int
	Pushes     int
	Blackjacks int
	Wagered    int64
	Paid       int64
}

func (t *Tally) Add(result blackjack.Settlement) {
	t.Games++
	t.Wagered += result.Wagered
	t.Paid += result.Total
	for _, hr := range result.Hands {
		t.Hands++
		switch hr.Outcome {
		case blackjack.OutcomeBlackjack:
			t.Blackjacks++
			t.Wins++
		case blackjack.OutcomeWin:
			t.Wins++
		case blackjack.OutcomePush:
			t.Pushes++
		default:
			t.Losses++
		}
	}
}

func (t *Tally) Merge(o Tally) {
	t.Games += o.Games
	t.Aborted += o.Aborted
	t.Hands += o.Hands
	t.Wins += o.Wins
	t.Losses += o.Losses
	t.Pushes += o.Pushes
	t.Blackjacks += o.Blackjacks
	t.Wagered += o.Wagered
	t.Paid += o.Paid
}

func (t *Tally) Net() int64 { return t.Paid - t.Wagered }

// RTP is the share of wagered chips paid back
func (t *Tally) RTP() float64 {
	if t.Wagered == 0 {
		return 0
	}
	return float64(t.Paid) / float64(t.Wagered)
}

// shoeSource shuffles every shoe from one seeded generator
type shoeSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newShoeSource(seed uint64) *shoeSource {
	return &shoeSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *shoeSource) next(decks int) ([]blackjack.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return blackjack.NewShoeFromRand(decks, s.r)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("simulate"),
		kong.Description("Play automated blackjack games through the table manager and check that no chips are created or lost."))

	level := log.WarnLevel
	if cli.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level, ReportTimestamp: true})

	seed := cli.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	fmt.Printf("Starting simulation: %d players x %d games, bet %d, %d decks (seed: %d)\n",
		cli.Players, cli.Games, cli.Bet, cli.Decks, seed)

	start := time.Now()
	tallies, balances, err := run(context.Background(), cli, seed, logger)
	ctx.FatalIfErrorf(err)
	elapsed := time.Since(start)

	var total Tally
	leaks := 0
	for p, t := range tallies {
		total.Merge(t)
		want := cli.Bankroll + t.Net()
		if balances[p] != want {
			leaks++
			fmt.Printf("❌ CHIP LEAK! player %d balance %d, expected %d\n", p+1, balances[p], want)
		}
	}

	fmt.Printf("\n=== %d GAMES COMPLETED in %s ===\n", total.Games, elapsed.Round(time.Millisecond))
	if total.Games > 0 {
		fmt.Printf("Performance: %.0f games/sec\n", float64(total.Games)/elapsed.Seconds())
	}
	fmt.Printf("Hands: %d  wins %d (blackjacks %d)  losses %d  pushes %d  aborted %d\n",
		total.Hands, total.Wins, total.Blackjacks, total.Losses, total.Pushes, total.Aborted)
	fmt.Printf("Wagered: %d  Paid: %d  Net: %+d\n", total.Wagered, total.Paid, total.Net())
	fmt.Printf("RTP: %.4f%%\n", total.RTP()*100)

	if leaks > 0 {
		os.Exit(1)
	}
	fmt.Printf("✅ Chips conserved for all %d players\n", cli.Players)
}

// run seats the players concurrently and returns each player's tally and
// final balance.
func run(ctx context.Context, cli CLI, seed uint64, logger *log.Logger) ([]Tally, []int64, error) {
	if cli.Players <= 0 || cli.Games < 0 || cli.Bet <= 0 {
		return nil, nil, errors.New("players and bet must be positive")
	}

	l := ledger.NewMemoryLedger(cli.Bankroll)
	svc := casino.NewService(l, sessions.NewMemoryStore(), casino.Config{
		Decks:   cli.Decks,
		Logger:  logger,
		NewShoe: newShoeSource(seed).next,
	})

	tallies := make([]Tally, cli.Players)
	g, gctx := errgroup.WithContext(ctx)
	for p := range cli.Players {
		g.Go(func() error {
			return play(gctx, svc, int64(p+1), cli, &tallies[p], logger)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	balances := make([]int64, cli.Players)
	for p := range balances {
		b, err := l.Balance(ctx, int64(p+1))
		if err != nil {
			return nil, nil, err
		}
		balances[p] = b
	}
	return tallies, balances, nil
}

func play(ctx context.Context, svc *casino.Service, userID int64, cli CLI, t *Tally, logger *log.Logger) error {
	for n := 0; n < cli.Games; n++ {
		token, err := svc.Initiate(ctx, userID, cli.Bet)
		if errors.Is(err, casino.ErrInsufficientFunds) {
			logger.Warn("player is out of chips", "player", userID, "games", n)
			return nil
		}
		if err != nil {
			return fmt.Errorf("player %d game %d: %w", userID, n, err)
		}

		view, err := svc.Confirm(ctx, token)
		if errors.Is(err, casino.ErrInsufficientFunds) {
			return nil
		}
		legal := view.Legal
		for err == nil && !view.Finished() {
			action := chooseAction(view.Snapshot, legal)
			view, err = svc.Act(ctx, casino.EncodeToken(view.Nonce, action))
			if errors.Is(err, casino.ErrInsufficientFunds) {
				// cannot cover the extra stake, play on without it
				legal = withoutStakes(view.Legal)
				err = nil
				continue
			}
			legal = view.Legal
		}

		switch {
		case view.Aborted:
			t.Aborted++
			logger.Warn("game aborted", "player", userID, "err", err)
		case err != nil:
			return fmt.Errorf("player %d game %d: %w", userID, n, err)
		default:
			t.Add(*view.Settlement)
			logger.Debug("game settled", "player", userID, "net", view.Settlement.Net())
		}
	}
	return nil
}

func withoutStakes(legal []blackjack.Action) []blackjack.Action {
	out := make([]blackjack.Action, 0, len(legal))
	for _, a := range legal {
		if a != blackjack.ActionDouble && a != blackjack.ActionSplit && a != blackjack.ActionInsure {
			out = append(out, a)
		}
	}
	return out
}
