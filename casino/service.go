// Package casino runs blackjack tables for many users at once. It owns the
// money flow around the engine: stakes are withdrawn before the state
// changes and every game ends in exactly one credit or refund.
package casino

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"hrc-blackjack/games/blackjack"
	"hrc-blackjack/ledger"
	"hrc-blackjack/sessions"
)

var (
	ErrInvalidBet        = errors.New("bet must be a positive amount")
	ErrSessionNotFound   = sessions.ErrSessionNotFound
	ErrSessionExists     = sessions.ErrSessionExists
	ErrPendingExists     = sessions.ErrPendingExists
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrIllegalAction     = blackjack.ErrIllegalAction
	ErrShoeExhausted     = blackjack.ErrShoeExhausted
)

// Config tunes a Service. Zero fields take the defaults below.
type Config struct {
	Decks          int
	Timeout        time.Duration
	ConfirmTimeout time.Duration
	RetryDelay     time.Duration
	// ExpiryBudget bounds how long an expiry waits for the player's lock
	ExpiryBudget time.Duration
	Clock        quartz.Clock
	Logger       *log.Logger
	// NewShoe builds the shoe for each game
	NewShoe func(decks int) ([]blackjack.Card, error)
}

const (
	DefaultTimeout        = 5 * time.Minute
	DefaultConfirmTimeout = time.Minute
	DefaultRetryDelay     = 30 * time.Second
	DefaultExpiryBudget   = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Decks <= 0 {
		c.Decks = blackjack.DeckCount
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.ExpiryBudget <= 0 {
		c.ExpiryBudget = DefaultExpiryBudget
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	if c.NewShoe == nil {
		c.NewShoe = blackjack.NewShoe
	}
	return c
}

// View is what the presentation layer gets back from every call
type View struct {
	Nonce      string
	OwnerID    int64
	MessageRef string
	Snapshot   blackjack.Snapshot
	Legal      []blackjack.Action
	Settlement *blackjack.Settlement
	TimedOut   bool
	Aborted    bool
}

// Finished reports whether the game is over
func (v View) Finished() bool {
	return v.Settlement != nil || v.Aborted
}

// Service is the table manager
type Service struct {
	ledger    ledger.Ledger
	registry  *sessions.Registry
	guard     *sessions.Guard
	scheduler *sessions.Scheduler
	clock     quartz.Clock
	logger    *log.Logger
	cfg       Config

	hookMu           sync.RWMutex
	onResolved       func(View)
	onConfirmExpired func(ownerID int64, messageRef string)
}

// NewService creates a table manager over a ledger and a session store
func NewService(l ledger.Ledger, store sessions.Store, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		ledger:    l,
		registry:  sessions.NewRegistry(store),
		guard:     sessions.NewGuard(),
		scheduler: sessions.NewScheduler(cfg.Clock),
		clock:     cfg.Clock,
		logger:    cfg.Logger.WithPrefix("casino"),
		cfg:       cfg,
	}
}

// OnResolved registers a hook for games finished by expiry, which have no
// caller to hand the result to.
func (s *Service) OnResolved(fn func(View)) {
	s.hookMu.Lock()
	s.onResolved = fn
	s.hookMu.Unlock()
}

// OnConfirmExpired registers a hook for pending games whose confirmation
// window lapsed.
func (s *Service) OnConfirmExpired(fn func(ownerID int64, messageRef string)) {
	s.hookMu.Lock()
	s.onConfirmExpired = fn
	s.hookMu.Unlock()
}

func (s *Service) notify(v View) {
	s.hookMu.RLock()
	fn := s.onResolved
	s.hookMu.RUnlock()
	if fn != nil {
		fn(v)
	}
}

func activeTaskKey(userID int64) string  { return "active:" + strconv.FormatInt(userID, 10) }
func pendingTaskKey(userID int64) string { return "pending:" + strconv.FormatInt(userID, 10) }

// Initiate opens a game awaiting confirmation and returns its token. No
// chips move until Confirm.
func (s *Service) Initiate(ctx context.Context, userID, bet int64) (string, error) {
	if bet <= 0 {
		return "", ErrInvalidBet
	}

	var token string
	err := s.guard.Do(ctx, userID, func() error {
		active, err := s.registry.HasActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if active {
			return ErrSessionExists
		}

		balance, err := s.ledger.Balance(ctx, userID)
		if err != nil {
			return err
		}
		if bet > balance {
			return fmt.Errorf("bet %d with balance %d: %w", bet, balance, ErrInsufficientFunds)
		}

		p := &sessions.PendingSession{
			OwnerID:   userID,
			Token:     sessions.NewNonce(),
			Bet:       bet,
			CreatedAt: s.clock.Now(),
		}
		if err := s.registry.CreatePending(ctx, p); err != nil {
			return err
		}
		s.scheduler.Schedule(pendingTaskKey(userID), p.Token, s.cfg.ConfirmTimeout, func(token string) {
			s.expirePending(userID, token)
		})
		token = p.Token
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("game initiated", "user", userID, "bet", bet)
	return token, nil
}

// Cancel discards a pending game. No chips move.
func (s *Service) Cancel(ctx context.Context, token string) error {
	owner, err := s.registry.OwnerOfToken(ctx, token)
	if err != nil {
		return err
	}
	return s.guard.Do(ctx, owner, func() error {
		p, err := s.registry.PendingByToken(ctx, token)
		if err != nil {
			return err
		}
		s.scheduler.Cancel(pendingTaskKey(owner))
		return s.registry.DestroyPending(ctx, p)
	})
}

// Confirm withdraws the bet of a pending game, deals it and registers the
// active session. A natural on either side settles at once.
func (s *Service) Confirm(ctx context.Context, token string) (View, error) {
	owner, err := s.registry.OwnerOfToken(ctx, token)
	if err != nil {
		return View{}, err
	}

	var view View
	err = s.guard.Do(ctx, owner, func() error {
		p, err := s.registry.PendingByToken(ctx, token)
		if err != nil {
			return err
		}
		active, err := s.registry.HasActiveSession(ctx, owner)
		if err != nil {
			return err
		}
		if active {
			return ErrSessionExists
		}

		if err := s.registry.DestroyPending(ctx, p); err != nil {
			return err
		}
		s.scheduler.Cancel(pendingTaskKey(owner))

		if err := s.ledger.Reserve(ctx, owner, p.Bet); err != nil {
			return err
		}

		state, err := s.deal(p.Bet)
		if err != nil {
			s.refund(ctx, owner, p.Bet, "deal failed")
			return err
		}

		now := s.clock.Now()
		sess := &sessions.Session{
			OwnerID:    owner,
			MessageRef: p.MessageRef,
			Nonce:      sessions.NewNonce(),
			State:      state,
			Staked:     p.Bet,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.registry.CreateActive(ctx, sess); err != nil {
			s.refund(ctx, owner, p.Bet, "register failed")
			return err
		}
		s.logger.Info("game started", "user", owner, "bet", p.Bet, "nonce", sess.Nonce)

		if state.Terminal() {
			view, err = s.finish(ctx, sess)
			return err
		}
		s.armExpiry(sess, s.cfg.Timeout)
		view = viewOf(sess)
		return nil
	})
	return view, err
}

func (s *Service) deal(bet int64) (*blackjack.GameState, error) {
	shoe, err := s.cfg.NewShoe(s.cfg.Decks)
	if err != nil {
		return nil, err
	}
	state := blackjack.NewGame(bet, shoe)
	if err := state.Deal(); err != nil {
		s.logger.Error("initial deal failed", "err", err, "cards", len(shoe))
		return nil, err
	}
	return state, nil
}

// Act applies the action encoded in token to the session it names
func (s *Service) Act(ctx context.Context, token string) (View, error) {
	nonce, action, err := ParseToken(token)
	if err != nil {
		return View{}, err
	}
	owner, err := s.registry.OwnerOfNonce(ctx, nonce)
	if err != nil {
		return View{}, err
	}

	var view View
	err = s.guard.Do(ctx, owner, func() error {
		sess, err := s.registry.ActiveByNonce(ctx, nonce)
		if err != nil {
			return err
		}
		view, err = s.apply(ctx, sess, action)
		return err
	})
	return view, err
}

// apply runs one action under the owner's lock
func (s *Service) apply(ctx context.Context, sess *sessions.Session, action blackjack.Action) (View, error) {
	stake, err := blackjack.StakeFor(sess.State, action)
	if err != nil {
		return viewOf(sess), err
	}
	if stake > 0 {
		if err := s.ledger.Reserve(ctx, sess.OwnerID, stake); err != nil {
			return viewOf(sess), fmt.Errorf("%s: %w", action, err)
		}
	}

	if err := sess.State.Apply(action); err != nil {
		if errors.Is(err, ErrShoeExhausted) {
			return s.abort(ctx, sess, stake, err)
		}
		s.refund(ctx, sess.OwnerID, stake, "action failed")
		return viewOf(sess), err
	}
	sess.Staked += stake
	sess.UpdatedAt = s.clock.Now()

	if sess.State.Phase == blackjack.PhaseDealerTurn {
		if err := sess.State.PlayDealer(); err != nil {
			return s.abort(ctx, sess, 0, err)
		}
	}
	if sess.State.Terminal() {
		if err := s.complete(ctx, sess); err != nil {
			// stored state predates this action
			s.refund(ctx, sess.OwnerID, stake, "save failed")
			return View{}, err
		}
		return s.payout(ctx, sess)
	}

	if err := s.registry.SaveActive(ctx, sess); err != nil {
		// stored state predates this action
		s.refund(ctx, sess.OwnerID, stake, "save failed")
		return View{}, err
	}
	s.armExpiry(sess, s.cfg.Timeout)
	return viewOf(sess), nil
}

// finish completes a terminal game and pays it out. When the completed
// game cannot be stored nothing is credited and expiry retries later.
func (s *Service) finish(ctx context.Context, sess *sessions.Session) (View, error) {
	if err := s.complete(ctx, sess); err != nil {
		s.logger.Error("failed to store completed game, will retry",
			"user", sess.OwnerID, "nonce", sess.Nonce, "err", err)
		s.armExpiry(sess, s.cfg.RetryDelay)
		return viewOf(sess), err
	}
	return s.payout(ctx, sess)
}

// complete moves a game in settlement to complete and stores it. A stored
// complete game is one whose payout is owed but not yet confirmed.
func (s *Service) complete(ctx context.Context, sess *sessions.Session) error {
	state := sess.State
	if state.Phase == blackjack.PhaseComplete {
		return nil
	}
	if err := state.Finish(blackjack.Settle(state)); err != nil {
		return err
	}
	sess.UpdatedAt = s.clock.Now()
	if err := s.registry.SaveActive(ctx, sess); err != nil {
		return fmt.Errorf("store completed game: %w", err)
	}
	return nil
}

// payout credits a stored complete game and destroys its session. A
// failed credit keeps the session for a retry on expiry. A session that
// survives a failed destroy is stored as paid and the retry only removes it.
func (s *Service) payout(ctx context.Context, sess *sessions.Session) (View, error) {
	result := blackjack.Settle(sess.State)
	if !sess.Paid {
		if result.Total > 0 {
			if err := s.ledger.Credit(ctx, sess.OwnerID, result.Total); err != nil {
				s.logger.Error("payout failed, will retry",
					"user", sess.OwnerID, "nonce", sess.Nonce, "payout", result.Total, "err", err)
				s.armExpiry(sess, s.cfg.RetryDelay)
				return viewOf(sess), fmt.Errorf("credit payout: %w", err)
			}
		}
		sess.Paid = true

		if recorder, ok := s.ledger.(ledger.StatsRecorder); ok {
			if err := recorder.RecordGame(ctx, sess.OwnerID, result.Wagered, result.Total); err != nil {
				s.logger.Warn("failed to record game stats", "user", sess.OwnerID, "err", err)
			}
		}
		s.logger.Info("game settled",
			"user", sess.OwnerID, "wagered", result.Wagered, "payout", result.Total, "timed_out", sess.TimedOut)
	}

	if err := s.destroy(ctx, sess); err != nil {
		if live, _ := s.registry.HasActiveSession(ctx, sess.OwnerID); live {
			if saveErr := s.registry.SaveActive(ctx, sess); saveErr != nil {
				s.logger.Error("failed to mark game paid", "user", sess.OwnerID, "err", saveErr)
			}
			s.armExpiry(sess, s.cfg.RetryDelay)
		}
	}

	view := viewOf(sess)
	view.Settlement = &result
	return view, nil
}

// abort ends a game that cannot continue and refunds every chip staked on
// it, including inflight chips reserved for the failing action.
func (s *Service) abort(ctx context.Context, sess *sessions.Session, inflight int64, cause error) (View, error) {
	refund := sess.Staked + inflight
	s.logger.Error("game aborted",
		"user", sess.OwnerID, "nonce", sess.Nonce, "refund", refund, "err", cause)
	s.refund(ctx, sess.OwnerID, refund, "game aborted")
	_ = s.destroy(ctx, sess)

	view := viewOf(sess)
	view.Aborted = true
	view.Legal = nil
	return view, cause
}

func (s *Service) destroy(ctx context.Context, sess *sessions.Session) error {
	s.scheduler.Cancel(activeTaskKey(sess.OwnerID))
	if err := s.registry.DestroyActive(ctx, sess); err != nil {
		s.logger.Error("failed to destroy session", "user", sess.OwnerID, "nonce", sess.Nonce, "err", err)
		return err
	}
	return nil
}

func (s *Service) refund(ctx context.Context, userID, amount int64, reason string) {
	if amount <= 0 {
		return
	}
	if err := s.ledger.Credit(ctx, userID, amount); err != nil {
		s.logger.Error("refund failed", "user", userID, "amount", amount, "reason", reason, "err", err)
		return
	}
	s.logger.Debug("refunded stake", "user", userID, "amount", amount, "reason", reason)
}

func (s *Service) armExpiry(sess *sessions.Session, d time.Duration) {
	owner := sess.OwnerID
	s.scheduler.Schedule(activeTaskKey(owner), sess.Nonce, d, func(nonce string) {
		s.Expire(owner, nonce)
	})
}

// Expire resolves an idle game: insurance is declined, every open hand
// stands and the game settles as timed out. It does nothing when nonce no
// longer names the user's game. When the player's lock stays busy past the
// expiry budget it tries again after the retry delay, unless something
// else has armed the user's expiry meanwhile.
func (s *Service) Expire(userID int64, nonce string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ExpiryBudget)
	defer cancel()

	unlock, err := s.guard.Lock(ctx, userID)
	if err != nil {
		rearmed := s.scheduler.ScheduleIfIdle(activeTaskKey(userID), nonce, s.cfg.RetryDelay, func(nonce string) {
			s.Expire(userID, nonce)
		})
		s.logger.Warn("expiry could not lock game", "user", userID, "nonce", nonce, "retry", rearmed, "err", err)
		return
	}
	defer unlock()

	sess, err := s.registry.ActiveByNonce(ctx, nonce)
	if err != nil || sess.OwnerID != userID {
		return
	}
	view, err := s.autoStand(ctx, sess)
	if view.Finished() {
		s.notify(view)
	}
	if err != nil {
		s.logger.Warn("expiry did not complete", "user", userID, "nonce", nonce, "err", err)
	}
}

func (s *Service) autoStand(ctx context.Context, sess *sessions.Session) (View, error) {
	state := sess.State
	if !state.Terminal() {
		sess.TimedOut = true
	}

	if state.Phase == blackjack.PhaseInsuranceOffer {
		if err := state.Apply(blackjack.ActionSkipInsurance); err != nil {
			return viewOf(sess), err
		}
	}
	for state.Phase == blackjack.PhasePlayerTurn {
		if err := state.Apply(blackjack.ActionStand); err != nil {
			return viewOf(sess), err
		}
	}
	if state.Phase == blackjack.PhaseDealerTurn {
		if err := state.PlayDealer(); err != nil {
			return s.abort(ctx, sess, 0, err)
		}
	}
	s.logger.Info("game timed out", "user", sess.OwnerID, "nonce", sess.Nonce)
	return s.finish(ctx, sess)
}

func (s *Service) expirePending(userID int64, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ExpiryBudget)
	defer cancel()

	var expired *sessions.PendingSession
	_ = s.guard.Do(ctx, userID, func() error {
		p, err := s.registry.PendingByToken(ctx, token)
		if err != nil || p.OwnerID != userID {
			return nil
		}
		if err := s.registry.DestroyPending(ctx, p); err != nil {
			s.logger.Warn("failed to drop expired confirmation", "user", userID, "err", err)
			return err
		}
		s.logger.Debug("confirmation expired", "user", userID)
		expired = p
		return nil
	})
	if expired == nil {
		return
	}

	s.hookMu.RLock()
	fn := s.onConfirmExpired
	s.hookMu.RUnlock()
	if fn != nil {
		fn(expired.OwnerID, expired.MessageRef)
	}
}

// Attach binds a message reference to a pending game (by token) or an
// active game (by nonce) so later renders can edit the same message.
func (s *Service) Attach(ctx context.Context, ref, messageRef string) error {
	if owner, err := s.registry.OwnerOfToken(ctx, ref); err == nil {
		return s.guard.Do(ctx, owner, func() error {
			p, err := s.registry.PendingByToken(ctx, ref)
			if err != nil {
				return err
			}
			p.MessageRef = messageRef
			return s.registry.SavePending(ctx, p)
		})
	} else if !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	owner, err := s.registry.OwnerOfNonce(ctx, ref)
	if err != nil {
		return err
	}
	return s.guard.Do(ctx, owner, func() error {
		sess, err := s.registry.ActiveByNonce(ctx, ref)
		if err != nil {
			return err
		}
		sess.MessageRef = messageRef
		return s.registry.SaveActive(ctx, sess)
	})
}

// OwnerOf resolves a pending token, a session nonce or an action token to
// the user it belongs to.
func (s *Service) OwnerOf(ctx context.Context, ref string) (int64, error) {
	if nonce, _, err := ParseToken(ref); err == nil {
		ref = nonce
	}
	owner, err := s.registry.OwnerOfToken(ctx, ref)
	if err == nil || !errors.Is(err, ErrSessionNotFound) {
		return owner, err
	}
	return s.registry.OwnerOfNonce(ctx, ref)
}

// Current returns the user's game in progress
func (s *Service) Current(ctx context.Context, userID int64) (View, error) {
	sess, err := s.registry.ActiveByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return viewOf(sess), nil
}

// Balance returns the user's chips
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.ledger.Balance(ctx, userID)
}

func viewOf(sess *sessions.Session) View {
	return View{
		Nonce:      sess.Nonce,
		OwnerID:    sess.OwnerID,
		MessageRef: sess.MessageRef,
		Snapshot:   sess.State.Snapshot(),
		Legal:      blackjack.LegalActions(sess.State),
		TimedOut:   sess.TimedOut,
	}
}
