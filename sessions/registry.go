// Package sessions tracks live and pending blackjack games per user: the
// registry over a key-value store, the per-user guard and the inactivity
// expiry scheduler.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"hrc-blackjack/games/blackjack"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("user already has an active game")
	ErrPendingExists   = errors.New("user already has a game awaiting confirmation")
)

// Session is a funded game in progress
type Session struct {
	OwnerID    int64                `json:"owner_id"`
	MessageRef string               `json:"message_ref,omitempty"`
	Nonce      string               `json:"nonce"`
	State      *blackjack.GameState `json:"state"`
	// Staked is every chip withdrawn for this game so far
	Staked    int64     `json:"staked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TimedOut  bool      `json:"timed_out"`
	// Paid is set once the payout of a complete game has been credited
	Paid bool `json:"paid,omitempty"`
}

// PendingSession is a game that is waiting for the player to confirm the
// bet. No chips have moved yet.
type PendingSession struct {
	OwnerID    int64     `json:"owner_id"`
	Token      string    `json:"token"`
	Bet        int64     `json:"bet"`
	MessageRef string    `json:"message_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewNonce returns a fresh identifier for a session or pending token
func NewNonce() string {
	return uuid.NewString()
}

func activeKey(userID int64) string  { return "bj:active:" + strconv.FormatInt(userID, 10) }
func pendingKey(userID int64) string { return "bj:pending:" + strconv.FormatInt(userID, 10) }
func nonceKey(nonce string) string   { return "bj:nonce:" + nonce }
func tokenKey(token string) string   { return "bj:ptoken:" + token }

// Registry stores sessions by user with secondary indexes for nonces and
// pending tokens.
type Registry struct {
	store Store
}

// NewRegistry creates a registry over store
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) load(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func ownerValue(userID int64) []byte {
	return []byte(strconv.FormatInt(userID, 10))
}

func (r *Registry) lookupUser(ctx context.Context, key string) (int64, error) {
	data, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSessionNotFound
	}
	userID, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt index %s: %w", key, err)
	}
	return userID, nil
}

// CreateActive registers sess as the owner's active game. It fails with
// ErrSessionExists when the owner already has one.
func (r *Registry) CreateActive(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	ok, err := r.store.InsertIfAbsent(ctx, activeKey(sess.OwnerID), data)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}
	if err := r.store.Put(ctx, nonceKey(sess.Nonce), ownerValue(sess.OwnerID)); err != nil {
		_ = r.store.Delete(ctx, activeKey(sess.OwnerID))
		return err
	}
	return nil
}

// SaveActive overwrites the owner's active session and rewrites its nonce
// index, so both keys share one expiry on stores with a TTL.
func (r *Registry) SaveActive(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.store.Put(ctx, activeKey(sess.OwnerID), data); err != nil {
		return err
	}
	return r.store.Put(ctx, nonceKey(sess.Nonce), ownerValue(sess.OwnerID))
}

// ActiveByUser returns the user's active session
func (r *Registry) ActiveByUser(ctx context.Context, userID int64) (*Session, error) {
	var sess Session
	ok, err := r.load(ctx, activeKey(userID), &sess)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// OwnerOfNonce resolves a nonce to its owner without loading the session
func (r *Registry) OwnerOfNonce(ctx context.Context, nonce string) (int64, error) {
	return r.lookupUser(ctx, nonceKey(nonce))
}

// ActiveByNonce returns the session carrying nonce. A nonce that belonged
// to a finished game resolves to ErrSessionNotFound even when its owner has
// started a new one.
func (r *Registry) ActiveByNonce(ctx context.Context, nonce string) (*Session, error) {
	userID, err := r.OwnerOfNonce(ctx, nonce)
	if err != nil {
		return nil, err
	}
	sess, err := r.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Nonce != nonce {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// HasActiveSession reports whether the user has a game in progress
func (r *Registry) HasActiveSession(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := r.store.Get(ctx, activeKey(userID))
	return ok, err
}

// DestroyActive removes the session, then its nonce index. A nonce left
// behind by a failed second delete no longer resolves to a session.
func (r *Registry) DestroyActive(ctx context.Context, sess *Session) error {
	if err := r.store.Delete(ctx, activeKey(sess.OwnerID)); err != nil {
		return err
	}
	return r.store.Delete(ctx, nonceKey(sess.Nonce))
}

// CreatePending registers a game awaiting confirmation. It fails with
// ErrPendingExists when the owner already has one.
func (r *Registry) CreatePending(ctx context.Context, p *PendingSession) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending session: %w", err)
	}
	ok, err := r.store.InsertIfAbsent(ctx, pendingKey(p.OwnerID), data)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPendingExists
	}
	if err := r.store.Put(ctx, tokenKey(p.Token), ownerValue(p.OwnerID)); err != nil {
		_ = r.store.Delete(ctx, pendingKey(p.OwnerID))
		return err
	}
	return nil
}

// SavePending overwrites the owner's pending session
func (r *Registry) SavePending(ctx context.Context, p *PendingSession) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending session: %w", err)
	}
	if err := r.store.Put(ctx, pendingKey(p.OwnerID), data); err != nil {
		return err
	}
	return r.store.Put(ctx, tokenKey(p.Token), ownerValue(p.OwnerID))
}

// OwnerOfToken resolves a pending token to its owner
func (r *Registry) OwnerOfToken(ctx context.Context, token string) (int64, error) {
	return r.lookupUser(ctx, tokenKey(token))
}

// PendingByUser returns the user's pending session
func (r *Registry) PendingByUser(ctx context.Context, userID int64) (*PendingSession, error) {
	var p PendingSession
	ok, err := r.load(ctx, pendingKey(userID), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &p, nil
}

// PendingByToken returns the pending session carrying token
func (r *Registry) PendingByToken(ctx context.Context, token string) (*PendingSession, error) {
	userID, err := r.OwnerOfToken(ctx, token)
	if err != nil {
		return nil, err
	}
	p, err := r.PendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Token != token {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

// DestroyPending removes the pending session, then its token index
func (r *Registry) DestroyPending(ctx context.Context, p *PendingSession) error {
	if err := r.store.Delete(ctx, pendingKey(p.OwnerID)); err != nil {
		return err
	}
	return r.store.Delete(ctx, tokenKey(p.Token))
}
