package sessions

import (
	"context"
	"sync"
)

type userLock struct {
	ch   chan struct{}
	refs int
}

// Guard serializes work per user. Different users never wait on each other.
type Guard struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

// NewGuard creates an empty guard
func NewGuard() *Guard {
	return &Guard{locks: make(map[int64]*userLock)}
}

func (g *Guard) acquire(userID int64) *userLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		g.locks[userID] = l
	}
	l.refs++
	return l
}

func (g *Guard) release(userID int64, l *userLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, userID)
	}
}

// Lock blocks until the user's lock is held or ctx is done. The returned
// function releases it.
func (g *Guard) Lock(ctx context.Context, userID int64) (func(), error) {
	l := g.acquire(userID)
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		g.release(userID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			g.release(userID, l)
		})
	}, nil
}

// Do runs fn while holding the user's lock
func (g *Guard) Do(ctx context.Context, userID int64, fn func() error) error {
	unlock, err := g.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// Len returns the number of users with a held or awaited lock
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
