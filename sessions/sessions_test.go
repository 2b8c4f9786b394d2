package sessions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrc-blackjack/games/blackjack"
)

func newSession(userID int64) *Session {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		OwnerID:   userID,
		Nonce:     NewNonce(),
		State:     blackjack.NewGame(100, nil),
		Staked:    100,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRegistryActive(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())

	sess := newSession(1)
	require.NoError(t, r.CreateActive(ctx, sess))

	has, err := r.HasActiveSession(ctx, 1)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := r.ActiveByNonce(ctx, sess.Nonce)
	require.NoError(t, err)
	assert.Equal(t, sess.Nonce, got.Nonce)
	assert.Equal(t, int64(100), got.State.MainBet)

	t.Run("second active session rejected", func(t *testing.T) {
		err := r.CreateActive(ctx, newSession(1))
		assert.ErrorIs(t, err, ErrSessionExists)
	})

	t.Run("save round trips state", func(t *testing.T) {
		got.MessageRef = "chan/msg"
		got.State.Phase = blackjack.PhasePlayerTurn
		require.NoError(t, r.SaveActive(ctx, got))

		again, err := r.ActiveByUser(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "chan/msg", again.MessageRef)
		assert.Equal(t, blackjack.PhasePlayerTurn, again.State.Phase)
	})

	t.Run("destroy removes record and index", func(t *testing.T) {
		require.NoError(t, r.DestroyActive(ctx, got))
		_, err := r.ActiveByUser(ctx, 1)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = r.ActiveByNonce(ctx, sess.Nonce)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		has, err := r.HasActiveSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestRegistryStaleNonce(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())

	first := newSession(7)
	require.NoError(t, r.CreateActive(ctx, first))
	require.NoError(t, r.DestroyActive(ctx, first))

	second := newSession(7)
	require.NoError(t, r.CreateActive(ctx, second))

	_, err := r.ActiveByNonce(ctx, first.Nonce)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// An index left behind for an old nonce must not resolve to the new game
	require.NoError(t, r.store.Put(ctx, nonceKey(first.Nonce), []byte("7")))
	_, err = r.ActiveByNonce(ctx, first.Nonce)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.CreateActive(ctx, newSession(3)); err == nil {
				created.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrSessionExists)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}

func TestRegistryPending(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore())

	p := &PendingSession{OwnerID: 5, Token: NewNonce(), Bet: 250, CreatedAt: time.Now()}
	require.NoError(t, r.CreatePending(ctx, p))

	err := r.CreatePending(ctx, &PendingSession{OwnerID: 5, Token: NewNonce(), Bet: 10})
	assert.ErrorIs(t, err, ErrPendingExists)

	got, err := r.PendingByToken(ctx, p.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Bet)

	_, err = r.PendingByToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Pending and active games are tracked independently
	require.NoError(t, r.CreateActive(ctx, newSession(5)))

	require.NoError(t, r.DestroyPending(ctx, got))
	_, err = r.PendingByToken(ctx, p.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.PendingByUser(ctx, 5)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	value := []byte("abc")
	ok, err := s.InsertIfAbsent(ctx, "k", value)
	require.NoError(t, err)
	assert.True(t, ok)
	value[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	ok, err = s.InsertIfAbsent(ctx, "k", []byte("new"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))
	assert.Zero(t, s.Len())
}

func TestGuardSerializesPerUser(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(ctx, 1, func() error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, g.Len())
}

func TestGuardIndependentUsers(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	unlock, err := g.Lock(ctx, 1)
	require.NoError(t, err)
	defer unlock()

	done := make(chan struct{})
	go func() {
		_ = g.Do(ctx, 2, func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user 2 blocked behind user 1")
	}
}

func TestGuardContextCancel(t *testing.T) {
	g := NewGuard()

	unlock, err := g.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Zero(t, g.Len())
}

func TestSchedulerFires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	s := NewScheduler(mClock)

	fired := make(chan string, 1)
	s.Schedule("active:1", "n1", time.Minute, func(nonce string) { fired <- nonce })
	assert.Equal(t, 1, s.Pending())

	mClock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, "n1", <-fired)
	assert.Zero(t, s.Pending())
}

func TestSchedulerRescheduleReplaces(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	s := NewScheduler(mClock)

	fired := make(chan string, 2)
	record := func(nonce string) { fired <- nonce }

	s.Schedule("active:1", "old", time.Minute, record)
	s.Schedule("active:1", "new", 2*time.Minute, record)

	mClock.Advance(time.Minute).MustWait(ctx)
	assert.Empty(t, fired)

	mClock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, "new", <-fired)
	assert.Empty(t, fired)
}

func TestSchedulerStaleGenerationDropped(t *testing.T) {
	s := NewScheduler(quartz.NewMock(t))
	noop := func(string) {}

	s.Schedule("active:1", "a", time.Minute, noop)
	stale := s.tasks["active:1"].gen
	s.Schedule("active:1", "b", time.Minute, noop)

	assert.False(t, s.claim("active:1", stale))
	assert.True(t, s.claim("active:1", s.gen))
	assert.False(t, s.claim("active:1", s.gen))
}

func TestSchedulerCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	s := NewScheduler(mClock)

	var fired atomic.Bool
	s.Schedule("pending:1", "t", time.Minute, func(string) { fired.Store(true) })
	s.Cancel("pending:1")
	assert.Zero(t, s.Pending())

	mClock.Advance(time.Minute).MustWait(ctx)
	assert.False(t, fired.Load())
}

func TestSchedulerScheduleIfIdle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	s := NewScheduler(mClock)

	fired := make(chan string, 2)
	record := func(nonce string) { fired <- nonce }

	s.Schedule("active:1", "fresh", 2*time.Minute, record)
	assert.False(t, s.ScheduleIfIdle("active:1", "retry", time.Minute, record))

	mClock.Advance(2 * time.Minute).MustWait(ctx)
	assert.Equal(t, "fresh", <-fired)

	assert.True(t, s.ScheduleIfIdle("active:1", "retry", time.Minute, record))
	mClock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, "retry", <-fired)
	assert.Empty(t, fired)
}

// failingStore fails Delete for keys listed in failDelete, once each
type failingStore struct {
	*MemoryStore
	mu         sync.Mutex
	failDelete map[string]bool
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failDelete[key]
	delete(f.failDelete, key)
	f.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.Delete(ctx, key)
}

func TestRegistryDestroyLeavesNoLiveNonce(t *testing.T) {
	ctx := context.Background()
	sess := newSession(9)
	store := &failingStore{
		MemoryStore: NewMemoryStore(),
		failDelete:  map[string]bool{nonceKey(sess.Nonce): true},
	}
	r := NewRegistry(store)
	require.NoError(t, r.CreateActive(ctx, sess))

	require.Error(t, r.DestroyActive(ctx, sess))
	_, err := r.ActiveByNonce(ctx, sess.Nonce)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	has, err := r.HasActiveSession(ctx, 9)
	require.NoError(t, err)
	assert.False(t, has)
}
