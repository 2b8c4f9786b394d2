package sessions

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	prefix := "test:" + NewNonce() + ":"
	store := NewRedisStore(rdb, prefix, time.Minute)
	t.Cleanup(func() {
		keys, _ := rdb.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
	})

	ok, err := store.InsertIfAbsent(ctx, "k", []byte("one"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.InsertIfAbsent(ctx, "k", []byte("two"))
	require.NoError(t, err)
	assert.False(t, ok)

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("one"), value)

	ttl, err := rdb.TTL(ctx, prefix+"k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Put(ctx, "k", []byte("three")))
	value, _, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// registry indexes work unchanged over redis
	reg := NewRegistry(store)
	sess := newSession(7)
	require.NoError(t, reg.CreateActive(ctx, sess))
	got, err := reg.ActiveByNonce(ctx, sess.Nonce)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.ErrorIs(t, reg.CreateActive(ctx, newSession(7)), ErrSessionExists)
}

func TestRedisStoreSaveRefreshesIndexTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	const ttl = 10 * time.Minute
	reg := NewRegistry(NewRedisStore(rdb, "hrc:", ttl))
	sess := newSession(11)
	require.NoError(t, reg.CreateActive(ctx, sess))

	// a game kept alive by regular saves outlives the key TTL
	for i := 0; i < 4; i++ {
		mr.FastForward(ttl / 2)
		require.NoError(t, reg.SaveActive(ctx, sess))
	}
	got, err := reg.ActiveByNonce(ctx, sess.Nonce)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.OwnerID)
	assert.Equal(t, ttl, mr.TTL("hrc:"+nonceKey(sess.Nonce)))
	assert.Equal(t, ttl, mr.TTL("hrc:"+activeKey(11)))

	mr.FastForward(ttl)
	has, err := reg.HasActiveSession(ctx, 11)
	require.NoError(t, err)
	assert.False(t, has)
	_, err = reg.OwnerOfNonce(ctx, sess.Nonce)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorePendingSaveRefreshesTokenTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	const ttl = time.Minute
	reg := NewRegistry(NewRedisStore(rdb, "hrc:", ttl))
	p := &PendingSession{OwnerID: 12, Token: NewNonce(), Bet: 50}
	require.NoError(t, reg.CreatePending(ctx, p))

	mr.FastForward(40 * time.Second)
	p.MessageRef = "chan/msg"
	require.NoError(t, reg.SavePending(ctx, p))
	mr.FastForward(40 * time.Second)

	got, err := reg.PendingByToken(ctx, p.Token)
	require.NoError(t, err)
	assert.Equal(t, "chan/msg", got.MessageRef)
}
