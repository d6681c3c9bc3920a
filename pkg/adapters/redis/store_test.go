package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/replan/pkg/adapters/redis"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunStoreContract(t, redis.NewFromClient(client))
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunLockerContract(t, redis.NewLocker(client, "replan:"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tests.NewRecord("run-ttl", time.Now())))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "run-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "run-ttl")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "expired runs are pruned from the index")
	assert.False(t, mr.Exists(redis.DefaultPrefix+"index"), "index is empty after pruning")
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tests.NewRecord("my-run", time.Now())))

	assert.True(t, mr.Exists("custom:app:my-run"), "record key uses the custom prefix")
	assert.True(t, mr.Exists("custom:app:index"), "index key uses the custom prefix")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-run"}, ids)
}

func TestRedisLocker_ExpiresWithTTL(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "replan:")
	ctx := context.Background()

	_, err := locker.Lock(ctx, "run-1", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("replan:lock:run-1"))

	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(ctx, "run-1", time.Second)
	require.NoError(t, err, "an abandoned lock expires")
	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("replan:lock:run-1"))
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := redis.New(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
