package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/notes-backend/internal/config"
	"github.com/iliyamo/notes-backend/internal/model"
)

// countingDirectory records FindByID calls that reach the backing store.
type countingDirectory struct {
	*MemoryUserRepo
	findByID int
}

func (d *countingDirectory) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	d.findByID++
	return d.MemoryUserRepo.FindByID(ctx, id)
}

// gatedDirectory parks the first FindByID after it has read the store until
// release is closed.
type gatedDirectory struct {
	*MemoryUserRepo
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDirectory) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := d.MemoryUserRepo.FindByID(ctx, id)
	d.once.Do(func() {
		close(d.loaded)
		<-d.release
	})
	return u, err
}

func newCachedOver(t *testing.T, inner UserDirectory) (UserDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cfg := config.UserCacheConfig{Enabled: true, TTL: time.Minute, Prefix: "user"}
	return NewCachedUserDirectory(inner, rdb, cfg, nil), mr
}

func newCached(t *testing.T) (UserDirectory, *countingDirectory, *miniredis.Miniredis) {
	t.Helper()
	inner := &countingDirectory{MemoryUserRepo: NewMemoryUserRepo()}
	dir, mr := newCachedOver(t, inner)
	return dir, inner, mr
}

func TestCachedUserDirectory_ReadThrough(t *testing.T) {
	ctx := context.Background()
	dir, inner, mr := newCached(t)
	u := &model.User{ID: uuid.New(), Username: "alice", Email: "a@x.io", Active: true, PasswordHash: "secret-hash", CreatedAt: day, UpdatedAt: day}
	require.NoError(t, dir.Insert(ctx, u))

	for i := 0; i < 3; i++ {
		got, err := dir.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "secret-hash", got.PasswordHash)
		require.Equal(t, day, got.CreatedAt.UTC())
	}
	require.Equal(t, 1, inner.findByID)
	require.True(t, mr.Exists("user:id:"+u.ID.String()))
	ttl := mr.TTL("user:id:" + u.ID.String())
	require.Equal(t, time.Minute, ttl)
}

func TestCachedUserDirectory_UpdateEvicts(t *testing.T) {
	ctx := context.Background()
	dir, inner, mr := newCached(t)
	u := &model.User{ID: uuid.New(), Username: "alice", Email: "a@x.io", Active: true}
	require.NoError(t, dir.Insert(ctx, u))

	_, err := dir.FindByID(ctx, u.ID)
	require.NoError(t, err)

	u.Active = false
	require.NoError(t, dir.Update(ctx, u))
	require.False(t, mr.Exists("user:id:"+u.ID.String()))

	got, err := dir.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, 2, inner.findByID)
}

func TestCachedUserDirectory_UpdateDuringFillIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	inner := &gatedDirectory{
		MemoryUserRepo: NewMemoryUserRepo(),
		loaded:         make(chan struct{}),
		release:        make(chan struct{}),
	}
	dir, mr := newCachedOver(t, inner)
	u := &model.User{ID: uuid.New(), Username: "alice", Email: "a@x.io", Active: true}
	require.NoError(t, dir.Insert(ctx, u))

	type result struct {
		u   *model.User
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, err := dir.FindByID(ctx, u.ID)
		done <- result{got, err}
	}()
	<-inner.loaded

	disabled := *u
	disabled.Active = false
	require.NoError(t, dir.Update(ctx, &disabled))
	close(inner.release)

	r := <-done
	require.NoError(t, r.err)
	require.True(t, r.u.Active, "the in-flight read saw the old record")

	key := "user:id:" + u.ID.String()
	if mr.Exists(key) {
		raw, err := mr.Get(key)
		require.NoError(t, err)
		var cu cachedUser
		require.NoError(t, json.Unmarshal([]byte(raw), &cu))
		require.False(t, cu.Active)
	}

	got, err := dir.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
}

func TestCachedUserDirectory_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	dir, inner, mr := newCached(t)
	u := &model.User{ID: uuid.New(), Username: "alice", Email: "a@x.io"}
	require.NoError(t, dir.Insert(ctx, u))

	mr.SetError("LOADING server is starting")
	got, err := dir.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, 1, inner.findByID)
}

func TestCachedUserDirectory_MissIsNotCached(t *testing.T) {
	dir, _, mr := newCached(t)
	_, err := dir.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Empty(t, mr.Keys())
}

func TestNewCachedUserDirectory_Disabled(t *testing.T) {
	inner := NewMemoryUserRepo()
	dir := NewCachedUserDirectory(inner, nil, config.UserCacheConfig{Enabled: true}, nil)
	require.Same(t, inner, dir)
}
