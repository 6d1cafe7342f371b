package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/config"
	"github.com/iliyamo/notes-backend/internal/model"
)

// cachedUser is the Redis payload. It carries the password hash because a
// cached record may be fed back into Update.
type cachedUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CachedUserDirectory is a read-through Redis cache for FindByID in front of
// another UserDirectory. Redis failures are logged and the call falls
// through to the wrapped directory.
type CachedUserDirectory struct {
	next   UserDirectory
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// NewCachedUserDirectory wraps next. When caching is disabled or rdb is nil
// next is returned unchanged.
func NewCachedUserDirectory(next UserDirectory, rdb *redis.Client, cfg config.UserCacheConfig, log *zap.Logger) UserDirectory {
	if !cfg.Enabled || rdb == nil {
		return next
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUserDirectory{next: next, rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix, log: log}
}

func (c *CachedUserDirectory) key(id uuid.UUID) string {
	return c.prefix + ":id:" + id.String()
}

// verKey holds a per-user counter bumped by Update. A fill only lands when
// the counter still matches the value read before the backing store was
// consulted.
func (c *CachedUserDirectory) verKey(id uuid.UUID) string {
	return c.prefix + ":ver:" + id.String()
}

var errStaleFill = errors.New("user changed during cache fill")

func (c *CachedUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := c.key(id)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jerr := json.Unmarshal(raw, &cu); jerr == nil {
			u := model.User(cu)
			return &u, nil
		}
		c.log.Warn("discarding undecodable user cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("user cache read failed", zap.String("key", key), zap.Error(err))
	}

	ver, verr := c.version(ctx, c.rdb, id)
	u, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		c.log.Warn("user cache version read failed", zap.String("key", key), zap.Error(verr))
		return u, nil
	}
	c.fill(ctx, u, ver)
	return u, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *CachedUserDirectory) version(ctx context.Context, cmd stringGetter, id uuid.UUID) (string, error) {
	v, err := cmd.Get(ctx, c.verKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// fill stores u unless Update bumped the version since ver was read.
func (c *CachedUserDirectory) fill(ctx context.Context, u *model.User, ver string) {
	buf, err := json.Marshal(cachedUser(*u))
	if err != nil {
		return
	}
	key := c.key(u.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.version(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if cur != ver {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, c.ttl)
			return nil
		})
		return err
	}, c.verKey(u.ID))
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipping stale user cache fill", zap.String("key", key))
	default:
		c.log.Warn("user cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedUserDirectory) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return c.next.FindByUsername(ctx, username)
}

func (c *CachedUserDirectory) Insert(ctx context.Context, u *model.User) error {
	return c.next.Insert(ctx, u)
}

// Update writes through, bumps the user's version so in-flight fills are
// dropped, and evicts the cached entry.
func (c *CachedUserDirectory) Update(ctx context.Context, u *model.User) error {
	if err := c.next.Update(ctx, u); err != nil {
		return err
	}
	verKey := c.verKey(u.ID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, c.ttl)
		pipe.Del(ctx, c.key(u.ID))
		return nil
	})
	if err != nil {
		c.log.Warn("user cache eviction failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return nil
}
