package config

import "time"

// UserCacheConfig controls the Redis read-through cache placed in front of
// the user directory. The identity resolver looks a user up on every
// protected request, so caching by id keeps that lookup off the primary store.
// When Enabled is false or no Redis client is available the cache is skipped.
type UserCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadUserCacheConfig reads USER_CACHE_* variables, falling back to defaults.
func LoadUserCacheConfig() UserCacheConfig {
	cfg := UserCacheConfig{
		Enabled: envBool("USER_CACHE_ENABLED", true),
		TTL:     envDur("USER_CACHE_TTL", 30*time.Second),
		Prefix:  envStr("USER_CACHE_PREFIX", "user"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
