package utils

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password. A malformed
// hash yields false.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// PasswordHasher runs bcrypt on a bounded number of goroutines so a burst of
// logins cannot occupy every CPU at once. Callers wait for a slot or give up
// when their context ends.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher creates a hasher with the given bcrypt cost allowing at
// most workers concurrent hash or compare operations.
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if workers < 1 {
		workers = 1
	}
	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash produces a salted digest of plain. Two calls with the same input
// return different digests.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash worker: %w", err)
	}
	defer h.sem.Release(1)
	return HashPassword(plain, h.cost)
}

// Verify reports whether plain matches digest. It never fails: a malformed
// digest or a cancelled context both report false.
func (h *PasswordHasher) Verify(ctx context.Context, plain, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return VerifyPassword(digest, plain)
}
