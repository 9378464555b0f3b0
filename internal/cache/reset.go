package cache

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetCodeTTL bounds how long a password-reset code stays valid.
const resetCodeTTL = 15 * time.Minute

// ErrResetUnavailable is returned when no Redis backend is configured, since
// reset codes have nowhere safe to live.
var ErrResetUnavailable = errors.New("password reset is unavailable")

// ResetCodes stores and verifies short-lived password-reset codes keyed by email.
type ResetCodes struct {
	rdb *redis.Client
}

// NewResetCodes returns a ResetCodes backed by the given Redis client.
func NewResetCodes(rdb *redis.Client) *ResetCodes {
	return &ResetCodes{rdb: rdb}
}

// Generate creates a fresh 4-digit code for the email, stores it with a TTL
// and returns it. A new request overwrites any previous code for the address.
func (r *ResetCodes) Generate(ctx context.Context, email string) (string, error) {
	if r.rdb == nil {
		return "", ErrResetUnavailable
	}

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%04d", n.Int64())

	if err := r.rdb.Set(ctx, resetKey(email), code, resetCodeTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the code for the email and consumes it on success.
func (r *ResetCodes) Verify(ctx context.Context, email, code string) (bool, error) {
	if r.rdb == nil {
		return false, ErrResetUnavailable
	}

	stored, err := r.rdb.Get(ctx, resetKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}

	// Single-use: delete on success.
	r.rdb.Del(ctx, resetKey(email))
	return true, nil
}

func resetKey(email string) string {
	return "reset:" + email
}
