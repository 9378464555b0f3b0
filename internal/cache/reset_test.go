package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResetCodes(t *testing.T) (*ResetCodes, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewResetCodes(rdb), mr
}

func TestResetCodesRoundTrip(t *testing.T) {
	codes, _ := newTestResetCodes(t)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 4)

	ok, err := codes.Verify(ctx, "reader@example.com", code)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Single-use: the same code no longer verifies.
	ok, err = codes.Verify(ctx, "reader@example.com", code)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResetCodesWrongCode(t *testing.T) {
	codes, _ := newTestResetCodes(t)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "reader@example.com")
	require.NoError(t, err)

	ok, err := codes.Verify(ctx, "reader@example.com", "no-match")
	assert.NoError(t, err)
	assert.False(t, ok)

	// A wrong attempt does not consume the stored code.
	ok, err = codes.Verify(ctx, "reader@example.com", code)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestResetCodesExpiry(t *testing.T) {
	codes, mr := newTestResetCodes(t)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "reader@example.com")
	require.NoError(t, err)

	mr.FastForward(resetCodeTTL + time.Second)

	ok, err := codes.Verify(ctx, "reader@example.com", code)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResetCodesUnavailableWithoutRedis(t *testing.T) {
	codes := NewResetCodes(nil)
	ctx := context.Background()

	_, err := codes.Generate(ctx, "reader@example.com")
	assert.ErrorIs(t, err, ErrResetUnavailable)

	_, err = codes.Verify(ctx, "reader@example.com", "0000")
	assert.ErrorIs(t, err, ErrResetUnavailable)
}
