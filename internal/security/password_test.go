package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, h.Verify(ctx, "secret1", hash))
	assert.False(t, h.Verify(ctx, "secret2", hash))
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	a, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedHashFailsClosed(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)

	for _, bad := range []string{"", "not-a-hash", "$2a$10$short", strings.Repeat("x", 60)} {
		assert.False(t, h.Verify(context.Background(), "secret1", bad), "hash %q", bad)
	}
}

func TestHasher_CostOutOfRangeFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(1, 1).Cost())
	assert.Equal(t, DefaultCost, NewHasher(99, 1).Cost())
	assert.Equal(t, 12, NewHasher(12, 1).Cost())
}

func TestHasher_CancelledContext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)

	hash, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// hold the only slot so Acquire has to wait on the cancelled context
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	_, err = h.Hash(ctx, "secret1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.Verify(ctx, "secret1", hash))
}
