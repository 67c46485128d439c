package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
)

func newTestCache(t *testing.T) *UnreadCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewUnreadCache(mr.Addr(), zap.NewNop())
	require.NoError(t, c.Ping(context.Background()))
	return c
}

func TestUnreadCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	accountID := uuid.New()

	_, ok := c.GetUnread(ctx, domain.CategoryUser, accountID)
	assert.False(t, ok, "cold cache should miss")

	c.SetUnread(ctx, domain.CategoryUser, accountID, 7)

	count, ok := c.GetUnread(ctx, domain.CategoryUser, accountID)
	require.True(t, ok)
	assert.Equal(t, 7, count)
}

func TestUnreadCacheIsolatesCategories(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	accountID := uuid.New()

	c.SetUnread(ctx, domain.CategoryUser, accountID, 3)

	_, ok := c.GetUnread(ctx, domain.CategoryDriver, accountID)
	assert.False(t, ok, "same id in another category must not share an entry")
}

func TestInvalidateSingleAccount(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	a := uuid.New()
	b := uuid.New()

	c.SetUnread(ctx, domain.CategoryUser, a, 1)
	c.SetUnread(ctx, domain.CategoryUser, b, 2)

	c.InvalidateUnread(ctx, domain.CategoryUser, &a)

	_, ok := c.GetUnread(ctx, domain.CategoryUser, a)
	assert.False(t, ok)

	count, ok := c.GetUnread(ctx, domain.CategoryUser, b)
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestInvalidateCategoryBumpsEpoch(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	a := uuid.New()
	b := uuid.New()

	c.SetUnread(ctx, domain.CategoryUser, a, 1)
	c.SetUnread(ctx, domain.CategoryUser, b, 2)
	c.SetUnread(ctx, domain.CategoryDriver, a, 9)

	// Broadcast invalidation drops the whole category at once.
	c.InvalidateUnread(ctx, domain.CategoryUser, nil)

	_, ok := c.GetUnread(ctx, domain.CategoryUser, a)
	assert.False(t, ok)
	_, ok = c.GetUnread(ctx, domain.CategoryUser, b)
	assert.False(t, ok)

	// Other categories are untouched.
	count, ok := c.GetUnread(ctx, domain.CategoryDriver, a)
	require.True(t, ok)
	assert.Equal(t, 9, count)

	// Writes after the bump land in the new epoch and are readable again.
	c.SetUnread(ctx, domain.CategoryUser, a, 5)
	count, ok = c.GetUnread(ctx, domain.CategoryUser, a)
	require.True(t, ok)
	assert.Equal(t, 5, count)
}
