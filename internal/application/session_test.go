package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

func TestSessionStoreLifecycle(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewSessionStore(rdb, time.Hour)
	ctx := context.Background()
	u := &entity.User{ID: 7, Email: "a@example.com", Username: "a"}

	require.NoError(t, store.Create(ctx, u, "s1", SessionMeta{IP: "1.2.3.4", UserAgent: "test"}))
	require.NoError(t, store.Create(ctx, u, "s2", SessionMeta{}))

	ok, err := store.Exists(ctx, 7, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.2.3.4", mr.HGet(helpers.KeySession(7, "s1"), "ip"))
	assert.Equal(t, time.Hour, mr.TTL(helpers.KeySession(7, "s1")))

	require.NoError(t, store.Rotate(ctx, 7, "s1", "s3"))
	ok, _ = store.Exists(ctx, 7, "s1")
	assert.False(t, ok)
	ok, _ = store.Exists(ctx, 7, "s3")
	assert.True(t, ok)
	assert.Equal(t, "s3", mr.HGet(helpers.KeySession(7, "s3"), "sid"))

	members, err := mr.Members(helpers.KeySessionIndex(7))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s2", "s3"}, members)

	require.NoError(t, store.Revoke(ctx, 7, "s2"))
	ok, _ = store.Exists(ctx, 7, "s2")
	assert.False(t, ok)

	n, err := store.RevokeAll(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists(helpers.KeySessionIndex(7)))
}

func TestSessionStoreRotateMissing(t *testing.T) {
	_, rdb := newRedis(t)
	store := NewSessionStore(rdb, 0)
	assert.Equal(t, 24*time.Hour, store.TTL)
	assert.ErrorIs(t, store.Rotate(context.Background(), 1, "gone", "new"), ErrInvalidToken)
}

func TestSessionStoreWithoutRedis(t *testing.T) {
	var store *SessionStore
	_, err := store.Exists(context.Background(), 1, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}
