package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/domain"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestIssueResolve(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user := domain.User{ID: 7, Email: "a@b.c", Role: "customer"}
	token, err := store.Issue(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, *resolved)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, domain.User{ID: 1})
	require.NoError(t, err)
	second, err := store.Issue(ctx, domain.User{ID: 1})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestResolve_UnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestResolve_ExpiredToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, domain.User{ID: 7})
	require.NoError(t, err)

	mr.FastForward(24*time.Hour + time.Second)

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, domain.User{ID: 7})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// revoking again is not an error
	assert.NoError(t, store.Revoke(ctx, token))
}
