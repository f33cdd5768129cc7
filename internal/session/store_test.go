package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/session"
)

func newStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.Config{}
	cfg.Server.SessionTTL = time.Hour
	return session.NewStore(client, cfg), mr
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, session.Data{UserID: 42, Email: "alice@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	data, err := store.Get(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, int64(42), data.UserID)
	assert.Equal(t, "alice@x.com", data.Email)
	assert.Nil(t, data.OverrideExpiry())
}

func TestGetUnknownToken(t *testing.T) {
	store, _ := newStore(t)

	data, err := store.Get(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, session.Data{Email: "alice@x.com"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	data, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, session.Data{Email: "alice@x.com"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, token))

	data, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestOverride(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	exp, err := store.Override(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Nil(t, exp)

	until := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, store.SetOverride(ctx, "alice@x.com", until))

	exp, err = store.Override(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.Equal(t, until, *exp)

	// the key dies with the override window
	mr.FastForward(time.Hour)
	exp, err = store.Override(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Nil(t, exp)
}

func TestOverrideExpiryRoundTrip(t *testing.T) {
	until := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data := session.Data{Email: "a@x.com", TempUnlimitedUntil: until.UnixMilli()}

	got := data.OverrideExpiry()
	require.NotNil(t, got)
	assert.Equal(t, until, *got)
}
