package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSignupSession_RoundTrip(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	token, err := StoreSignupSession(ctx, rdb, SignupSession{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := TakeSignupSession(ctx, rdb, token)
	require.NoError(t, err)
	assert.Equal(t, "Ada", session.FirstName)
	assert.Equal(t, "Lovelace", session.LastName)
	assert.Equal(t, "ada", session.Username)
}

func TestSignupSession_SingleUse(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	token, err := StoreSignupSession(ctx, rdb, SignupSession{Username: "ada"})
	require.NoError(t, err)

	_, err = TakeSignupSession(ctx, rdb, token)
	require.NoError(t, err)

	_, err = TakeSignupSession(ctx, rdb, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSignupSession_UnknownToken(t *testing.T) {
	rdb := newTestClient(t)

	_, err := TakeSignupSession(context.Background(), rdb, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWSTicket_SingleUse(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	ticket, err := MintWSTicket(ctx, rdb, 42)
	require.NoError(t, err)

	userID, err := RedeemWSTicket(ctx, rdb, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	_, err = RedeemWSTicket(ctx, rdb, ticket)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWSTicket_Unknown(t *testing.T) {
	rdb := newTestClient(t)

	_, err := RedeemWSTicket(context.Background(), rdb, "bogus")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
