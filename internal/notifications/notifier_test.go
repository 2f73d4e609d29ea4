package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "tasks:user:42", UserChannel(42))
}

func TestNotifier_NilClientIsNoOp(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "x"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), nil))
}

func TestNotifier_PublishReachesSubscriber(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan [2]string, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		received <- [2]string{channel, payload}
	}))

	// Give the pattern subscription a moment to establish.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishUser(ctx, 7, `{"type":"task_update"}`))

	select {
	case got := <-received:
		assert.Equal(t, "tasks:user:7", got[0])
		assert.JSONEq(t, `{"type":"task_update"}`, got[1])
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive published message")
	}
}

func TestHub_StartWiringForwardsToUserClients(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()

	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishUser(ctx, 9, `{"type":"task_update","data":{"task_id":3}}`))

	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), `"task_update"`)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not forward published event to client")
	}
}
