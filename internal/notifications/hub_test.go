package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	client, err := hub.Register(1, nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, uint(1), client.UserID)
	assert.Equal(t, 1, hub.ConnectionCount(1))

	hub.UnregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount(1))
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}

	_, err := hub.Register(1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user connection limit")

	// Other users are unaffected.
	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_BroadcastReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()

	c1, err := hub.Register(1, nil)
	require.NoError(t, err)
	c2, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, `{"type":"task_update"}`)

	select {
	case msg := <-c1.Send:
		assert.JSONEq(t, `{"type":"task_update"}`, string(msg))
	default:
		t.Fatal("expected message for user 1")
	}

	select {
	case <-c2.Send:
		t.Fatal("user 2 should not receive user 1's event")
	default:
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()

	c1, err := hub.Register(1, nil)
	require.NoError(t, err)
	c2, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.BroadcastAll("maintenance")

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, "maintenance", string(msg))
		default:
			t.Fatalf("expected broadcast for user %d", c.UserID)
		}
	}
}

func TestClient_TrySendDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < cap(client.Send); i++ {
		client.TrySend([]byte("fill"))
	}

	// Next send must not block or panic.
	client.TrySend([]byte("overflow"))
	assert.Equal(t, cap(client.Send), len(client.Send))
}
