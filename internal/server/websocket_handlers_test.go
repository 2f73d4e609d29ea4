package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rewire/internal/models"
	"rewire/internal/notifications"
	"rewire/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStatsClient(userID uint) *notifications.Client {
	hub := notifications.NewHub()
	return notifications.NewClient(hub, nil, userID)
}

func TestHandleIncomingStatsMessage(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("Stats", mock.Anything, uint(7)).Return(&models.TaskStats{
		TotalTasks:     2,
		CompletedTasks: 1,
		TotalMarks:     5,
	}, nil)

	s := &Server{statsService: service.NewStatsService(taskRepo)}
	client := newStatsClient(7)

	t.Run("Invalid JSON keeps connection and reports error", func(t *testing.T) {
		s.handleIncomingStatsMessage(client, []byte("{not json"))

		select {
		case msg := <-client.Send:
			assert.JSONEq(t, `{"type":"error","message":"Invalid JSON format"}`, string(msg))
		default:
			t.Fatal("expected an error event")
		}
	})

	t.Run("get_stats pushes a stats payload", func(t *testing.T) {
		s.handleIncomingStatsMessage(client, []byte(`{"action":"get_stats"}`))

		select {
		case msg := <-client.Send:
			var event struct {
				Type string           `json:"type"`
				Data models.TaskStats `json:"data"`
			}
			require.NoError(t, json.Unmarshal(msg, &event))
			assert.Equal(t, EventUserStats, event.Type)
			assert.Equal(t, 2, event.Data.TotalTasks)
			assert.Equal(t, 50.0, event.Data.CompletionRate)
		default:
			t.Fatal("expected a stats event")
		}
	})

	t.Run("Unknown action is ignored", func(t *testing.T) {
		s.handleIncomingStatsMessage(client, []byte(`{"action":"dance"}`))

		select {
		case msg := <-client.Send:
			t.Fatalf("expected no message, got %s", msg)
		default:
		}
	})
}

func TestPublishUserEventReachesHubSubscribers(t *testing.T) {
	// publishUserEvent with a hub but no notifier delivers locally only
	s := &Server{hub: notifications.NewHub()}

	// No connections registered: must not panic
	s.publishUserEvent(context.Background(), 3, EventTaskUpdate, map[string]interface{}{
		"task_id": 42,
	})
}

func TestPublishUserEventDeliversOncePerClient(t *testing.T) {
	rdb := newTestRedis(t)
	hub := notifications.NewHub()
	notifier := notifications.NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, notifier))
	time.Sleep(50 * time.Millisecond)

	client, err := hub.Register(4, nil)
	require.NoError(t, err)

	s := &Server{hub: hub, notifier: notifier}
	s.publishUserEvent(ctx, 4, EventTaskUpdate, map[string]interface{}{
		"task_id": 42,
	})

	// The publishing instance subscribes to its own publish, so the event
	// must arrive through the subscriber alone, exactly once.
	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), `"task_update"`)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive the published event")
	}

	select {
	case msg := <-client.Send:
		t.Fatalf("client received a duplicate event: %s", msg)
	case <-time.After(300 * time.Millisecond):
	}
}
