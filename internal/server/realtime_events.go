package server

import (
	"context"
	"encoding/json"
	"log"

	"rewire/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventTaskUpdate = "task_update"
	EventUserStats  = "user_stats"
)

func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	message := string(eventJSON)
	observability.RecordWebSocketEvent(eventType)

	// With Redis wired, the pattern subscriber is the only delivery path.
	// The publishing instance receives its own publish like any other, so
	// broadcasting locally as well would hand local clients the event twice.
	if s.notifier != nil {
		err := s.notifier.PublishUser(ctx, userID, message)
		if err == nil {
			return
		}
		// Fall back to local delivery so connected clients still see the event.
		log.Printf("failed to publish %s event to user %d: %v", eventType, userID, err)
	}
	if s.hub != nil {
		s.hub.Broadcast(userID, message)
	}
}
