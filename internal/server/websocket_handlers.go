package server

import (
	"context"
	"encoding/json"
	"log"

	"rewire/internal/middleware"
	"rewire/internal/notifications"
	"rewire/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// TaskStatsHandler returns a websocket handler for the realtime stats channel.
// Authentication is handled by route middleware and userID is read from
// connection locals. Each connection receives a stats snapshot on open and a
// task_update event whenever the user completes a task on any instance.
func (s *Server) TaskStatsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}
		uid, ok := userIDVal.(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket Stats: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		defer s.hub.UnregisterClient(client)

		// Initial snapshot goes straight to the connection; the write pumps
		// have not started yet.
		s.sendStatsSnapshot(conn, uid)

		client.IncomingHandler = s.handleIncomingStatsMessage

		// Start pumps
		go client.WritePump()
		client.ReadPump()
	})
}

// sendStatsSnapshot writes the user's current stats directly to the connection.
func (s *Server) sendStatsSnapshot(conn *websocket.Conn, userID uint) {
	stats, err := s.statsService.GetStats(context.Background(), userID)
	if err != nil {
		log.Printf("failed to load stats snapshot for user %d: %v", userID, err)
		return
	}

	snapshot, err := json.Marshal(map[string]interface{}{
		"type": EventUserStats,
		"data": stats,
	})
	if err != nil {
		log.Printf("failed to marshal stats snapshot: %v", err)
		return
	}

	observability.RecordWebSocketEvent(EventUserStats)
	if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		log.Printf("failed to send stats snapshot to user %d: %v", userID, err)
	}
}

// handleIncomingStatsMessage processes client-to-server messages. Malformed
// JSON gets an error event back but keeps the connection open; unknown actions
// are ignored.
func (s *Server) handleIncomingStatsMessage(client *notifications.Client, message []byte) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(message, &req); err != nil {
		client.TrySend([]byte(`{"type":"error","message":"Invalid JSON format"}`))
		return
	}

	switch req.Action {
	case "get_stats":
		stats, err := s.statsService.GetStats(context.Background(), client.UserID)
		if err != nil {
			log.Printf("failed to load stats for user %d: %v", client.UserID, err)
			return
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type": EventUserStats,
			"data": stats,
		})
		if err != nil {
			log.Printf("failed to marshal stats payload: %v", err)
			return
		}
		observability.RecordWebSocketEvent(EventUserStats)
		client.TrySend(payload)
	default:
		// Unknown actions are ignored rather than closing the connection.
	}
}
