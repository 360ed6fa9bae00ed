package tracker

import (
	"github.com/yegors/flightwatch/internal/websocket"
	"github.com/yegors/flightwatch/pkg/logger"
)

// SnapshotMessage wraps a snapshot in the flight_data push message
func SnapshotMessage(snapshot Snapshot) *websocket.Message {
	return &websocket.Message{
		Type: websocket.MessageTypeFlightData,
		Data: map[string]any{
			"airport":      snapshot.Airport,
			"flights":      snapshot.Flights,
			"feed_updated": snapshot.FeedUpdated,
			"generated_at": snapshot.GeneratedAt,
		},
	}
}

// WebSocketPublisher pushes every snapshot to connected dashboard clients
type WebSocketPublisher struct {
	server *websocket.Server
}

// NewWebSocketPublisher creates a publisher backed by the given hub
func NewWebSocketPublisher(server *websocket.Server) *WebSocketPublisher {
	return &WebSocketPublisher{server: server}
}

// Publish broadcasts the snapshot and retains it for late joiners
func (p *WebSocketPublisher) Publish(snapshot Snapshot) error {
	p.server.BroadcastRetained(SnapshotMessage(snapshot))
	return nil
}

// WebSocketHandler handles requests sent by dashboard clients
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("tracker-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeSnapshotRequest:
		snapshot, ok := h.service.Snapshot()
		if !ok {
			h.logger.Debug("Snapshot requested before first fetch cycle")
			return nil
		}
		if !client.SendMessage(SnapshotMessage(snapshot)) {
			h.logger.Warn("Client send channel full, dropping message")
		}
		return nil
	case websocket.MessageTypeRefreshRequest:
		if !h.service.RefreshNow() {
			h.logger.Debug("Refresh requested while tracker is stopped")
		}
		return nil
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}
