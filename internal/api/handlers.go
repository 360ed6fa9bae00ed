package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yegors/flightwatch/internal/display"
	"github.com/yegors/flightwatch/internal/tracker"
	"github.com/yegors/flightwatch/internal/websocket"
	"github.com/yegors/flightwatch/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	service  *tracker.Service
	wsServer *websocket.Server
	location *time.Location
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *tracker.Service, wsServer *websocket.Server, loc *time.Location, log *logger.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		service:  service,
		wsServer: wsServer,
		location: loc,
		logger:   log.Named("api-handler"),
	}
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()

	status := "ok"
	if stats.LastSuccess == nil {
		status = "waiting"
	}

	response := map[string]any{
		"status":          status,
		"airport":         stats.Airport,
		"running":         stats.Running,
		"tracked_flights": stats.TrackedFlights,
	}
	if stats.LastSuccess != nil {
		response["last_success"] = *stats.LastSuccess
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetFlights returns the latest snapshot. No content is returned until the
// first fetch cycle has completed.
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.service.Snapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// GetView returns the latest snapshot projected for display
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.service.Snapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	WriteJSON(w, http.StatusOK, display.Project(snapshot.Flights, snapshot.Airport, h.location))
}

// GetStatus returns the poller statistics
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()

	response := map[string]any{
		"tracker": stats,
	}
	if h.wsServer != nil {
		response["websocket_clients"] = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// Refresh schedules an immediate fetch cycle
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.service.RefreshNow() {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "tracker not running",
		})
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "refresh scheduled",
	})
}

// HandleWebSocket upgrades the connection to the push channel
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "websocket channel disabled",
		})
		return
	}

	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
