package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionResponse is the body of GET /api/session.
type SessionResponse struct {
	Session     models.Session     `json:"session"`
	Preferences models.Preferences `json:"preferences"`
}

// WebSocketHandler serves the timer WebSocket and the session endpoint
type WebSocketHandler struct {
	hub        *Hub
	controller Controller
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *Hub, controller Controller) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		controller: controller,
	}
}

// HandleTimerConnection handles GET /ws/timer
func (h *WebSocketHandler) HandleTimerConnection(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own error response
	if err := h.hub.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleSession handles GET /api/session
func (h *WebSocketHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := h.controller.Session(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get timer session")
		http.Error(w, "Failed to get timer session", http.StatusServiceUnavailable)
		return
	}
	prefs, err := h.controller.Preferences(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get preferences")
		http.Error(w, "Failed to get preferences", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SessionResponse{Session: session, Preferences: prefs}); err != nil {
		log.Error().Err(err).Msg("failed to encode session response")
	}
}

// HandleConnectionStats handles GET /ws/stats
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{
		"total_connections": h.hub.ConnectionCount(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers the timer routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/timer", h.HandleTimerConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/api/session", h.HandleSession)
}
