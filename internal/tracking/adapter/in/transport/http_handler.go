package transport

import (
	"encoding/json"
	"net/http"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/presence"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// ConnectionCounter - число живых WebSocket соединений (ws.Hub)
type ConnectionCounter interface {
	Count() int
}

// HTTPHandler обрабатывает HTTP запросы Tracking Service
type HTTPHandler struct {
	directory *presence.Directory
	channels  *presence.Channels
	conns     ConnectionCounter
	log       *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(directory *presence.Directory, channels *presence.Channels, conns ConnectionCounter, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		directory: directory,
		channels:  channels,
		conns:     conns,
		log:       log,
	}
}

// RegisterRoutes регистрирует все HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, ws http.HandlerFunc, adminOnly func(http.HandlerFunc) http.HandlerFunc) {
	// liveness
	mux.HandleFunc("GET /health", h.handleHealth)

	// realtime
	mux.HandleFunc("GET /ws", ws)

	// admin
	mux.HandleFunc("GET /api/v1/presence", adminOnly(h.handlePresence))

	h.log.Info(logger.Entry{
		Action:  "http_routes_registered",
		Message: "tracking routes registered",
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.conns.Count(),
		"channels":    h.channels.Len(),
	})
}

// PresenceEntry - подключенная сторона и заказы, которые слушает ее соединение
type PresenceEntry struct {
	presence.Entry
	Orders []string `json:"orders"`
}

// PresenceResponse - ответ GET /api/v1/presence
type PresenceResponse struct {
	Connections int             `json:"connections"`
	Users       []PresenceEntry `json:"users"`
	Drivers     []PresenceEntry `json:"drivers"`
	Channels    map[string]int  `json:"channels"`
}

// handlePresence обрабатывает GET /api/v1/presence
func (h *HTTPHandler) handlePresence(w http.ResponseWriter, r *http.Request) {
	resp := PresenceResponse{
		Connections: h.conns.Count(),
		Users:       []PresenceEntry{},
		Drivers:     []PresenceEntry{},
		Channels:    h.channels.Sizes(),
	}

	for _, e := range h.directory.Snapshot() {
		pe := PresenceEntry{Entry: e, Orders: h.channels.ChannelsOf(e.ConnectionID)}
		if e.Kind == domain.PartyDriver {
			resp.Drivers = append(resp.Drivers, pe)
		} else {
			resp.Users = append(resp.Users, pe)
		}
	}

	h.log.Debug(logger.Entry{
		Action:    "presence_snapshot",
		Message:   "presence requested",
		RequestID: RequestIDFrom(r.Context()),
		Additional: map[string]any{
			"users":   len(resp.Users),
			"drivers": len(resp.Drivers),
		},
	})

	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
