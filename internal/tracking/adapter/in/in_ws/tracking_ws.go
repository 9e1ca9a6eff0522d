package in_ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/in"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// disconnectTimeout - сколько даем стору на запись при отключении
const disconnectTimeout = 5 * time.Second

// NewAuthFunc проверяет токен, предъявленный при upgrade
func NewAuthFunc(jwtSvc *auth.JWTService) ws.AuthFunc {
	return func(token string) (userID, role string, err error) {
		claims, err := jwtSvc.ValidateToken(token)
		if err != nil {
			return "", "", err
		}

		switch claims.Role {
		case auth.RoleUser, auth.RoleDriver, auth.RoleAdmin:
			return claims.UserID, claims.Role, nil
		default:
			return "", "", fmt.Errorf("invalid role: %s", claims.Role)
		}
	}
}

// TrackingWSHandler связывает WebSocket Hub с роутером событий
type TrackingWSHandler struct {
	ctx    context.Context
	hub    *ws.Hub
	router in.EventRouter
	log    *logger.Logger
}

// NewTrackingWSHandler регистрирует обработчики Hub.
// ctx отменяется при остановке сервиса.
func NewTrackingWSHandler(ctx context.Context, hub *ws.Hub, router in.EventRouter, log *logger.Logger) *TrackingWSHandler {
	h := &TrackingWSHandler{
		ctx:    ctx,
		hub:    hub,
		router: router,
		log:    log,
	}

	hub.SetConnectHandler(h.onConnect)
	hub.SetMessageHandler(h.handleMessage)
	hub.SetDisconnectHandler(h.onDisconnect)

	return h
}

// GetHub возвращает WebSocket hub
func (h *TrackingWSHandler) GetHub() *ws.Hub {
	return h.hub
}

// ServeWS обрабатывает GET /ws
func (h *TrackingWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func (h *TrackingWSHandler) onConnect(c *ws.Client) {
	h.log.WithFields(map[string]any{"connection_id": c.ID, "role": c.Role}).Debug(logger.Entry{
		Action:  "tracking_ws_connected",
		Message: "connection registered in router",
	})
	h.router.Connect(c.ID, domain.Principal{UserID: c.UserID, Role: c.Role})
}

func (h *TrackingWSHandler) handleMessage(c *ws.Client, msgType string, data json.RawMessage) error {
	h.log.WithConnection(c.ID, "").Debug(logger.Entry{
		Action:     "tracking_ws_message",
		Message:    msgType,
		Additional: map[string]any{"user_id": c.UserID},
	})
	return h.router.Handle(h.ctx, c.ID, msgType, data)
}

func (h *TrackingWSHandler) onDisconnect(c *ws.Client) {
	// запись в стор должна пройти и во время остановки сервиса
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), disconnectTimeout)
	defer cancel()
	h.router.Disconnect(ctx, c.ID)
}
