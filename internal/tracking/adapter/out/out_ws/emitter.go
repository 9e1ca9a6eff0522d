package out_ws

import (
	"errors"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/presence"
)

// Sender - то, что умеет Hub
type Sender interface {
	SendTypedMessage(clientID, msgType string, data any) error
}

// WsEmitter доставляет события через WebSocket Hub.
// Состав канала берется из Channels в момент отправки.
type WsEmitter struct {
	sender   Sender
	channels *presence.Channels
	log      *logger.Logger
}

// NewWsEmitter создает новый emitter
func NewWsEmitter(sender Sender, channels *presence.Channels, log *logger.Logger) *WsEmitter {
	return &WsEmitter{
		sender:   sender,
		channels: channels,
		log:      log,
	}
}

// EmitTo отправляет событие одному соединению
func (e *WsEmitter) EmitTo(connID, event string, payload any) error {
	err := e.sender.SendTypedMessage(connID, event, payload)
	if errors.Is(err, ws.ErrClientNotFound) {
		return out.ErrConnectionGone
	}
	return err
}

// EmitToChannel отправляет событие всем участникам канала
func (e *WsEmitter) EmitToChannel(key, event string, payload any) int {
	members := e.channels.Members(key)
	delivered := 0
	for _, connID := range members {
		if err := e.EmitTo(connID, event, payload); err != nil {
			e.log.Debug(logger.Entry{
				Action:  "channel_emit_skipped",
				Message: err.Error(),
				ConnID:  connID,
				OrderID: key,
				Additional: map[string]any{
					"event": event,
				},
			})
			continue
		}
		delivered++
	}

	e.log.Debug(logger.Entry{
		Action:  "channel_emit",
		Message: event,
		OrderID: key,
		Additional: map[string]any{
			"members":   len(members),
			"delivered": delivered,
		},
	})
	return delivered
}
