package out

import "errors"

// ErrConnectionGone - соединение закрылось до отправки
var ErrConnectionGone = errors.New("connection gone")

// Emitter - доставка событий в соединения и каналы заказов
type Emitter interface {
	// EmitTo отправляет событие одному соединению
	EmitTo(connID, event string, payload any) error

	// EmitToChannel отправляет событие всем участникам канала на момент вызова.
	// Возвращает число соединений, которым событие поставлено в очередь.
	EmitToChannel(key, event string, payload any) int
}
