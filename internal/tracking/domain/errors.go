package domain

import (
	"errors"
	"fmt"
)

// Kind - класс ошибки, который видит клиент в событии error
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation_error"
	KindUpstream     Kind = "upstream_error"
)

var (
	// ErrOrderNotFound - заказа с таким id/номером нет
	ErrOrderNotFound = errors.New("order not found")

	// ErrDriverNotFound - водителя с таким id нет
	ErrDriverNotFound = errors.New("driver not found")

	// ErrOrderNotPending - заказ уже принят другим водителем или закрыт
	ErrOrderNotPending = errors.New("order is no longer pending")

	// ErrNotBound - заказ назначен не этому водителю
	ErrNotBound = errors.New("order is not assigned to this driver")

	// ErrOrderClosed - заказ уже delivered/cancelled
	ErrOrderClosed = errors.New("order is already closed")
)

// Error - ошибка обработки события с классом и операцией
type Error struct {
	Kind Kind
	Op   string // входящее событие, например accept-order
	Msg  string // безопасное для клиента сообщение
	Err  error  // исходная ошибка, только для логов
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(op, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, Msg: msg}
}

func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func Conflict(op, msg string) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg}
}

func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Upstream скрывает детали от клиента
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Msg: "internal error", Err: err}
}

// Classify приводит ошибку стора к таксономии.
// Неизвестные ошибки считаются сбоем хранилища.
func Classify(op string, err error) *Error {
	var de *Error
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, ErrOrderNotFound):
		return &Error{Kind: KindNotFound, Op: op, Msg: "order not found", Err: err}
	case errors.Is(err, ErrDriverNotFound):
		return &Error{Kind: KindNotFound, Op: op, Msg: "driver not found", Err: err}
	case errors.Is(err, ErrOrderNotPending):
		return &Error{Kind: KindConflict, Op: op, Msg: "order already taken", Err: err}
	case errors.Is(err, ErrOrderClosed):
		return &Error{Kind: KindConflict, Op: op, Msg: "order already closed", Err: err}
	case errors.Is(err, ErrNotBound):
		return &Error{Kind: KindUnauthorized, Op: op, Msg: "order is not assigned to this driver", Err: err}
	default:
		return Upstream(op, err)
	}
}
