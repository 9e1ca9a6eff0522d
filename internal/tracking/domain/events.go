package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Входящие события
const (
	EventJoin                   = "join"
	EventDriverAuthenticate     = "driver-authenticate"
	EventTrackOrder             = "track-order"
	EventAcceptOrder            = "accept-order"
	EventDriverLocationUpdate   = "driver-location-update"
	EventOrderStatusUpdate      = "order-status-update"
	EventRequestAvailableOrders = "request-available-orders"
	EventDriverJoinOrder        = "driver-join-order"
	EventPing                   = "ping"
	EventDriverCompleteOrder    = "driver-complete-order"
)

// Исходящие события
const (
	EventOrderTracking       = "order-tracking"
	EventDriverAuthenticated = "driver-authenticated"
	EventOrderAccepted       = "order-accepted"
	EventDriverAccepted      = "driver-accepted"
	EventOrderTaken          = "order-taken"
	EventLocationUpdate      = "location-update"
	EventStatusUpdate        = "status-update"
	EventAvailableOrders     = "available-orders"
	EventDriverDisconnected  = "driver-disconnected"
	EventOrderCompleted      = "order-completed"
	EventPong                = "pong"
	EventError               = "error"
)

// aliases - старые имена событий мобильных клиентов
var aliases = map[string]string{
	"driverjoin":          EventDriverAuthenticate,
	"tracknum":            EventTrackOrder,
	"user-join-order":     EventTrackOrder,
	"driver-accept-order": EventAcceptOrder,
}

// CanonicalEvent приводит алиас к основному имени
func CanonicalEvent(name string) string {
	if c, ok := aliases[name]; ok {
		return c
	}
	return name
}

// Payload - входящая нагрузка события
type Payload interface {
	Validate() error
}

// bareID - нагрузка, которую старые клиенты шлют строкой ("data": "AE007")
type bareID interface {
	setBareID(id string)
}

// DecodePayload разбирает data в p и валидирует.
// Любая ошибка - ValidationError, до каких-либо изменений состояния.
func DecodePayload(op string, data json.RawMessage, p Payload) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		// пустая нагрузка, дальше решает Validate
	case trimmed[0] == '"':
		b, ok := p.(bareID)
		if !ok {
			return Validation(op, "data must be an object")
		}
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return Validation(op, "malformed data")
		}
		b.setBareID(id)
	default:
		if err := json.Unmarshal(trimmed, p); err != nil {
			return Validation(op, "malformed data")
		}
	}
	if err := p.Validate(); err != nil {
		return Validation(op, err.Error())
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// JoinPayload - join
type JoinPayload struct {
	UserID string `json:"userId"`
}

func (p *JoinPayload) Validate() error { return required("userId", p.UserID) }
func (p *JoinPayload) setBareID(id string) { p.UserID = id }

// DriverAuthPayload - driver-authenticate
type DriverAuthPayload struct {
	DriverID string `json:"driverId"`
}

func (p *DriverAuthPayload) Validate() error { return required("driverId", p.DriverID) }
func (p *DriverAuthPayload) setBareID(id string) { p.DriverID = id }

// TrackOrderPayload - track-order, нужен trackingNumber или orderId
type TrackOrderPayload struct {
	TrackingNumber string `json:"trackingNumber"`
	OrderID        string `json:"orderId"`
	UserID         string `json:"userId,omitempty"`
}

func (p *TrackOrderPayload) Validate() error {
	if strings.TrimSpace(p.TrackingNumber) == "" && strings.TrimSpace(p.OrderID) == "" {
		return fmt.Errorf("trackingNumber or orderId is required")
	}
	return nil
}

// строкой приходит номер отслеживания
func (p *TrackOrderPayload) setBareID(id string) { p.TrackingNumber = id }

// OrderRefPayload - accept-order, driver-join-order
type OrderRefPayload struct {
	OrderID string `json:"orderId"`
}

func (p *OrderRefPayload) Validate() error { return required("orderId", p.OrderID) }
func (p *OrderRefPayload) setBareID(id string) { p.OrderID = id }

// LocationPayload - driver-location-update
type LocationPayload struct {
	OrderID string   `json:"orderId"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address,omitempty"`
}

func (p *LocationPayload) Validate() error {
	if err := required("orderId", p.OrderID); err != nil {
		return err
	}
	if p.Lat == nil || p.Lng == nil {
		return fmt.Errorf("lat and lng are required")
	}
	if *p.Lat < -90 || *p.Lat > 90 {
		return fmt.Errorf("lat must be between -90 and 90")
	}
	if *p.Lng < -180 || *p.Lng > 180 {
		return fmt.Errorf("lng must be between -180 and 180")
	}
	return nil
}

// StatusPayload - order-status-update
type StatusPayload struct {
	OrderID string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

func (p *StatusPayload) Validate() error {
	if err := required("orderId", p.OrderID); err != nil {
		return err
	}
	if !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	if p.Status == StatusPending {
		return fmt.Errorf("order cannot be moved back to pending")
	}
	return nil
}

// ---- исходящие нагрузки ----

type OrderTrackingData struct {
	Order *Order `json:"order"`
}

type DriverAuthenticatedData struct {
	Success         bool    `json:"success"`
	DriverID        string  `json:"driverId"`
	AvailableOrders []Order `json:"availableOrders"`
}

type OrderAcceptedData struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order"`
}

type DriverAcceptedData struct {
	OrderID string           `json:"orderId"`
	Driver  DriverPublicInfo `json:"driver"`
	Message string           `json:"message"`
}

type OrderTakenData struct {
	OrderID string `json:"orderId"`
}

type LocationUpdateData struct {
	OrderID   string            `json:"orderId"`
	Lat       float64           `json:"lat"`
	Lng       float64           `json:"lng"`
	Address   string            `json:"address,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Driver    *DriverPublicInfo `json:"driver,omitempty"`
}

type StatusUpdateData struct {
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Message   string      `json:"message"`
}

type AvailableOrdersData struct {
	Orders []Order `json:"orders"`
}

type DriverDisconnectedData struct {
	OrderID  string `json:"orderId"`
	DriverID string `json:"driverId"`
	Message  string `json:"message"`
}

type OrderCompletedData struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

type PongData struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorData - тело события error
type ErrorData struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
