package domain

import (
	"strings"
	"time"
)

// OrderStatus - статус заказа
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус из известного набора
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal - после delivered/cancelled водитель освобождается
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// HumanMessage - текст для status-update
func (s OrderStatus) HumanMessage() string {
	return "Order status changed to: " + strings.ReplaceAll(string(s), "_", " ")
}

// DriverDetails - денормализованный снимок водителя в заказе
type DriverDetails struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicleNumber"`
}

// Location - точка с адресом
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Address   string    `json:"address,omitempty"`
	UpdatedAt time.Time `json:"timestamp"`
}

// Order - заказ доставки (хранится во внешнем сторе)
type Order struct {
	ID                string         `json:"id"`
	TrackingNumber    string         `json:"trackingNumber"`
	UserID            string         `json:"userId,omitempty"`
	Status            OrderStatus    `json:"status"`
	DriverID          *string        `json:"driverId,omitempty"`
	DriverDetails     *DriverDetails `json:"driverDetails,omitempty"`
	LastKnownLocation *Location      `json:"lastKnownLocation,omitempty"`
	Amount            float64        `json:"amount"`
	PaymentStatus     string         `json:"paymentStatus,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// AssignedTo - назначен ли заказ водителю driverID
func (o *Order) AssignedTo(driverID string) bool {
	return o.DriverID != nil && *o.DriverID == driverID
}

// NormalizeTrackingNumber - номера хранятся в верхнем регистре (AE007)
func NormalizeTrackingNumber(tn string) string {
	return strings.ToUpper(strings.TrimSpace(tn))
}
