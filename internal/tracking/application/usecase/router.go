// ============================================================================
// EVENT ROUTER - Обработка событий WebSocket реле трекинга
// ============================================================================
//
// 📡 НАЗНАЧЕНИЕ:
// Router принимает входящие события соединений, проверяет предусловия,
// меняет состояние (Directory, Channels, стор заказов/водителей) и
// рассылает исходящие события через Emitter.
//
// 🔄 СОСТОЯНИЯ СОЕДИНЕНИЯ:
//
//   anonymous ──join──────────────────► user
//       │
//       └──driver-authenticate──► driver ──accept-order / driver-join-order──► bound
//                                   ▲                                           │
//                                   └──────── order-status-update (terminal) ───┘
//
// 🔒 ПОРЯДОК:
// Каждое соединение обрабатывается под своим mutex сессии: события одного
// соединения не перемешиваются, Disconnect ждет текущий обработчик и
// выполняется ровно один раз.
//
// ============================================================================

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/presence"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"
)

// ErrUnknownConnection - событие пришло для соединения без Connect или после Disconnect
var ErrUnknownConnection = errors.New("unknown connection")

const driverLostMessage = "Driver connection lost. Tracking paused."

// Config - параметры роутера
type Config struct {
	PendingWindow      time.Duration
	PendingLimit       int
	RequireDriverToken bool
}

type session struct {
	mu         sync.Mutex
	principal  domain.Principal
	boundOrder string
	closed     bool
}

type handlerFunc func(ctx context.Context, connID string, s *session, data json.RawMessage) error

// Router - реализация in.EventRouter
type Router struct {
	orders    out.OrderStore
	drivers   out.DriverStore
	emitter   out.Emitter
	publisher out.EventPublisher
	directory *presence.Directory
	channels  *presence.Channels
	cfg       Config
	now       func() time.Time
	log       *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
	handlers map[string]handlerFunc
}

// NewRouter создает роутер. Directory и Channels передаются снаружи,
// чтобы их же читал админский API.
func NewRouter(
	orders out.OrderStore,
	drivers out.DriverStore,
	emitter out.Emitter,
	publisher out.EventPublisher,
	directory *presence.Directory,
	channels *presence.Channels,
	cfg Config,
	log *logger.Logger,
) *Router {
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = 24 * time.Hour
	}
	if cfg.PendingLimit <= 0 {
		cfg.PendingLimit = 20
	}

	r := &Router{
		orders:    orders,
		drivers:   drivers,
		emitter:   emitter,
		publisher: publisher,
		directory: directory,
		channels:  channels,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
		sessions:  make(map[string]*session),
	}
	r.handlers = map[string]handlerFunc{
		domain.EventJoin:                   r.handleJoin,
		domain.EventDriverAuthenticate:     r.handleDriverAuthenticate,
		domain.EventTrackOrder:             r.handleTrackOrder,
		domain.EventAcceptOrder:            r.handleAcceptOrder,
		domain.EventDriverLocationUpdate:   r.handleLocationUpdate,
		domain.EventOrderStatusUpdate:      r.handleStatusUpdate,
		domain.EventRequestAvailableOrders: r.handleRequestAvailableOrders,
		domain.EventDriverJoinOrder:        r.handleDriverJoinOrder,
		domain.EventDriverCompleteOrder:    r.handleCompleteOrder,
		domain.EventPing:                   r.handlePing,
	}
	return r
}

// Connect регистрирует соединение как анонимное
func (r *Router) Connect(connID string, principal domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[connID]; ok {
		return
	}
	r.sessions[connID] = &session{principal: principal}
}

func (r *Router) session(connID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[connID]
}

// Handle обрабатывает одно событие. Ошибка уже отправлена клиенту событием error.
func (r *Router) Handle(ctx context.Context, connID, event string, data json.RawMessage) error {
	s := r.session(connID)
	if s == nil {
		return ErrUnknownConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownConnection
	}

	var err error
	if h, ok := r.handlers[domain.CanonicalEvent(event)]; ok {
		err = h(ctx, connID, s, data)
	} else {
		err = domain.Validation(event, fmt.Sprintf("unknown event %q", event))
	}

	if err != nil {
		return r.fail(connID, event, err)
	}
	return nil
}

// Disconnect чистит Directory и Channels, пишет в стор и уведомляет канал.
// Повторные вызовы ничего не делают.
func (r *Router) Disconnect(ctx context.Context, connID string) {
	r.mu.Lock()
	s := r.sessions[connID]
	delete(r.sessions, connID)
	r.mu.Unlock()

	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	removed := r.directory.RemoveByConnection(connID)
	left := r.channels.LeaveAll(connID)

	r.log.Info(logger.Entry{
		Action:  "connection_closed",
		Message: "connection removed from directory and channels",
		ConnID:  connID,
		Additional: map[string]any{
			"identities": removed,
			"channels":   left,
		},
	})

	for _, id := range removed {
		if id.Kind != domain.PartyDriver {
			continue
		}

		if err := r.drivers.SetConnection(ctx, id.ID, nil); err != nil {
			r.logStoreError("driver_clear_connection_failed", connID, s.boundOrder, err)
		}
		if err := r.drivers.SetAvailability(ctx, id.ID, false); err != nil {
			r.logStoreError("driver_set_unavailable_failed", connID, s.boundOrder, err)
		}

		if s.boundOrder == "" {
			continue
		}

		n := r.emitter.EmitToChannel(s.boundOrder, domain.EventDriverDisconnected, domain.DriverDisconnectedData{
			OrderID:  s.boundOrder,
			DriverID: id.ID,
			Message:  driverLostMessage,
		})
		r.log.Warn(logger.Entry{
			Action:     "driver_disconnected_mid_delivery",
			Message:    fmt.Sprintf("driver %s lost connection, %d watchers notified", id.ID, n),
			ConnID:     connID,
			OrderID:    s.boundOrder,
			Additional: map[string]any{"driver_id": id.ID},
		})
		r.publish(ctx, out.OrderEvent{
			RoutingKey: out.RoutingDriverDisconnected,
			OrderID:    s.boundOrder,
			DriverID:   id.ID,
			OccurredAt: r.now().UTC(),
		})
	}
	s.boundOrder = ""
}

// ---- обработчики ----

func (r *Router) handleJoin(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventJoin

	var p domain.JoinPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	if err := checkPrincipal(op, s.principal, p.UserID, auth.RoleUser); err != nil {
		return err
	}
	if cur, ok := r.directory.IdentityOf(connID); ok && cur.Kind == domain.PartyDriver {
		return domain.Conflict(op, "connection is already authenticated as a driver")
	}

	r.directory.RegisterUser(p.UserID, connID)
	r.log.Info(logger.Entry{
		Action:     "user_joined",
		Message:    fmt.Sprintf("user %s joined", p.UserID),
		ConnID:     connID,
		Additional: map[string]any{"user_id": p.UserID},
	})

	// последняя точка по заказам, которые соединение уже отслеживает
	for _, orderID := range r.channels.ChannelsOf(connID) {
		order, err := r.orders.FindByID(ctx, orderID)
		if err != nil {
			r.logStoreError("join_load_order_failed", connID, orderID, err)
			continue
		}
		if order.LastKnownLocation == nil {
			continue
		}
		r.emitTo(connID, domain.EventLocationUpdate, locationData(order, order.LastKnownLocation))
	}
	return nil
}

func (r *Router) handleDriverAuthenticate(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventDriverAuthenticate

	var p domain.DriverAuthPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	if s.principal.Anonymous() && r.cfg.RequireDriverToken {
		return domain.Unauthorized(op, "driver token required")
	}
	if err := checkPrincipal(op, s.principal, p.DriverID, auth.RoleDriver); err != nil {
		return err
	}
	if cur, ok := r.directory.IdentityOf(connID); ok {
		if cur.Kind == domain.PartyUser {
			return domain.Conflict(op, "connection is already joined as a user")
		}
		if cur.ID != p.DriverID {
			return domain.Conflict(op, "connection is already authenticated as another driver")
		}
	}

	driver, err := r.drivers.FindByID(ctx, p.DriverID)
	if err != nil {
		return domain.Classify(op, err)
	}

	busy, err := r.holdsActiveOrder(ctx, connID, driver)
	if err != nil {
		return domain.Classify(op, err)
	}
	// привязанное соединение занято, даже если стор потерял currentOrder
	busy = busy || s.boundOrder != ""

	if err := r.drivers.SetConnection(ctx, driver.ID, &connID); err != nil {
		return domain.Classify(op, err)
	}
	if err := r.drivers.SetAvailability(ctx, driver.ID, !busy); err != nil {
		return domain.Classify(op, err)
	}

	r.directory.RegisterDriver(driver.ID, connID)
	if busy {
		r.directory.SetAvailable(driver.ID, false)
	}

	pending, err := r.pendingSnapshot(ctx)
	if err != nil {
		return domain.Classify(op, err)
	}

	r.log.Info(logger.Entry{
		Action:  "driver_authenticated",
		Message: fmt.Sprintf("driver %s authenticated", driver.Name),
		ConnID:  connID,
		Additional: map[string]any{
			"driver_id":        driver.ID,
			"busy":             busy,
			"available_orders": len(pending),
		},
	})

	r.emitTo(connID, domain.EventDriverAuthenticated, domain.DriverAuthenticatedData{
		Success:         true,
		DriverID:        driver.ID,
		AvailableOrders: pending,
	})
	return nil
}

func (r *Router) handleTrackOrder(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventTrackOrder

	var p domain.TrackOrderPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	if p.UserID != "" {
		if err := checkPrincipal(op, s.principal, p.UserID, auth.RoleUser); err != nil {
			return err
		}
	}

	var (
		order *domain.Order
		err   error
	)
	if p.OrderID != "" {
		order, err = r.orders.FindByID(ctx, p.OrderID)
	} else {
		order, err = r.orders.FindByTrackingNumber(ctx, domain.NormalizeTrackingNumber(p.TrackingNumber))
	}
	if err != nil {
		return domain.Classify(op, err)
	}

	if _, identified := r.directory.IdentityOf(connID); !identified && p.UserID != "" {
		r.directory.RegisterUser(p.UserID, connID)
	}
	r.channels.Join(order.ID, connID)

	r.log.Info(logger.Entry{
		Action:  "order_tracking_started",
		Message: fmt.Sprintf("tracking %s", order.TrackingNumber),
		ConnID:  connID,
		OrderID: order.ID,
	})

	r.emitTo(connID, domain.EventOrderTracking, domain.OrderTrackingData{Order: order})
	return nil
}

func (r *Router) handleAcceptOrder(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventAcceptOrder

	var p domain.OrderRefPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	driverID, err := r.requireDriver(op, connID)
	if err != nil {
		return err
	}
	if s.boundOrder != "" {
		return domain.Conflict(op, "driver already has an active order")
	}
	if !r.directory.IsAvailable(driverID) {
		return domain.Conflict(op, "driver is not available")
	}

	driver, err := r.drivers.FindByID(ctx, driverID)
	if err != nil {
		return domain.Classify(op, err)
	}

	// условное обновление: выигрывает ровно один водитель
	order, err := r.orders.AssignDriver(ctx, p.OrderID, driverID, driver.Details())
	if err != nil {
		return domain.Classify(op, err)
	}

	if err := r.drivers.SetCurrentOrder(ctx, driverID, &order.ID); err != nil {
		r.logStoreError("driver_set_current_order_failed", connID, order.ID, err)
	}
	if err := r.drivers.SetAvailability(ctx, driverID, false); err != nil {
		r.logStoreError("driver_set_unavailable_failed", connID, order.ID, err)
	}

	r.directory.SetAvailable(driverID, false)
	s.boundOrder = order.ID
	r.channels.Join(order.ID, connID)

	r.log.Info(logger.Entry{
		Action:     "order_accepted",
		Message:    fmt.Sprintf("driver %s accepted order %s", driver.Name, order.TrackingNumber),
		ConnID:     connID,
		OrderID:    order.ID,
		Additional: map[string]any{"driver_id": driverID},
	})

	r.emitter.EmitToChannel(order.ID, domain.EventDriverAccepted, domain.DriverAcceptedData{
		OrderID: order.ID,
		Driver:  driver.PublicInfo(),
		Message: "Driver has accepted your order",
	})
	r.emitTo(connID, domain.EventOrderAccepted, domain.OrderAcceptedData{Success: true, Order: order})

	for _, other := range r.directory.IdleDriverConnections(connID) {
		r.emitTo(other, domain.EventOrderTaken, domain.OrderTakenData{OrderID: order.ID})
	}

	r.publish(ctx, out.OrderEvent{
		RoutingKey:     out.RoutingOrderAccepted,
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		DriverID:       driverID,
		Status:         string(order.Status),
		OccurredAt:     r.now().UTC(),
	})
	return nil
}

func (r *Router) handleLocationUpdate(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventDriverLocationUpdate

	var p domain.LocationPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	driverID, err := r.requireDriver(op, connID)
	if err != nil {
		return err
	}
	if s.boundOrder != p.OrderID {
		return domain.Unauthorized(op, "driver is not bound to this order")
	}

	loc := domain.Location{
		Lat:       *p.Lat,
		Lng:       *p.Lng,
		Address:   p.Address,
		UpdatedAt: r.now().UTC(),
	}
	if loc.Address == "" {
		loc.Address = fmt.Sprintf("Lat: %g, Lng: %g", loc.Lat, loc.Lng)
	}

	order, err := r.orders.UpdateDeliveryLocation(ctx, p.OrderID, driverID, loc)
	if err != nil {
		r.releaseIfLost(ctx, connID, s, driverID, p.OrderID, err)
		return domain.Classify(op, err)
	}
	if err := r.drivers.UpdateLiveLocation(ctx, driverID, loc.Lng, loc.Lat); err != nil {
		r.logStoreError("driver_live_location_failed", connID, order.ID, err)
	}

	update := locationData(order, &loc)
	update.Driver = driverInfo(driverID, order)
	n := r.emitter.EmitToChannel(order.ID, domain.EventLocationUpdate, update)

	r.log.Debug(logger.Entry{
		Action:  "location_updated",
		Message: fmt.Sprintf("location %.6f,%.6f sent to %d connections", loc.Lat, loc.Lng, n),
		ConnID:  connID,
		OrderID: order.ID,
	})

	r.publish(ctx, out.OrderEvent{
		RoutingKey: out.RoutingOrderLocation,
		OrderID:    order.ID,
		DriverID:   driverID,
		Status:     string(order.Status),
		OccurredAt: loc.UpdatedAt,
		AdditionalData: map[string]any{
			"lat": loc.Lat,
			"lng": loc.Lng,
		},
	})
	return nil
}

func (r *Router) handleStatusUpdate(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventOrderStatusUpdate

	var p domain.StatusPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	return r.changeStatus(ctx, op, connID, s, p.OrderID, p.Status)
}

// handleCompleteOrder - старое событие завершения доставки
func (r *Router) handleCompleteOrder(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventDriverCompleteOrder

	var p domain.OrderRefPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	if err := r.changeStatus(ctx, op, connID, s, p.OrderID, domain.StatusDelivered); err != nil {
		return err
	}
	r.emitTo(connID, domain.EventOrderCompleted, domain.OrderCompletedData{Success: true, OrderID: p.OrderID})
	return nil
}

func (r *Router) changeStatus(ctx context.Context, op, connID string, s *session, orderID string, status domain.OrderStatus) error {
	driverID, err := r.requireDriver(op, connID)
	if err != nil {
		return err
	}
	if s.boundOrder != orderID {
		return domain.Unauthorized(op, "driver is not bound to this order")
	}

	order, err := r.orders.UpdateStatus(ctx, orderID, driverID, status)
	if err != nil {
		r.releaseIfLost(ctx, connID, s, driverID, orderID, err)
		return domain.Classify(op, err)
	}

	r.log.Info(logger.Entry{
		Action:     "order_status_updated",
		Message:    fmt.Sprintf("order %s is now %s", order.TrackingNumber, order.Status),
		ConnID:     connID,
		OrderID:    order.ID,
		Additional: map[string]any{"driver_id": driverID},
	})

	r.emitter.EmitToChannel(order.ID, domain.EventStatusUpdate, domain.StatusUpdateData{
		OrderID:   order.ID,
		Status:    status,
		Timestamp: r.now().UTC(),
		Message:   status.HumanMessage(),
	})
	r.publish(ctx, out.OrderEvent{
		RoutingKey:     out.RoutingOrderStatus(string(status)),
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		DriverID:       driverID,
		Status:         string(status),
		OccurredAt:     r.now().UTC(),
	})

	if status.IsTerminal() {
		r.release(ctx, connID, s, driverID, order.ID)
	}
	return nil
}

func (r *Router) handleRequestAvailableOrders(ctx context.Context, connID string, _ *session, _ json.RawMessage) error {
	const op = domain.EventRequestAvailableOrders

	if _, err := r.requireDriver(op, connID); err != nil {
		return err
	}
	pending, err := r.pendingSnapshot(ctx)
	if err != nil {
		return domain.Classify(op, err)
	}
	r.emitTo(connID, domain.EventAvailableOrders, domain.AvailableOrdersData{Orders: pending})
	return nil
}

func (r *Router) handleDriverJoinOrder(ctx context.Context, connID string, s *session, data json.RawMessage) error {
	const op = domain.EventDriverJoinOrder

	var p domain.OrderRefPayload
	if err := domain.DecodePayload(op, data, &p); err != nil {
		return err
	}
	driverID, err := r.requireDriver(op, connID)
	if err != nil {
		return err
	}

	order, err := r.orders.FindByID(ctx, p.OrderID)
	if err != nil {
		return domain.Classify(op, err)
	}
	if !order.AssignedTo(driverID) {
		return domain.Classify(op, domain.ErrNotBound)
	}
	if order.Status.IsTerminal() {
		return domain.Classify(op, domain.ErrOrderClosed)
	}
	if s.boundOrder != "" && s.boundOrder != order.ID {
		return domain.Conflict(op, "driver already has an active order")
	}

	s.boundOrder = order.ID
	r.directory.SetAvailable(driverID, false)
	r.channels.Join(order.ID, connID)

	r.log.Info(logger.Entry{
		Action:     "driver_rejoined_order",
		Message:    fmt.Sprintf("driver rejoined order %s", order.TrackingNumber),
		ConnID:     connID,
		OrderID:    order.ID,
		Additional: map[string]any{"driver_id": driverID},
	})

	if order.LastKnownLocation != nil {
		r.emitter.EmitToChannel(order.ID, domain.EventLocationUpdate, locationData(order, order.LastKnownLocation))
	}
	return nil
}

func (r *Router) handlePing(_ context.Context, connID string, _ *session, _ json.RawMessage) error {
	r.emitTo(connID, domain.EventPong, domain.PongData{Timestamp: r.now().UTC()})
	return nil
}

// ---- helpers ----

// release освобождает водителя от заказа и шлет свежий список pending
func (r *Router) release(ctx context.Context, connID string, s *session, driverID, orderID string) {
	if err := r.drivers.SetCurrentOrder(ctx, driverID, nil); err != nil {
		r.logStoreError("driver_clear_current_order_failed", connID, orderID, err)
	}
	if err := r.drivers.SetAvailability(ctx, driverID, true); err != nil {
		r.logStoreError("driver_set_available_failed", connID, orderID, err)
	}
	r.directory.SetAvailable(driverID, true)
	s.boundOrder = ""
	r.channels.Leave(orderID, connID)

	pending, err := r.pendingSnapshot(ctx)
	if err != nil {
		r.logStoreError("pending_snapshot_failed", connID, orderID, err)
		return
	}
	r.emitTo(connID, domain.EventAvailableOrders, domain.AvailableOrdersData{Orders: pending})
}

// releaseIfLost снимает привязку, если заказ закрыли или переназначили в обход водителя
func (r *Router) releaseIfLost(ctx context.Context, connID string, s *session, driverID, orderID string, err error) {
	if !errors.Is(err, domain.ErrOrderClosed) && !errors.Is(err, domain.ErrNotBound) {
		return
	}
	r.log.Warn(logger.Entry{
		Action:     "order_lost_by_driver",
		Message:    err.Error(),
		ConnID:     connID,
		OrderID:    orderID,
		Additional: map[string]any{"driver_id": driverID},
	})
	r.release(ctx, connID, s, driverID, orderID)
}

// holdsActiveOrder сверяет currentOrder водителя с заказом в сторе.
// Закрытый, переназначенный или удаленный заказ снимается с водителя.
func (r *Router) holdsActiveOrder(ctx context.Context, connID string, driver *domain.Driver) (bool, error) {
	if driver.CurrentOrderID == nil || *driver.CurrentOrderID == "" {
		return false, nil
	}
	orderID := *driver.CurrentOrderID

	order, err := r.orders.FindByID(ctx, orderID)
	switch {
	case err == nil && order.AssignedTo(driver.ID) && !order.Status.IsTerminal():
		return true, nil
	case err != nil && !errors.Is(err, domain.ErrOrderNotFound):
		return false, fmt.Errorf("load current order: %w", err)
	}

	r.log.Info(logger.Entry{
		Action:     "stale_current_order_cleared",
		Message:    fmt.Sprintf("driver %s no longer holds order %s", driver.ID, orderID),
		ConnID:     connID,
		OrderID:    orderID,
		Additional: map[string]any{"driver_id": driver.ID},
	})
	if err := r.drivers.SetCurrentOrder(ctx, driver.ID, nil); err != nil {
		return false, fmt.Errorf("clear current order: %w", err)
	}
	return false, nil
}

// requireDriver - соединение должно быть актуальным соединением водителя
func (r *Router) requireDriver(op, connID string) (string, error) {
	id, ok := r.directory.IdentityOf(connID)
	if !ok || id.Kind != domain.PartyDriver {
		return "", domain.Unauthorized(op, "driver authentication required")
	}
	return id.ID, nil
}

// checkPrincipal - если токен предъявлен, id и роль должны совпасть. ADMIN может все.
func checkPrincipal(op string, p domain.Principal, id, role string) error {
	if p.Anonymous() || p.Role == auth.RoleAdmin {
		return nil
	}
	if p.Role != role || p.UserID != id {
		return domain.Unauthorized(op, "identity does not match token")
	}
	return nil
}

func (r *Router) pendingSnapshot(ctx context.Context) ([]domain.Order, error) {
	orders, err := r.orders.FindPending(ctx, r.now().Add(-r.cfg.PendingWindow), r.cfg.PendingLimit)
	if err != nil {
		return nil, fmt.Errorf("find pending orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// fail логирует ошибку и отправляет error только отправителю
func (r *Router) fail(connID, event string, err error) error {
	de := domain.Classify(event, err)

	entry := logger.Entry{
		Action:  "event_failed",
		Message: de.Error(),
		ConnID:  connID,
		Additional: map[string]any{
			"event": event,
			"code":  string(de.Kind),
		},
	}
	if de.Kind == domain.KindUpstream {
		entry.Error = &logger.ErrObj{Msg: de.Error()}
		r.log.Error(entry)
	} else {
		r.log.Warn(entry)
	}

	r.emitTo(connID, domain.EventError, domain.ErrorData{
		Code:    de.Kind,
		Message: de.Msg,
		Event:   event,
	})
	return de
}

func (r *Router) emitTo(connID, event string, payload any) {
	if err := r.emitter.EmitTo(connID, event, payload); err != nil {
		r.log.Debug(logger.Entry{
			Action:     "emit_failed",
			Message:    err.Error(),
			ConnID:     connID,
			Additional: map[string]any{"event": event},
		})
	}
}

func (r *Router) publish(ctx context.Context, ev out.OrderEvent) {
	if err := r.publisher.PublishOrderEvent(ctx, ev); err != nil {
		r.log.Warn(logger.Entry{
			Action:     "publish_order_event_failed",
			Message:    err.Error(),
			OrderID:    ev.OrderID,
			Additional: map[string]any{"routing_key": ev.RoutingKey},
		})
	}
}

func (r *Router) logStoreError(action, connID, orderID string, err error) {
	r.log.Error(logger.Entry{
		Action:  action,
		Message: err.Error(),
		ConnID:  connID,
		OrderID: orderID,
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
}

func locationData(order *domain.Order, loc *domain.Location) domain.LocationUpdateData {
	return domain.LocationUpdateData{
		OrderID:   order.ID,
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		Address:   loc.Address,
		Timestamp: loc.UpdatedAt,
	}
}

func driverInfo(driverID string, order *domain.Order) *domain.DriverPublicInfo {
	if order.DriverDetails == nil {
		return nil
	}
	return &domain.DriverPublicInfo{
		ID:            driverID,
		Name:          order.DriverDetails.Name,
		Phone:         order.DriverDetails.Phone,
		VehicleNumber: order.DriverDetails.VehicleNumber,
	}
}
