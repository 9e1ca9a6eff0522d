// ============================================================================
// WEBSOCKET HUB - Менеджер всех WebSocket соединений
// ============================================================================
//
// 📡 НАЗНАЧЕНИЕ:
// Hub держит все живые соединения (клиенты и водители) по ID соединения и
// умеет доставить сообщение конкретному соединению. Кто есть кто (userId,
// driverId) и кто подписан на какой заказ, Hub НЕ знает - это задача
// tracking.Router поверх него.
//
// 🔐 АУТЕНТИФИКАЦИЯ:
// Токен (Authorization: Bearer или ?token=) необязателен. Если он передан и
// невалиден - 401 до upgrade. Если валиден - UserID/Role сохраняются в Client.
//
// 🏗️ ЖИЗНЕННЫЙ ЦИКЛ СОЕДИНЕНИЯ:
//
//   ServeWS
//     ├─► Upgrade HTTP → WebSocket
//     ├─► addClient + onConnect
//     ├─► go writePump()   ← client.send
//     └─► go readPump()    → messageHandler (последовательно, по порядку)
//              │
//              └─► при ошибке чтения: removeClient → onDisconnect (ровно один раз)
//
// ============================================================================

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/utils"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval - как часто сервер шлет ping
	pingInterval = 30 * time.Second

	// pongWait - без pong дольше этого соединение считается мертвым
	pongWait = 60 * time.Second

	// maxMessageSize - входящие сообщения больше 8 KB отклоняются
	maxMessageSize = 8192

	// writeWait - таймаут на одну запись
	writeWait = 10 * time.Second

	// sendBuffer - очередь исходящих сообщений на соединение
	sendBuffer = 256
)

var (
	// ErrClientNotFound - соединения уже нет
	ErrClientNotFound = errors.New("websocket client not found")

	// ErrSendBufferFull - клиент не успевает читать
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// AuthFunc проверяет токен и возвращает userID и роль
type AuthFunc func(token string) (userID, role string, err error)

// ConnectHandler вызывается после регистрации нового соединения
type ConnectHandler func(client *Client)

// MessageHandler обрабатывает одно входящее сообщение.
// Вызывается из readPump соединения: сообщения одного соединения
// обрабатываются строго по очереди.
type MessageHandler func(client *Client, messageType string, data json.RawMessage) error

// DisconnectHandler вызывается ровно один раз после закрытия соединения
type DisconnectHandler func(client *Client)

// Envelope - формат входящих и исходящих сообщений
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client - одно WebSocket соединение
type Client struct {
	ID     string // UUID соединения
	UserID string // из JWT, пусто для анонимного
	Role   string // из JWT
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	log    *logger.Logger
}

// Hub управляет всеми активными соединениями.
// Весь доступ к clients и closed защищен mu.
type Hub struct {
	clients  map[string]*Client
	closed   bool
	mu       sync.RWMutex
	pumps    sync.WaitGroup // readPump каждого клиента вместе с onDisconnect
	upgrader websocket.Upgrader
	authFunc AuthFunc
	log      *logger.Logger

	onConnect      ConnectHandler
	messageHandler MessageHandler
	onDisconnect   DisconnectHandler
}

// NewHub создает Hub. allowedOrigins пустой - разрешены все origin.
func NewHub(authFunc AuthFunc, allowedOrigins []string, log *logger.Logger) *Hub {
	h := &Hub{
		clients:  make(map[string]*Client),
		authFunc: authFunc,
		log:      log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// SetConnectHandler устанавливает обработчик подключения
func (h *Hub) SetConnectHandler(fn ConnectHandler) { h.onConnect = fn }

// SetMessageHandler устанавливает обработчик входящих сообщений
func (h *Hub) SetMessageHandler(fn MessageHandler) { h.messageHandler = fn }

// SetDisconnectHandler устанавливает обработчик отключения
func (h *Hub) SetDisconnectHandler(fn DisconnectHandler) { h.onDisconnect = fn }

// Shutdown закрывает соединения, перестает принимать новые и ждет,
// пока все обработчики отключения отработают.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closeAll()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for disconnect handlers: %w", ctx.Err())
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}

	h.log.Info(logger.Entry{
		Action:     "hub_stopped",
		Message:    "websocket hub stopped",
		Additional: map[string]any{"closed_connections": len(conns)},
	})
}

// Count - количество живых соединений
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo кладет сообщение в очередь соединения. Не блокируется.
func (h *Hub) SendTo(clientID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.send <- message:
		return nil
	default:
		h.log.Warn(logger.Entry{
			Action:  "send_buffer_full",
			Message: "dropping message for slow client",
			ConnID:  clientID,
		})
		return ErrSendBufferFull
	}
}

// SendTypedMessage отправляет {"type": msgType, "data": data}
func (h *Hub) SendTypedMessage(clientID, msgType string, data any) error {
	msg, err := json.Marshal(outgoing{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	return h.SendTo(clientID, msg)
}

// ServeWS обрабатывает HTTP запрос на WebSocket соединение
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID, role string

	token, err := auth.TokenFromRequest(r)
	switch {
	case errors.Is(err, auth.ErrNoToken):
		// анонимное соединение: трекинг без авторизации разрешен
	case err != nil:
		h.rejectAuth(w, err)
		return
	default:
		if h.authFunc == nil {
			h.rejectAuth(w, errors.New("token authentication not configured"))
			return
		}
		userID, role, err = h.authFunc(token)
		if err != nil {
			h.rejectAuth(w, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	client := &Client{
		ID:     utils.NewUUID(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
		log:    h.log,
	}

	if !h.addClient(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	if h.onConnect != nil {
		h.onConnect(client)
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) rejectAuth(w http.ResponseWriter, err error) {
	h.log.Warn(logger.Entry{
		Action:  "ws_auth_invalid_token",
		Message: err.Error(),
		Error:   &logger.ErrObj{Msg: err.Error()},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"invalid token"}`))
}

// addClient возвращает false после остановки Hub
func (h *Hub) addClient(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c.ID] = c
	h.pumps.Add(1)
	h.mu.Unlock()

	h.log.Info(logger.Entry{
		Action:  "client_registered",
		Message: "websocket connected",
		ConnID:  c.ID,
		Additional: map[string]any{
			"user_id": c.UserID,
			"role":    c.Role,
		},
	})
	return true
}

// removeClient удаляет клиента и закрывает send; после этого writePump завершится
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return false
	}
	delete(h.clients, c.ID)
	close(c.send)
	return true
}

// readPump читает сообщения клиента до ошибки, затем выполняет очистку
func (c *Client) readPump() {
	defer c.hub.pumps.Done()
	defer func() {
		if c.hub.removeClient(c) {
			c.log.Info(logger.Entry{Action: "client_unregistered", Message: "websocket disconnected", ConnID: c.ID})
			if c.hub.onDisconnect != nil {
				c.hub.onDisconnect(c)
			}
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn(logger.Entry{
					Action:  "ws_read_error",
					Message: err.Error(),
					ConnID:  c.ID,
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			c.log.Warn(logger.Entry{
				Action:     "ws_parse_message_error",
				Message:    "malformed envelope",
				ConnID:     c.ID,
				Additional: map[string]any{"raw": string(message)},
			})
			_ = c.hub.SendTypedMessage(c.ID, "error", map[string]string{
				"code":    "validation_error",
				"message": `message must be {"type": string, "data": object}`,
			})
			continue
		}

		if c.hub.messageHandler == nil {
			continue
		}
		if err := c.hub.messageHandler(c, env.Type, env.Data); err != nil {
			c.log.Debug(logger.Entry{
				Action:     "ws_handle_message_error",
				Message:    err.Error(),
				ConnID:     c.ID,
				Additional: map[string]any{"msg_type": env.Type},
			})
		}
	}
}

// writePump отправляет сообщения клиенту и шлет ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
