package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/utils"
)

type contextKey string

const (
	// Контекстные ключи для хранения данных пользователя
	ContextKeyUserID    contextKey = "user_id"
	ContextKeyUserRole  contextKey = "user_role"
	ContextKeyRequestID contextKey = "request_id"
)

// JWTMiddleware пропускает только запросы с валидным токеном одной из ролей
func JWTMiddleware(jwtService *auth.JWTService, log *logger.Logger, roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "missing or malformed token")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				log.Warn(logger.Entry{
					Action:    "jwt_validation_failed",
					Message:   err.Error(),
					RequestID: RequestIDFrom(r.Context()),
				})
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if _, ok := allowed[claims.Role]; len(allowed) > 0 && !ok {
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyUserRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// RequestIDFrom возвращает id запроса из контекста
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// statusRecorder запоминает код ответа и умеет Hijack для WebSocket upgrade
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// RequestLogger проставляет X-Request-ID и пишет строку лога на каждый запрос
func RequestLogger(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = utils.NewUUID()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ContextKeyRequestID, reqID)))

		log.Info(logger.Entry{
			Action:    "http_request",
			Message:   r.Method + " " + r.URL.Path,
			RequestID: reqID,
			Additional: map[string]any{
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			},
		})
	})
}
