package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Level: DEBUG, INFO, WARN, ERROR
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ErrObj - блок ошибки в ERROR логах
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Entry - одна строка лога
type Entry struct {
	Timestamp  string         `json:"timestamp"`               // ISO 8601 (UTC)
	Level      string         `json:"level"`                   // INFO | DEBUG | WARN | ERROR
	Service    string         `json:"service"`                 // e.g., tracking-service
	Action     string         `json:"action"`                  // event name, e.g., order_accepted
	Message    string         `json:"message"`                 // human-readable
	Hostname   string         `json:"hostname"`                // container/host
	RequestID  string         `json:"request_id,omitempty"`    // http correlation id
	ConnID     string         `json:"connection_id,omitempty"` // websocket connection
	OrderID    string         `json:"order_id,omitempty"`      // when applicable
	Error      *ErrObj        `json:"error,omitempty"`         // only for ERROR
	Additional map[string]any `json:"additional,omitempty"`    // optional extras
}

// reserved - ключи Entry, которые нельзя перезаписать из Additional
var reserved = map[string]struct{}{
	"timestamp": {}, "level": {}, "service": {}, "action": {}, "message": {},
	"hostname": {}, "request_id": {}, "connection_id": {}, "order_id": {},
}

type Logger struct {
	service  string
	minLevel Level
	hostname string
	pretty   bool

	outWriter io.Writer
	errWriter io.Writer
	mu        sync.Mutex

	// файлы для dev режима
	closers []io.Closer
}

// NewLogger пишет в stdout/stderr (рекомендуется для prod)
func NewLogger(service string) *Logger {
	return newLogger(service, LevelInfo, os.Stdout, os.Stderr)
}

// NewLoggerWithWriter пишет все уровни в один writer. Используется в тестах.
func NewLoggerWithWriter(service string, minLevel Level, w io.Writer) *Logger {
	return newLogger(service, minLevel, w, w)
}

// NewLoggerWithOptions поддерживает minLevel и fileDir (dev).
// Если fileDir != "", логи дублируются в info.log и error.log.
func NewLoggerWithOptions(service, minLevelStr, fileDir string) (*Logger, error) {
	min := ParseLevel(minLevelStr)
	if fileDir == "" {
		return newLogger(service, min, os.Stdout, os.Stderr), nil
	}

	if err := os.MkdirAll(fileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	infoF, err := os.OpenFile(filepath.Join(fileDir, "info.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open info log: %w", err)
	}
	errF, err := os.OpenFile(filepath.Join(fileDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		_ = infoF.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}

	l := newLogger(service, min, io.MultiWriter(os.Stdout, infoF), io.MultiWriter(os.Stderr, errF))
	l.closers = []io.Closer{infoF, errF}
	return l, nil
}

func newLogger(service string, min Level, out, errOut io.Writer) *Logger {
	h, _ := os.Hostname()
	return &Logger{
		service:   service,
		minLevel:  min,
		hostname:  h,
		pretty:    strings.ToLower(os.Getenv("LOG_PRETTY")) == "true",
		outWriter: out,
		errWriter: errOut,
	}
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.closers {
		_ = c.Close()
	}
	l.closers = nil
}

func (l *Logger) Debug(e Entry) { l.log(LevelDebug, e, nil) }
func (l *Logger) Info(e Entry)  { l.log(LevelInfo, e, nil) }
func (l *Logger) Warn(e Entry)  { l.log(LevelWarn, e, nil) }
func (l *Logger) Error(e Entry) { l.log(LevelError, e, nil) }
func (l *Logger) Fatal(e Entry) {
	// stack для fatal добавляем всегда
	if e.Error == nil {
		e.Error = &ErrObj{Msg: e.Message, Stack: string(debug.Stack())}
	} else if e.Error.Stack == "" {
		e.Error.Stack = string(debug.Stack())
	}
	l.log(LevelError, e, nil)
	os.Exit(1)
}

// WithFields возвращает логгер, который добавляет base во все записи.
func (l *Logger) WithFields(base map[string]any) *ContextLogger {
	return &ContextLogger{parent: l, base: base}
}

// WithConnection прикрепляет connection_id и order_id.
func (l *Logger) WithConnection(connID, orderID string) *ContextLogger {
	base := map[string]any{}
	if connID != "" {
		base["connection_id"] = connID
	}
	if orderID != "" {
		base["order_id"] = orderID
	}
	return &ContextLogger{parent: l, base: base}
}

type ContextLogger struct {
	parent *Logger
	base   map[string]any
}

func (c *ContextLogger) Debug(e Entry) { c.parent.log(LevelDebug, e, c.base) }
func (c *ContextLogger) Info(e Entry)  { c.parent.log(LevelInfo, e, c.base) }
func (c *ContextLogger) Warn(e Entry)  { c.parent.log(LevelWarn, e, c.base) }
func (c *ContextLogger) Error(e Entry) { c.parent.log(LevelError, e, c.base) }
func (c *ContextLogger) Fatal(e Entry) { c.parent.Fatal(mergeEntry(e, c.base)) }

func (l *Logger) log(level Level, e Entry, base map[string]any) {
	if level < l.minLevel {
		return
	}

	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Level == "" {
		e.Level = level.String()
	}
	if e.Service == "" {
		e.Service = l.service
	}
	if e.Hostname == "" {
		e.Hostname = l.hostname
	}
	e = mergeEntry(e, base)

	if e.Additional == nil {
		e.Additional = make(map[string]any)
	}
	if _, ok := e.Additional["caller"]; !ok {
		if pc, file, line, ok := runtime.Caller(3); ok {
			e.Additional["caller"] = fmt.Sprintf("%s:%d (%s)", file, line, funcName(runtime.FuncForPC(pc)))
		}
	}

	var b []byte
	var err error
	if l.pretty {
		b, err = json.MarshalIndent(e, "", "  ")
	} else {
		b, err = json.Marshal(e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		fmt.Fprintf(l.errWriter, `{"timestamp":"%s","level":"ERROR","service":"%s","message":"failed to marshal log: %v"}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), l.service, err)
		return
	}

	writer := l.outWriter
	if level == LevelError {
		writer = l.errWriter
	}
	_, _ = writer.Write(append(b, '\n'))
}

func funcName(fn *runtime.Func) string {
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func mergeEntry(e Entry, base map[string]any) Entry {
	if base == nil {
		return e
	}
	if e.Additional == nil {
		e.Additional = map[string]any{}
	}
	for k, v := range base {
		if _, skip := reserved[k]; skip {
			continue
		}
		e.Additional[k] = v
	}
	if e.RequestID == "" {
		e.RequestID = toString(base["request_id"])
	}
	if e.ConnID == "" {
		e.ConnID = toString(base["connection_id"])
	}
	if e.OrderID == "" {
		e.OrderID = toString(base["order_id"])
	}
	return e
}
