package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config - полная конфигурация сервиса трекинга
type Config struct {
	Database DBConfig
	RabbitMQ MQConfig
	Service  ServiceConfig
	JWT      JWTConfig
	Tracking TrackingConfig
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	// MaxConns - потолок пула; каждое соединение реле держит не больше одного запроса
	MaxConns int `yaml:"max_conns"`
}

type MQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type ServiceConfig struct {
	TrackingServicePort int `yaml:"tracking_service"`
	// AllowedOrigins - пустой список разрешает любой origin для /ws
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
}

// TrackingConfig - параметры реле трекинга
type TrackingConfig struct {
	// PendingWindow - насколько давно созданные pending заказы показываются водителю
	PendingWindow time.Duration
	// PendingLimit - максимум заказов в снапшоте
	PendingLimit int
	// RequireDriverToken - водитель обязан предъявить JWT с ролью DRIVER
	RequireDriverToken bool
}

// trackingFile - tracking.yaml, окно задается в часах
type trackingFile struct {
	PendingWindowHours int  `yaml:"pending_window_hours"`
	PendingLimit       int  `yaml:"pending_limit"`
	RequireDriverToken bool `yaml:"require_driver_token"`
}

// jwtFile - jwt.yaml с секцией jwt
type jwtFile struct {
	JWT JWTConfig `yaml:"jwt"`
}

func defaults() Config {
	return Config{
		Database: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "sheduled_user",
			Password: "sheduled_pass",
			Database: "sheduled_db",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		RabbitMQ: MQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
		},
		Service: ServiceConfig{TrackingServicePort: 5000},
		JWT:     JWTConfig{Secret: "dev_secret", ExpiryMinutes: 60},
	}
}

// Load - файлы из CONFIG_DIR (по умолчанию ./config), поверх них ENV.
// Отсутствующий файл не ошибка. Неизвестный ключ или значение не того типа - ошибка.
func Load() (Config, error) {
	dir := getEnv("CONFIG_DIR", "./config")
	cfg := defaults()

	tr := trackingFile{PendingWindowHours: 24, PendingLimit: 20}
	jwt := jwtFile{JWT: cfg.JWT}

	files := []struct {
		name string
		dst  any
	}{
		{"db.yaml", &cfg.Database},
		{"mq.yaml", &cfg.RabbitMQ},
		{"service.yaml", &cfg.Service},
		{"jwt.yaml", &jwt},
		{"tracking.yaml", &tr},
	}
	for _, f := range files {
		if err := loadFile(filepath.Join(dir, f.name), f.dst); err != nil {
			return Config{}, err
		}
	}

	env := &envReader{}

	env.str(&cfg.Database.Host, "DB_HOST")
	env.integer(&cfg.Database.Port, "DB_PORT")
	env.str(&cfg.Database.User, "DB_USER")
	env.str(&cfg.Database.Password, "DB_PASSWORD")
	env.str(&cfg.Database.Database, "DB_NAME")
	env.str(&cfg.Database.SSLMode, "DB_SSLMODE")
	env.integer(&cfg.Database.MaxConns, "DB_MAX_CONNS")

	env.boolean(&cfg.RabbitMQ.Enabled, "RABBITMQ_ENABLED")
	env.str(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	env.integer(&cfg.RabbitMQ.Port, "RABBITMQ_PORT")
	env.str(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	env.str(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	env.str(&cfg.RabbitMQ.VHost, "RABBITMQ_VHOST")

	env.integer(&cfg.Service.TrackingServicePort, "TRACKING_SERVICE_PORT")
	env.list(&cfg.Service.AllowedOrigins, "ALLOWED_ORIGINS")

	cfg.JWT = jwt.JWT
	env.str(&cfg.JWT.Secret, "JWT_SECRET")
	env.integer(&cfg.JWT.ExpiryMinutes, "JWT_EXPIRY_MINUTES")

	env.integer(&tr.PendingWindowHours, "TRACKING_PENDING_WINDOW_HOURS")
	env.integer(&tr.PendingLimit, "TRACKING_PENDING_LIMIT")
	env.boolean(&tr.RequireDriverToken, "TRACKING_REQUIRE_DRIVER_TOKEN")
	cfg.Tracking = TrackingConfig{
		PendingWindow:      time.Duration(tr.PendingWindowHours) * time.Hour,
		PendingLimit:       tr.PendingLimit,
		RequireDriverToken: tr.RequireDriverToken,
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile декодирует yaml поверх уже заполненных значений
func loadFile(path string, dst any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// envReader применяет переменные окружения и копит ошибки разбора
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (e *envReader) str(dst *string, key string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(dst *int, key string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) boolean(dst *bool, key string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return
	}
	*dst = b
}

// list - значения через запятую
func (e *envReader) list(dst *[]string, key string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
