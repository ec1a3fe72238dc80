// Package config загружает конфигурацию сервера.
//
// Порядок источников, каждый следующий перекрывает предыдущий:
//  1. Значения по умолчанию
//  2. YAML файл (-config или CUSTADMIN_CONFIG)
//  3. .env файл (не перекрывает уже заданные переменные окружения)
//  4. Переменные окружения CUSTADMIN_* и совместимые JWT_SECRET, DATABASE_URL, PORT
//  5. Флаги командной строки
//  6. Валидация
package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"
)

// Поддерживаемые драйверы БД
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinSecretLength минимальная длина JWT секрета вне dev режима
const MinSecretLength = 32

// Config вся конфигурация сервера
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	// Dev ослабляет требования к секрету, не использовать в продакшене
	Dev bool `yaml:"dev"`

	// GeneratedSecret выставляется, если dev режим сгенерировал случайный секрет
	GeneratedSecret bool `yaml:"-"`
	// ShowVersion выставляется флагом -version, остальное тогда не загружается
	ShowVersion bool `yaml:"-"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default: ":8080"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
	CORSOrigins     []string      `yaml:"cors_origins"`     // default: ["*"]

	// TrustedProxies перечисляет IP или CIDR прокси, которым доверяем X-Forwarded-For.
	// Пустой список: адрес клиента берется только из соединения.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// LogConfig настройки логгера
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DatabaseConfig настройки базы данных
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// AuthConfig настройки токенов и паролей
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`      // default: "custadmin"
	TokenTTL   time.Duration `yaml:"token_ttl"`   // default: 24h
	BcryptCost int           `yaml:"bcrypt_cost"` // default: 10
}

// OAuthConfig необязательные настройки OAuth провайдера.
// Пустой ClientID отключает OAuth.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// Enabled сообщает, заданы ли учетные данные OAuth клиента
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != ""
}

// Defaults возвращает встроенную конфигурацию
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "custadmin.db",
		},
		Auth: AuthConfig{
			Issuer:     "custadmin",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		OAuth: OAuthConfig{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
			Scopes:   []string{"openid", "email", "profile"},
		},
	}
}

// SlogLevel переводит имя уровня в slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ProxyPrefixes разбирает TrustedProxies; одиночный IP становится префиксом из одного адреса
func (s ServerConfig) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
