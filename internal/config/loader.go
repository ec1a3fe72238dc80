package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CUSTADMIN_"

// Load собирает конфигурацию из всех источников.
// args это аргументы командной строки без имени программы.
func Load(args []string) (*Config, error) {
	return load(args, io.Discard)
}

// LoadWithUsage как Load, но печатает справку и ошибки флагов в out
func LoadWithUsage(args []string, out io.Writer) (*Config, error) {
	return load(args, out)
}

func load(args []string, out io.Writer) (*Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("custadmin-server", flag.ContinueOnError)
	fs.SetOutput(out)

	configPath := fs.String("config", os.Getenv(envPrefix+"CONFIG"), "path to YAML config file")
	envFile := fs.String("env-file", ".env", "path to .env file")
	addr := fs.String("addr", "", "listen address, e.g. :8080")
	driver := fs.String("db-driver", "", "database driver: sqlite or postgres")
	dsn := fs.String("db-dsn", "", "database DSN")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "log format: json or text")
	dev := fs.Bool("dev", false, "development mode, relaxes secret requirements")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *showVersion {
		cfg.ShowVersion = true
		return &cfg, nil
	}

	if *configPath != "" {
		if err := loadYAMLFile(*configPath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", *configPath, err)
		}
	}

	if err := loadEnvFile(*envFile, set["env-file"]); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	// флаги имеют наивысший приоритет, но только явно заданные
	if set["addr"] {
		cfg.Server.Addr = *addr
	}
	if set["db-driver"] {
		cfg.Database.Driver = *driver
	}
	if set["db-dsn"] {
		cfg.Database.DSN = *dsn
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-format"] {
		cfg.Log.Format = *logFormat
	}
	if set["dev"] {
		cfg.Dev = *dev
	}

	if cfg.Dev && cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
		cfg.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadYAMLFile читает YAML файл в cfg.
// Поля, которых нет в файле, сохраняют текущие значения.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadEnvFile загружает .env, не перетирая окружение.
// Отсутствие файла ошибка, только если путь задан явно.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides переносит переменные окружения в поля конфига.
// Совместимые имена применяются первыми, CUSTADMIN_* их перекрывают.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = DriverPostgres
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := os.Getenv("OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
	if v := os.Getenv("OAUTH_REDIRECT_URL"); v != "" {
		cfg.OAuth.RedirectURL = v
	}

	var errs []error

	setString(&cfg.Server.Addr, "ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DB_DSN")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.Issuer, "JWT_ISSUER")
	setString(&cfg.OAuth.ClientID, "OAUTH_CLIENT_ID")
	setString(&cfg.OAuth.ClientSecret, "OAUTH_CLIENT_SECRET")
	setString(&cfg.OAuth.RedirectURL, "OAUTH_REDIRECT_URL")

	if v := os.Getenv(envPrefix + "CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv(envPrefix + "TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitList(v)
	}

	errs = append(errs,
		setDuration(&cfg.Server.ReadTimeout, "READ_TIMEOUT"),
		setDuration(&cfg.Server.WriteTimeout, "WRITE_TIMEOUT"),
		setDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT"),
		setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL"),
		setInt(&cfg.Auth.BcryptCost, "BCRYPT_COST"),
		setBool(&cfg.Dev, "DEV"),
	)

	return errors.Join(errs...)
}

func setString(dst *string, name string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, name string) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, name string) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, MinSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate dev secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
