// Package config собирает настройки сервера из значений по умолчанию,
// JSON файла, переменных окружения и флагов командной строки
// (в порядке возрастания приоритета).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iudanet/legacyvault/internal/server/inheritance"
)

// Config - настройки сервера
type Config struct {
	SMTP            inheritance.SMTPConfig
	Addr            string
	DBPath          string
	JWTSecret       string
	LogLevel        string
	AdminUsernames  []string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PollInterval    time.Duration
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	BackupTokens    int
	RateLimit       int
	TrustProxy      bool
	ShowVersion     bool
}

// LoadDefaults заполняет Config значениями для локального запуска.
// JWTSecret намеренно пуст: без него сервер не стартует.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DBPath = "legacyvault.db"
	c.LogLevel = "info"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 30 * 24 * time.Hour
	c.PollInterval = inheritance.DefaultPollInterval
	c.RateLimit = 10
	c.RateWindow = time.Minute
	c.ShutdownTimeout = 10 * time.Second
	c.BackupTokens = 3
}

// Load собирает Config: defaults -> JSON (-c/-config или CONFIG) -> env -> флаги
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path := configPath(args, getenv)
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет итоговую конфигурацию
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.BackupTokens < 0 || c.BackupTokens > 10 {
		errs = append(errs, fmt.Errorf("backup tokens must be in 0..10, got %d", c.BackupTokens))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must be non-negative, got %d", c.RateLimit))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseLevel переводит имя уровня логирования в slog.Level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// splitList разбирает список через запятую, пропуская пустые элементы
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
