package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/iudanet/legacyvault/internal/server/inheritance"
)

// duration принимает как строку "15m", так и число наносекунд
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// jsonConfig - DTO файла конфигурации. Отсутствующие поля не меняют значения.
type jsonConfig struct {
	SMTP            *inheritance.SMTPConfig `json:"smtp"`
	Addr            *string                 `json:"addr"`
	DBPath          *string                 `json:"db_path"`
	JWTSecret       *string                 `json:"jwt_secret"`
	LogLevel        *string                 `json:"log_level"`
	AccessTokenTTL  *duration               `json:"access_token_ttl"`
	RefreshTokenTTL *duration               `json:"refresh_token_ttl"`
	PollInterval    *duration               `json:"poll_interval"`
	RateWindow      *duration               `json:"rate_window"`
	ShutdownTimeout *duration               `json:"shutdown_timeout"`
	BackupTokens    *int                    `json:"backup_tokens"`
	RateLimit       *int                    `json:"rate_limit"`
	TrustProxy      *bool                   `json:"trust_proxy"`
	AdminUsernames  []string                `json:"admin_usernames"`
}

// parseJSON накладывает значения из JSON файла на cfg
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setIf(&cfg.Addr, c.Addr)
	setIf(&cfg.DBPath, c.DBPath)
	setIf(&cfg.JWTSecret, c.JWTSecret)
	setIf(&cfg.LogLevel, c.LogLevel)
	setIf(&cfg.BackupTokens, c.BackupTokens)
	setIf(&cfg.RateLimit, c.RateLimit)
	setIf(&cfg.TrustProxy, c.TrustProxy)
	setIf(&cfg.SMTP, c.SMTP)
	setDuration(&cfg.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&cfg.RefreshTokenTTL, c.RefreshTokenTTL)
	setDuration(&cfg.PollInterval, c.PollInterval)
	setDuration(&cfg.RateWindow, c.RateWindow)
	setDuration(&cfg.ShutdownTimeout, c.ShutdownTimeout)
	if c.AdminUsernames != nil {
		cfg.AdminUsernames = c.AdminUsernames
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *duration) {
	if src != nil {
		*dst = src.Duration
	}
}
