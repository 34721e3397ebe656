package config

import (
	"fmt"
	"strconv"
	"time"
)

// Переменные окружения сервера
const (
	EnvConfig          = "CONFIG"
	EnvAddr            = "LEGACYVAULT_ADDR"
	EnvDBPath          = "LEGACYVAULT_DB"
	EnvJWTSecret       = "LEGACYVAULT_JWT_SECRET"
	EnvLogLevel        = "LEGACYVAULT_LOG_LEVEL"
	EnvAccessTokenTTL  = "LEGACYVAULT_ACCESS_TTL"
	EnvRefreshTokenTTL = "LEGACYVAULT_REFRESH_TTL"
	EnvPollInterval    = "LEGACYVAULT_POLL_INTERVAL"
	EnvBackupTokens    = "LEGACYVAULT_BACKUP_TOKENS"
	EnvRateLimit       = "LEGACYVAULT_RATE_LIMIT"
	EnvTrustProxy      = "LEGACYVAULT_TRUST_PROXY"
	EnvAdmins          = "LEGACYVAULT_ADMINS"
	EnvSMTPHost        = "LEGACYVAULT_SMTP_HOST"
	EnvSMTPPort        = "LEGACYVAULT_SMTP_PORT"
	EnvSMTPUser        = "LEGACYVAULT_SMTP_USER"
	EnvSMTPPass        = "LEGACYVAULT_SMTP_PASS"
	EnvSMTPFrom        = "LEGACYVAULT_SMTP_FROM"
	EnvSMTPSecurity    = "LEGACYVAULT_SMTP_SECURITY"
)

// parseEnv накладывает непустые переменные окружения на cfg
func parseEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		EnvAddr:         &cfg.Addr,
		EnvDBPath:       &cfg.DBPath,
		EnvJWTSecret:    &cfg.JWTSecret,
		EnvLogLevel:     &cfg.LogLevel,
		EnvSMTPHost:     &cfg.SMTP.Host,
		EnvSMTPPort:     &cfg.SMTP.Port,
		EnvSMTPUser:     &cfg.SMTP.User,
		EnvSMTPPass:     &cfg.SMTP.Pass,
		EnvSMTPFrom:     &cfg.SMTP.From,
		EnvSMTPSecurity: &cfg.SMTP.Security,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		EnvAccessTokenTTL:  &cfg.AccessTokenTTL,
		EnvRefreshTokenTTL: &cfg.RefreshTokenTTL,
		EnvPollInterval:    &cfg.PollInterval,
	}
	for key, dst := range durations {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		EnvBackupTokens: &cfg.BackupTokens,
		EnvRateLimit:    &cfg.RateLimit,
	}
	for key, dst := range ints {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := getenv(EnvTrustProxy); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTrustProxy, err)
		}
		cfg.TrustProxy = b
	}
	if v := getenv(EnvAdmins); v != "" {
		cfg.AdminUsernames = splitList(v)
	}
	return nil
}
