package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// configPath ищет путь к JSON файлу во флагах -c/-config, затем в CONFIG
func configPath(args []string, getenv func(string) string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || (name != "c" && name != "config") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv(EnvConfig)
}

// parseFlags накладывает флаги командной строки на cfg.
// Значения по умолчанию флагов - текущие значения cfg, поэтому
// незаданный флаг ничего не меняет.
//
//	-a  адрес HTTP сервера
//	-d  путь к SQLite базе
//	-s  секрет подписи JWT
//	-l  уровень логирования
//	-access-ttl, -refresh-ttl  время жизни токенов
//	-poll  период опроса наследования
//	-backup-tokens  число резервных токенов
//	-rate  лимит попыток входа и разблокировки в окно
//	-trust-proxy  учитывать X-Forwarded-For
//	-admins  username администраторов через запятую
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("legacyvault-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configFile string
	fs.StringVar(&configFile, "c", "", "path to JSON config")
	fs.StringVar(&configFile, "config", "", "path to JSON config")

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT signing secret")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token TTL")
	fs.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token TTL")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "inheritance poll interval")
	fs.IntVar(&cfg.BackupTokens, "backup-tokens", cfg.BackupTokens, "backup tokens per new vault")
	fs.IntVar(&cfg.RateLimit, "rate", cfg.RateLimit, "login/unlock attempts per window and IP")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "trust X-Forwarded-For and X-Real-IP")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version information")
	admins := fs.String("admins", strings.Join(cfg.AdminUsernames, ","), "comma separated admin usernames")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	cfg.AdminUsernames = splitList(*admins)
	return nil
}
