package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/server/inheritance"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	expected := Config{
		Addr:            ":8080",
		DBPath:          "legacyvault.db",
		LogLevel:        "info",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		PollInterval:    inheritance.DefaultPollInterval,
		RateLimit:       10,
		RateWindow:      time.Minute,
		ShutdownTimeout: 10 * time.Second,
		BackupTokens:    3,
	}
	assert.Empty(t, cmp.Diff(expected, c))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempConfig(t, `{
		"addr": ":9000",
		"db_path": "file.db",
		"jwt_secret": "json-secret",
		"access_token_ttl": "5m",
		"refresh_token_ttl": 3600000000000,
		"backup_tokens": 2,
		"smtp": {"host": "smtp.example.com", "from": "vault@example.com"}
	}`)

	env := envFrom(map[string]string{
		EnvConfig:       path,
		EnvJWTSecret:    "env-secret",
		EnvRateLimit:    "20",
		EnvAdmins:       "alice, bob,",
		EnvSMTPSecurity: "ssl",
	})

	cfg, err := Load([]string{"-a", ":7000", "-poll", "30s"}, env)
	require.NoError(t, err)

	expected := &Config{
		SMTP: inheritance.SMTPConfig{
			Host:     "smtp.example.com",
			From:     "vault@example.com",
			Security: "ssl",
		},
		Addr:            ":7000",
		DBPath:          "file.db",
		JWTSecret:       "env-secret",
		LogLevel:        "info",
		AdminUsernames:  []string{"alice", "bob"},
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: time.Hour,
		PollInterval:    30 * time.Second,
		RateWindow:      time.Minute,
		ShutdownTimeout: 10 * time.Second,
		BackupTokens:    2,
		RateLimit:       20,
	}
	assert.Empty(t, cmp.Diff(expected, cfg))
}

func TestLoad_ConfigFlagOverridesEnvPath(t *testing.T) {
	envPath := writeTempConfig(t, `{"jwt_secret": "from-env-file"}`)
	flagPath := writeTempConfig(t, `{"jwt_secret": "from-flag-file", "trust_proxy": true}`)

	for _, args := range [][]string{
		{"-c", flagPath},
		{"-config=" + flagPath},
		{"--config", flagPath},
	} {
		cfg, err := Load(args, envFrom(map[string]string{EnvConfig: envPath}))
		require.NoError(t, err, args)
		assert.Equal(t, "from-flag-file", cfg.JWTSecret)
		assert.True(t, cfg.TrustProxy)
	}
}

func TestLoad_Errors(t *testing.T) {
	badJSON := writeTempConfig(t, `{"addr": `)
	badDuration := writeTempConfig(t, `{"jwt_secret": "x", "poll_interval": "soon"}`)

	tests := []struct {
		env     map[string]string
		name    string
		wantErr string
		args    []string
	}{
		{name: "missing secret", wantErr: "jwt secret is required"},
		{name: "missing file", args: []string{"-c", "/nonexistent/config.json"}, wantErr: "failed to read config file"},
		{name: "malformed json", args: []string{"-c", badJSON}, wantErr: "failed to parse config file"},
		{name: "bad json duration", args: []string{"-c", badDuration}, wantErr: "invalid duration"},
		{name: "bad env int", env: map[string]string{EnvJWTSecret: "x", EnvBackupTokens: "many"}, wantErr: EnvBackupTokens},
		{name: "bad env duration", env: map[string]string{EnvJWTSecret: "x", EnvAccessTokenTTL: "1 hour"}, wantErr: EnvAccessTokenTTL},
		{name: "bad env bool", env: map[string]string{EnvJWTSecret: "x", EnvTrustProxy: "maybe"}, wantErr: EnvTrustProxy},
		{name: "unknown flag", args: []string{"-s", "x", "-unknown"}, wantErr: "failed to parse flags"},
		{name: "too many backups", args: []string{"-s", "x", "-backup-tokens", "11"}, wantErr: "backup tokens must be in 0..10"},
		{name: "bad log level", args: []string{"-s", "x", "-l", "loud"}, wantErr: "unknown log level"},
		{name: "negative ttl", args: []string{"-s", "x", "-access-ttl", "-1m"}, wantErr: "token TTLs must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, envFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_VersionSkipsValidation(t *testing.T) {
	cfg, err := Load([]string{"-version"}, envFrom(nil))
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
	assert.Nil(t, splitList(""))
}
