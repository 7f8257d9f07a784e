// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
database:
  url: postgres://localhost/gatherly_test
redis:
  url: redis://localhost:6379/0
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.JWT.AccessTokenExpire != 15*time.Minute {
		t.Errorf("access TTL = %v, want 15m", cfg.JWT.AccessTokenExpire)
	}
	if cfg.JWT.RefreshTokenExpire != 168*time.Hour {
		t.Errorf("refresh TTL = %v, want 168h", cfg.JWT.RefreshTokenExpire)
	}
	if cfg.RateLimit.AuthRequests != 5 {
		t.Errorf("auth attempts = %d, want 5", cfg.RateLimit.AuthRequests)
	}
	if cfg.RateLimit.AuthWindow != 15*time.Minute {
		t.Errorf("auth window = %v, want 15m", cfg.RateLimit.AuthWindow)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalYAML+`
server:
  port: 9090
jwt:
  access_token_expire: 5m
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.JWT.AccessTokenExpire != 5*time.Minute {
		t.Errorf("access TTL = %v, want 5m", cfg.JWT.AccessTokenExpire)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://envhost/env_db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://envhost/env_db" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing database url",
			yaml:    "redis:\n  url: redis://localhost:6379/0\n",
			wantErr: "DATABASE_URL",
		},
		{
			name:    "missing redis url",
			yaml:    "database:\n  url: postgres://localhost/db\n",
			wantErr: "REDIS_URL",
		},
		{
			name:    "access token ttl too long",
			yaml:    minimalYAML + "jwt:\n  access_token_expire: 2h\n",
			wantErr: "access_token_expire",
		},
		{
			name:    "zero auth rate limit",
			yaml:    minimalYAML + "rate_limit:\n  auth_requests: 0\n",
			wantErr: "auth rate limit",
		},
		{
			name: "wildcard origin with credentials",
			yaml: minimalYAML + `cors:
  allowed_origins: ["*"]
  allow_credentials: true
`,
			wantErr: "wildcard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.yaml))
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9000}
	if got := s.Address(); got != "127.0.0.1:9000" {
		t.Fatalf("Address() = %q", got)
	}
}
