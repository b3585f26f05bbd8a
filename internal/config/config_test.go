package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseConfig(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "hr"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "hr")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := baseConfig("production")
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_RejectsRefreshShorterThanAccess(t *testing.T) {
	c := baseConfig("local")
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected ttl ordering error")
	}
}

func TestValidate_RejectsNegativeAuditCeiling(t *testing.T) {
	c := baseConfig("local")
	c.Audit.MaxPayloadBytes = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative payload ceiling")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Audit.MaxPayloadBytes != DefaultAuditMaxPayloadBytes {
		t.Fatalf("expected default payload ceiling, got %d", c.Audit.MaxPayloadBytes)
	}
	if c.Audit.SnapshotTimeout != DefaultAuditSnapshotTimeout {
		t.Fatalf("expected default snapshot timeout, got %s", c.Audit.SnapshotTimeout)
	}
	if !c.Audit.DashboardFallback {
		t.Fatalf("expected dashboard fallback enabled by default")
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %s", c.Auth.AccessTokenTTL)
	}
}

func TestLoad_AuditOverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUDIT_MAX_PAYLOAD_BYTES", "2048")
	t.Setenv("AUDIT_SNAPSHOT_TIMEOUT", "500ms")
	t.Setenv("AUDIT_DASHBOARD_FALLBACK", "off")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Audit.MaxPayloadBytes != 2048 {
		t.Fatalf("expected 2048, got %d", c.Audit.MaxPayloadBytes)
	}
	if c.Audit.SnapshotTimeout != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", c.Audit.SnapshotTimeout)
	}
	if c.Audit.DashboardFallback {
		t.Fatalf("expected dashboard fallback disabled")
	}
}

func TestLoad_InvalidIntegerReported(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUDIT_RECENT_LIMIT", "ten")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_FileValuesUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("app_env: local\napp_port: 9000\ndb_host: filehost\ndb_port: 5432\ndb_user: postgres\ndb_name: hr\nredis_host: localhost\nredis_port: 6379\njwt_secret: s\naudit_recent_limit: 25\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_HOST", "envhost")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DB.Host != "envhost" {
		t.Fatalf("expected env to win, got %q", c.DB.Host)
	}
	if c.App.Port != 9000 {
		t.Fatalf("expected port from file, got %d", c.App.Port)
	}
	if c.Audit.RecentLimit != 25 {
		t.Fatalf("expected recent limit from file, got %d", c.Audit.RecentLimit)
	}
}

func TestLoad_RedisCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_PASSWORD", " s3cret ")
	t.Setenv("REDIS_DB", "2")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Redis.Password != " s3cret " || c.Redis.DB != 2 {
		t.Fatalf("unexpected redis config: %+v", c.Redis)
	}
}

func TestValidate_RejectsNegativeRedisDB(t *testing.T) {
	c := baseConfig("local")
	c.Redis.DB = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative REDIS_DB")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10,")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.App.TrustedProxies) != 2 || c.App.TrustedProxies[1] != "192.168.1.10" {
		t.Fatalf("unexpected trusted proxies: %v", c.App.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid proxy entry")
	}
}
