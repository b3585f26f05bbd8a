package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration required by the API process.
// Values come from env; an optional YAML file (CONFIG_FILE) supplies fallbacks.
// Env always wins over the file. No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Audit AuditConfig
}

type AppConfig struct {
	Env  string
	Port int
	// TrustedProxies are the IPs/CIDRs whose X-Forwarded-For is honored when
	// resolving the client IP. Empty trusts no proxy.
	TrustedProxies []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuditConfig tunes the entity-change audit engine.
// Zero values are replaced with defaults in Validate.
type AuditConfig struct {
	// MaxPayloadBytes is the serialized size ceiling for old/new value snapshots.
	MaxPayloadBytes int
	// MaxBodyBytes bounds how much of a request body is buffered for auditing.
	MaxBodyBytes int64

	SnapshotTimeout time.Duration
	PersistTimeout  time.Duration

	RecentLimit       int
	StatsWindow       time.Duration
	CacheTTL          time.Duration
	DashboardFallback bool
}

const (
	DefaultAuditMaxPayloadBytes = 5000
	DefaultAuditMaxBodyBytes    = 1 << 20
	DefaultAuditSnapshotTimeout = 2 * time.Second
	DefaultAuditPersistTimeout  = 5 * time.Second
	DefaultAuditRecentLimit     = 10
	DefaultAuditStatsWindow     = 30 * 24 * time.Hour
	DefaultAuditCacheTTL        = time.Minute
)

// source resolves a key from env first, then from the optional config file.
// File keys are the lower-cased env names (APP_PORT -> app_port).
type source struct {
	k *koanf.Koanf
}

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if s.k == nil {
		return ""
	}
	return strings.TrimSpace(s.k.String(strings.ToLower(key)))
}

// raw is like get but does not trim; used for secrets.
func (s source) raw(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if s.k == nil {
		return ""
	}
	return s.k.String(strings.ToLower(key))
}

func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		src.k = k
	}
	return load(src)
}

func load(src source) (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = src.get("APP_ENV")
	{
		n, err := src.mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.TrustedProxies = src.list("TRUSTED_PROXIES")

	c.DB.Host = src.get("DB_HOST")
	{
		n, err := src.mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = src.get("DB_USER")
	c.DB.Password = src.raw("DB_PASSWORD")
	c.DB.Name = src.get("DB_NAME")
	c.DB.SSLMode = src.get("DB_SSLMODE")

	c.Redis.Host = src.get("REDIS_HOST")
	{
		n, err := src.mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = src.raw("REDIS_PASSWORD")
	{
		n, err := src.optionalInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = src.raw("JWT_SECRET")
	c.Auth.JWTIssuer = src.get("JWT_ISSUER")
	c.Auth.JWTAudience = src.get("JWT_AUDIENCE")
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = src.optionalDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = src.optionalDuration("JWT_REFRESH_TTL")

	{
		n, err := src.optionalInt("AUDIT_MAX_PAYLOAD_BYTES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Audit.MaxPayloadBytes = n
	}
	{
		n, err := src.optionalInt("AUDIT_MAX_BODY_BYTES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Audit.MaxBodyBytes = int64(n)
	}
	{
		n, err := src.optionalInt("AUDIT_RECENT_LIMIT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Audit.RecentLimit = n
	}
	c.Audit.SnapshotTimeout = src.optionalDuration("AUDIT_SNAPSHOT_TIMEOUT")
	c.Audit.PersistTimeout = src.optionalDuration("AUDIT_PERSIST_TIMEOUT")
	c.Audit.StatsWindow = src.optionalDuration("AUDIT_STATS_WINDOW")
	c.Audit.CacheTTL = src.optionalDuration("AUDIT_CACHE_TTL")
	c.Audit.DashboardFallback = src.optionalBool("AUDIT_DASHBOARD_FALLBACK", true)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

// Validate reports configuration errors. It does not mutate the receiver;
// defaults are applied by Load once validation passes.
func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	for _, p := range c.App.TrustedProxies {
		if !isIPOrCIDR(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
		}
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" && c.IsProduction() {
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must not be negative, got %d", c.Redis.DB))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL > 0 && c.Auth.RefreshTokenTTL > 0 && c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Audit.MaxPayloadBytes < 0 {
		errs = append(errs, fmt.Errorf("AUDIT_MAX_PAYLOAD_BYTES must not be negative, got %d", c.Audit.MaxPayloadBytes))
	}
	if c.Audit.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("AUDIT_MAX_BODY_BYTES must not be negative, got %d", c.Audit.MaxBodyBytes))
	}
	if c.Audit.RecentLimit < 0 || c.Audit.RecentLimit > 100 {
		errs = append(errs, fmt.Errorf("AUDIT_RECENT_LIMIT must be between 0 and 100, got %d", c.Audit.RecentLimit))
	}

	return joinErrors(errs)
}

func (c *Config) applyDefaults() {
	if c.DB.SSLMode == "" {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}

	a := &c.Audit
	if a.MaxPayloadBytes == 0 {
		a.MaxPayloadBytes = DefaultAuditMaxPayloadBytes
	}
	if a.MaxBodyBytes == 0 {
		a.MaxBodyBytes = DefaultAuditMaxBodyBytes
	}
	if a.SnapshotTimeout <= 0 {
		a.SnapshotTimeout = DefaultAuditSnapshotTimeout
	}
	if a.PersistTimeout <= 0 {
		a.PersistTimeout = DefaultAuditPersistTimeout
	}
	if a.RecentLimit == 0 {
		a.RecentLimit = DefaultAuditRecentLimit
	}
	if a.StatsWindow <= 0 {
		a.StatsWindow = DefaultAuditStatsWindow
	}
	if a.CacheTTL <= 0 {
		a.CacheTTL = DefaultAuditCacheTTL
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// list splits a comma-separated value, dropping empty entries.
func (s source) list(key string) []string {
	var out []string
	for _, v := range strings.Split(s.get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s source) mustInt(key string) (int, error) {
	v := s.get(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func (s source) optionalInt(key string) (int, error) {
	v := s.get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func (s source) optionalDuration(key string) time.Duration {
	v := s.get(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func (s source) optionalBool(key string, def bool) bool {
	switch strings.ToLower(s.get(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isIPOrCIDR(v string) bool {
	if net.ParseIP(v) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(v)
	return err == nil
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
