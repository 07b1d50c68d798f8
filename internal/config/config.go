// Package config reads process settings from the environment, optionally
// seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether every SMTP setting is present.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Port != "" && s.Username != "" && s.Password != "" && s.From != ""
}

type Config struct {
	Port string

	StoreDriver      string
	DatabaseURL      string
	MongoURI         string
	MongoDatabase    string
	ConnectAttempts  int
	ConnectBaseDelay time.Duration
	ConnectTimeout   time.Duration
	SocketTimeout    time.Duration
	HealthCacheTTL   time.Duration
	ReconnectEvery   time.Duration
	FallbackWrites   bool
	ReconcileEvery   time.Duration

	SessionSecret string
	JWTSecret     string
	TokenTTL      time.Duration
	// DevSecret is set when neither SESSION_SECRET nor JWT_SECRET was given
	// and the built-in development secret is in use.
	DevSecret bool

	GoogleClientID     string
	GoogleClientSecret string
	SiteURL            string

	LLMBaseURL string
	LLMToken   string
	LLMModel   string

	RedisURL           string
	RateLimitPerMinute int
	CandidateCacheTTL  time.Duration
	IPFSGateway        string

	SMTP SMTP

	AdminEmail    string
	AdminPassword string
}

// devSecret signs cookies and tokens when no secret is configured. It is
// public, so release builds refuse to run with it.
const devSecret = "secret_key_change_me"

// ErrDevSecret is returned by CheckSecrets in release mode.
var ErrDevSecret = errors.New("JWT_SECRET or SESSION_SECRET must be set in release mode")

// CheckSecrets rejects the development secret when release is true.
func (c *Config) CheckSecrets(release bool) error {
	if release && c.DevSecret {
		return ErrDevSecret
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// HasPrimaryStore reports whether a live store connection string is set
// for the selected driver.
func (c *Config) HasPrimaryStore() bool {
	if c.StoreDriver == DriverMongo {
		return c.MongoURI != ""
	}
	return c.DatabaseURL != ""
}

// Load reads envFile (when present) and then the process environment.
// A missing env file only logs a warning.
func Load(envFile string, log *zap.Logger) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Warn("no env file loaded, using process environment", zap.String("path", envFile))
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Malformed numbers,
// booleans and durations are reported together.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	c := &Config{
		Port:               p.str("PORT", "8080"),
		StoreDriver:        strings.ToLower(p.str("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:        p.str("DATABASE_URL", ""),
		MongoURI:           p.str("MONGODB_URI", ""),
		MongoDatabase:      p.str("MONGODB_DATABASE", "dotslash"),
		ConnectAttempts:    p.num("CONNECT_ATTEMPTS", 3),
		ConnectBaseDelay:   p.duration("CONNECT_BASE_DELAY", time.Second),
		ConnectTimeout:     p.duration("CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:      p.duration("SOCKET_TIMEOUT", 45*time.Second),
		HealthCacheTTL:     p.duration("HEALTH_CACHE_TTL", 2*time.Second),
		ReconnectEvery:     p.duration("RECONNECT_INTERVAL", 30*time.Second),
		FallbackWrites:     p.flag("FALLBACK_WRITES", false),
		ReconcileEvery:     p.duration("RECONCILE_INTERVAL", 10*time.Minute),
		SessionSecret:      p.str("SESSION_SECRET", ""),
		JWTSecret:          p.str("JWT_SECRET", ""),
		TokenTTL:           p.duration("TOKEN_TTL", 30*24*time.Hour),
		GoogleClientID:     p.str("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: p.str("GOOGLE_CLIENT_SECRET", ""),
		SiteURL:            strings.TrimSuffix(p.str("SITE_URL", "http://localhost:8080"), "/"),
		LLMBaseURL:         strings.TrimSuffix(p.str("LLM_BASE_URL", ""), "/"),
		LLMToken:           p.str("LLM_TOKEN", ""),
		LLMModel:           p.str("LLM_MODEL", "gpt-4o-mini"),
		RedisURL:           p.str("REDIS_URL", ""),
		RateLimitPerMinute: p.num("RATE_LIMIT_PER_MINUTE", 30),
		CandidateCacheTTL:  p.duration("CANDIDATE_CACHE_TTL", 30*time.Second),
		IPFSGateway:        strings.TrimSuffix(p.str("IPFS_GATEWAY", "https://gateway.pinata.cloud"), "/"),
		SMTP: SMTP{
			Host:     p.str("SMTP_HOST", ""),
			Port:     p.str("SMTP_PORT", ""),
			Username: p.str("SMTP_USER", ""),
			Password: p.str("SMTP_PASS", ""),
			From:     p.str("SMTP_FROM", ""),
		},
		AdminEmail:    strings.ToLower(p.str("ADMIN_EMAIL", "")),
		AdminPassword: p.str("ADMIN_PASSWORD", ""),
	}
	if c.SessionSecret == "" && c.JWTSecret == "" {
		c.SessionSecret, c.DevSecret = devSecret, true
	}
	if c.SessionSecret == "" {
		c.SessionSecret = c.JWTSecret
	}
	if c.JWTSecret == "" {
		c.JWTSecret = c.SessionSecret
	}
	if c.StoreDriver != DriverPostgres && c.StoreDriver != DriverMongo {
		p.errs = append(p.errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if c.ConnectAttempts < 1 {
		p.errs = append(p.errs, errors.New("CONNECT_ATTEMPTS: must be at least 1"))
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return c, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) num(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) flag(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
