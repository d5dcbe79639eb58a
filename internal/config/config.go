package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env values
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	APIBaseURL     string
	BackendTimeout time.Duration

	SiteAddr  string
	AdminAddr string

	CSRFKey        []byte
	SessionKey     []byte
	TrustedOrigins []string

	DBPath string

	ResendKey string
	MailFrom  string
	ReplyTo   string

	LogLevel      slog.Level
	SlowRequestMS int
}

// Production reports whether the server runs with secure cookies and required keys.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// Client is the subset of configuration needed to talk to the backend,
// shared by the server and the admin CLI.
type Client struct {
	APIBaseURL     string
	BackendTimeout time.Duration

	// AdminEmail and AdminPassword are used by the CLI only.
	AdminEmail    string
	AdminPassword string
}

// ClientFromEnv reads the backend URL, timeout and CLI credentials.
func ClientFromEnv() (Client, error) {
	var c Client
	c.APIBaseURL = strings.TrimRight(envOr("SKYKEEN_API_BASE_URL", "http://localhost:8000"), "/")
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return c, fmt.Errorf("SKYKEEN_API_BASE_URL is not an absolute URL: %q", c.APIBaseURL)
	}

	c.BackendTimeout = 15 * time.Second
	if raw := env("SKYKEEN_BACKEND_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return c, fmt.Errorf("SKYKEEN_BACKEND_TIMEOUT is invalid: %q", raw)
		}
		c.BackendTimeout = d
	}

	c.AdminEmail = env("SKYKEEN_ADMIN_EMAIL")
	c.AdminPassword = os.Getenv("SKYKEEN_ADMIN_PASSWORD")
	return c, nil
}

// FromEnv reads SKYKEEN_* variables. Keys are hex-encoded 32-byte values;
// outside production a missing key is replaced by a random one.
func FromEnv() (Config, error) {
	var c Config
	c.Env = envOr("SKYKEEN_ENV", EnvDevelopment)

	client, err := ClientFromEnv()
	if err != nil {
		return c, err
	}
	c.APIBaseURL = client.APIBaseURL
	c.BackendTimeout = client.BackendTimeout

	c.SiteAddr = envOr("SKYKEEN_SITE_ADDR", ":8080")
	c.AdminAddr = envOr("SKYKEEN_ADMIN_ADDR", ":8081")
	if c.SiteAddr == c.AdminAddr {
		return c, fmt.Errorf("SKYKEEN_SITE_ADDR and SKYKEEN_ADMIN_ADDR must differ")
	}

	if c.CSRFKey, err = key("SKYKEEN_CSRF_KEY", c.Production()); err != nil {
		return c, err
	}
	if c.SessionKey, err = key("SKYKEEN_SESSION_KEY", c.Production()); err != nil {
		return c, err
	}
	c.TrustedOrigins = splitList(env("SKYKEEN_TRUSTED_ORIGINS"))

	c.DBPath = envOr("SKYKEEN_DB_PATH", "skykeen.db")

	c.ResendKey = env("SKYKEEN_RESEND_KEY")
	c.MailFrom = envOr("SKYKEEN_MAIL_FROM", "SkyKeen Events <noreply@skykeen.example>")
	c.ReplyTo = env("SKYKEEN_REPLY_TO")

	if err := c.LogLevel.UnmarshalText([]byte(envOr("SKYKEEN_LOG_LEVEL", "info"))); err != nil {
		return c, fmt.Errorf("SKYKEEN_LOG_LEVEL: %w", err)
	}

	c.SlowRequestMS = 500
	if raw := env("SKYKEEN_SLOW_REQUEST_MS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c, fmt.Errorf("SKYKEEN_SLOW_REQUEST_MS is invalid: %q", raw)
		}
		c.SlowRequestMS = n
	}

	return c, nil
}

func key(name string, required bool) ([]byte, error) {
	raw := env(name)
	if raw == "" {
		if required {
			return nil, fmt.Errorf("%s is empty", name)
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}
		return b, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%s must be 64 hex characters", name)
	}
	return b, nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func envOr(name, fallback string) string {
	if v := env(name); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
