package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// Config holds the application configuration
type Config struct {
	Port    string
	Storage string

	DatabaseURL string

	CookieSecret        string
	CookieSecure        bool
	CookieSameSite      http.SameSite
	StrictSessionChoice bool

	MailDriver string
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	MailFrom   string

	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
	NotifyTimeout time.Duration
}

// configFile mirrors the optional YAML file. Every field is optional; env vars override it.
type configFile struct {
	Server struct {
		Port      string   `yaml:"port"`
		Storage   string   `yaml:"storage"`
		CORS      []string `yaml:"cors_origins"`
		LogLevel  string   `yaml:"log_level"`
		LogFormat string   `yaml:"log_format"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Session struct {
		Secure       *bool  `yaml:"secure"`
		SameSite     string `yaml:"same_site"`
		StrictChoice *bool  `yaml:"strict_choice"`
	} `yaml:"session"`
	Mail struct {
		Driver         string `yaml:"driver"`
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		User           string `yaml:"user"`
		From           string `yaml:"from"`
		NotifyTimeoutS int    `yaml:"notify_timeout_seconds"`
	} `yaml:"mail"`
}

// Load resolves configuration in priority order: defaults -> YAML file at path -> environment.
// A missing file is ignored; secrets (COOKIE_SECRET, SMTP_PASS) are only read from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		Storage:        StoragePostgres,
		CookieSameSite: http.SameSiteLaxMode,
		MailDriver:     MailDriverSMTP,
		SMTPPort:       587,
		LogLevel:       "info",
		LogFormat:      "text",
		NotifyTimeout:  30 * time.Second,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.Storage = strings.ToLower(envOr("STORAGE", cfg.Storage))
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.CookieSecret = os.Getenv("COOKIE_SECRET")
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	if v := os.Getenv("COOKIE_SAMESITE"); v != "" {
		cfg.CookieSameSite = parseSameSite(v)
	}
	cfg.StrictSessionChoice = envBool("STRICT_SESSION_CHOICE", cfg.StrictSessionChoice)
	cfg.MailDriver = strings.ToLower(envOr("MAIL_DRIVER", cfg.MailDriver))
	cfg.SMTPHost = envOr("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = envOr("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.MailFrom = envOr("FROM_EMAIL", cfg.MailFrom)
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.NotifyTimeout = time.Duration(envInt("NOTIFY_TIMEOUT_SECONDS", int(cfg.NotifyTimeout.Seconds()))) * time.Second

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Port != "" {
		c.Port = f.Server.Port
	}
	if f.Server.Storage != "" {
		c.Storage = strings.ToLower(f.Server.Storage)
	}
	if len(f.Server.CORS) > 0 {
		c.CORSOrigins = f.Server.CORS
	}
	if f.Server.LogLevel != "" {
		c.LogLevel = f.Server.LogLevel
	}
	if f.Server.LogFormat != "" {
		c.LogFormat = f.Server.LogFormat
	}
	if f.Database.URL != "" {
		c.DatabaseURL = f.Database.URL
	}
	if f.Session.Secure != nil {
		c.CookieSecure = *f.Session.Secure
	}
	if f.Session.SameSite != "" {
		c.CookieSameSite = parseSameSite(f.Session.SameSite)
	}
	if f.Session.StrictChoice != nil {
		c.StrictSessionChoice = *f.Session.StrictChoice
	}
	if f.Mail.Driver != "" {
		c.MailDriver = strings.ToLower(f.Mail.Driver)
	}
	if f.Mail.Host != "" {
		c.SMTPHost = f.Mail.Host
	}
	if f.Mail.Port > 0 {
		c.SMTPPort = f.Mail.Port
	}
	if f.Mail.User != "" {
		c.SMTPUser = f.Mail.User
	}
	if f.Mail.From != "" {
		c.MailFrom = f.Mail.From
	}
	if f.Mail.NotifyTimeoutS > 0 {
		c.NotifyTimeout = time.Duration(f.Mail.NotifyTimeoutS) * time.Second
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
		logDatabaseTarget(c.DatabaseURL)
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}

	if c.CookieSecret == "" {
		return fmt.Errorf("COOKIE_SECRET environment variable is required")
	}

	switch c.MailDriver {
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST environment variable is required for the smtp mail driver")
		}
		if c.MailFrom == "" {
			return fmt.Errorf("FROM_EMAIL or SMTP_USER environment variable is required for the smtp mail driver")
		}
	case MailDriverLog:
	default:
		return fmt.Errorf("MAIL_DRIVER must be %q or %q, got %q", MailDriverSMTP, MailDriverLog, c.MailDriver)
	}

	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// logDatabaseTarget logs connection details with the password left out
func logDatabaseTarget(databaseURL string) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	user := u.User.Username()
	if user == "" {
		user = "(none)"
	}
	slog.Info("database target", "host", host, "port", port, "db", strings.TrimPrefix(u.Path, "/"), "user", user)
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
