package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort        = 8080
	DefaultSQLitePath      = "database.db"
	DefaultInterval        = time.Minute
	DefaultCycleTimeout    = 50 * time.Second
	DefaultMaxConcurrency  = 8
	DefaultTouchInterval   = 5 * time.Minute
	DefaultLivenessTimeout = 5 * time.Second
	DefaultTLSTimeout      = 5 * time.Second
	DefaultWhoisTimeout    = 5 * time.Second
	DefaultDNSTimeout      = 3 * time.Second
	DefaultIPInfoURL       = "http://ip-api.com/json/%s"
	DefaultSMTPPort        = 465
	DefaultNATSSubject     = "uptimeguard.alerts"
	DefaultCronHeader      = "x-cron-secret"
	DefaultAPIKeyHeader    = "x-api-key"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Probes        ProbesConfig        `yaml:"probes"`
	Notifications NotificationsConfig `yaml:"notifications"`
	API           APIConfig           `yaml:"api"`
}

type ServerConfig struct {
	// HTTPPort serves the administration API, the cron trigger and /metrics.
	HTTPPort int `yaml:"http_port"`
}

type StorageConfig struct {
	// Driver is one of: sqlite | postgres.
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the Postgres connection string.
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the Postgres connection string resolved from the environment.
func (s StorageConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

type MonitorConfig struct {
	// Interval between scheduled cycles.
	Interval time.Duration `yaml:"interval"`

	// CycleTimeout caps the wall time of one cycle, probes included.
	CycleTimeout time.Duration `yaml:"cycle_timeout"`

	// MaxConcurrency bounds the number of targets probed at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxTargetsPerMinute throttles pipeline starts; 0 disables the limiter.
	MaxTargetsPerMinute int `yaml:"max_targets_per_minute"`

	// TouchInterval is how stale the persisted last_checked may get before a
	// cycle writes it even though nothing else changed.
	TouchInterval time.Duration `yaml:"touch_interval"`
}

type ProbesConfig struct {
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
	TLSTimeout      time.Duration `yaml:"tls_timeout"`
	WhoisTimeout    time.Duration `yaml:"whois_timeout"`
	DNSTimeout      time.Duration `yaml:"dns_timeout"`

	// IPInfoURL is a printf pattern taking the IP address; the response must be
	// JSON with an "isp" or "org" field.
	IPInfoURL string `yaml:"ipinfo_url"`
}

type NotificationsConfig struct {
	// DashboardURL is linked from status alert emails.
	DashboardURL string         `yaml:"dashboard_url"`
	Mail         MailConfig     `yaml:"mail"`
	Slack        SlackConfig    `yaml:"slack"`
	Telegram     TelegramConfig `yaml:"telegram"`
	NATS         NATSConfig     `yaml:"nats"`
}

type MailConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Username    string   `yaml:"username"`
	PasswordEnv string   `yaml:"password_env"`
	From        string   `yaml:"from"`
	To          []string `yaml:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != "" && len(m.To) > 0
}

// Password returns the SMTP password resolved from the environment.
func (m MailConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

type SlackConfig struct {
	WebhookURLEnv string `yaml:"webhook_url_env"`
}

// WebhookURL returns the Slack webhook resolved from the environment.
func (s SlackConfig) WebhookURL() string {
	if s.WebhookURLEnv == "" {
		return ""
	}
	return os.Getenv(s.WebhookURLEnv)
}

type TelegramConfig struct {
	TokenEnv string `yaml:"token_env"`
	ChatID   string `yaml:"chat_id"`
}

// Token returns the bot token resolved from the environment.
func (t TelegramConfig) Token() string {
	if t.TokenEnv == "" {
		return ""
	}
	return os.Getenv(t.TokenEnv)
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type APIConfig struct {
	// KeyEnv names the environment variable holding the admin API key.
	// Admin routes are open when it resolves to an empty string.
	KeyEnv string `yaml:"key_env"`

	// CronSecretEnv names the environment variable holding the shared secret
	// an external pinger sends to trigger a cycle.
	CronSecretEnv string `yaml:"cron_secret_env"`
}

// Key returns the admin API key resolved from the environment.
func (a APIConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// CronSecret returns the trigger secret resolved from the environment.
func (a APIConfig) CronSecret() string {
	if a.CronSecretEnv == "" {
		return ""
	}
	return os.Getenv(a.CronSecretEnv)
}

// Load reads and parses the YAML config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config holding only default values. It is what the
// server runs with when no config file is present.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: DefaultHTTPPort},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   DefaultSQLitePath,
			DSNEnv: "DATABASE_URL",
		},
		Monitor: MonitorConfig{
			Interval:       DefaultInterval,
			CycleTimeout:   DefaultCycleTimeout,
			MaxConcurrency: DefaultMaxConcurrency,
			TouchInterval:  DefaultTouchInterval,
		},
		Probes: ProbesConfig{
			LivenessTimeout: DefaultLivenessTimeout,
			TLSTimeout:      DefaultTLSTimeout,
			WhoisTimeout:    DefaultWhoisTimeout,
			DNSTimeout:      DefaultDNSTimeout,
			IPInfoURL:       DefaultIPInfoURL,
		},
		Notifications: NotificationsConfig{
			Mail: MailConfig{
				Port:        DefaultSMTPPort,
				PasswordEnv: "EMAIL_PASS",
			},
			NATS: NATSConfig{Subject: DefaultNATSSubject},
		},
		API: APIConfig{
			CronSecretEnv: "CRON_SECRET",
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Storage.DSNEnv == "" {
			return fmt.Errorf("storage.dsn_env is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q unknown: want sqlite|postgres", cfg.Storage.Driver)
	}

	if cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if cfg.Monitor.CycleTimeout <= 0 {
		return fmt.Errorf("monitor.cycle_timeout must be positive")
	}
	if cfg.Monitor.MaxConcurrency <= 0 {
		return fmt.Errorf("monitor.max_concurrency must be positive")
	}
	if cfg.Monitor.MaxTargetsPerMinute < 0 {
		return fmt.Errorf("monitor.max_targets_per_minute must not be negative")
	}
	if cfg.Monitor.TouchInterval < 0 {
		return fmt.Errorf("monitor.touch_interval must not be negative")
	}

	for name, d := range map[string]time.Duration{
		"liveness_timeout": cfg.Probes.LivenessTimeout,
		"tls_timeout":      cfg.Probes.TLSTimeout,
		"whois_timeout":    cfg.Probes.WhoisTimeout,
		"dns_timeout":      cfg.Probes.DNSTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("probes.%s must be positive", name)
		}
	}
	if cfg.Probes.IPInfoURL != "" && !strings.Contains(cfg.Probes.IPInfoURL, "%s") {
		return fmt.Errorf("probes.ipinfo_url must contain %%s for the IP address")
	}

	if m := cfg.Notifications.Mail; m.Host != "" && (m.Port <= 0 || m.Port > 65535) {
		return fmt.Errorf("notifications.mail.port %d is out of range [1, 65535]", m.Port)
	}
	if n := cfg.Notifications.NATS; n.URL != "" && n.Subject == "" {
		return fmt.Errorf("notifications.nats.subject is required when url is set")
	}
	return nil
}
