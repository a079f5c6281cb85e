// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Library       LibraryConfig       `toml:"library"`
	Mangal        MangalConfig        `toml:"mangal"`
	Queues        QueuesConfig        `toml:"queues"`
	Notifications NotificationsConfig `toml:"notifications"`
	Integrations  IntegrationsConfig  `toml:"integrations"`
	Events        EventsConfig        `toml:"events"`
}

type ServerConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // text, json or pretty
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LibraryConfig struct {
	Root     string        `toml:"root"`
	Watch    bool          `toml:"watch"`
	Debounce time.Duration `toml:"debounce"`
}

type MangalConfig struct {
	Binary  string        `toml:"binary"`
	Timeout time.Duration `toml:"timeout"`
}

// QueueConfig tunes one queue and its worker pool.
type QueueConfig struct {
	Concurrency  int           `toml:"concurrency"`
	Attempts     int           `toml:"attempts"`
	Backoff      time.Duration `toml:"backoff"`
	PollInterval time.Duration `toml:"poll_interval"`
	RateLimit    int           `toml:"rate_limit"` // jobs per rate_window, 0 for none
	RateWindow   time.Duration `toml:"rate_window"`
}

type QueuesConfig struct {
	Check       QueueConfig `toml:"check"`
	Download    QueueConfig `toml:"download"`
	OutOfSync   QueueConfig `toml:"outofsync"`
	Notify      QueueConfig `toml:"notify"`
	Integration QueueConfig `toml:"integration"`
	Metadata    QueueConfig `toml:"metadata"`
}

type NotificationsConfig struct {
	Telegram *TelegramConfig `toml:"telegram"`
	Webhook  *WebhookConfig  `toml:"webhook"`
}

type TelegramConfig struct {
	URL    string `toml:"url"` // API base, defaults to api.telegram.org
	Token  string `toml:"token"`
	ChatID string `toml:"chat_id"`
}

type WebhookConfig struct {
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
}

type IntegrationsConfig struct {
	Komga  *ServerLogin `toml:"komga"`
	Kavita *ServerLogin `toml:"kavita"`
}

// ServerLogin locates a library server.
type ServerLogin struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type EventsConfig struct {
	Retention    time.Duration `toml:"retention"`     // 0 keeps events forever
	JobRetention time.Duration `toml:"job_retention"` // finished jobs, 0 keeps them
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, applying
// defaults but skipping validation and unresolved variable checks.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/kaizoku.db"
	}
	if c.Library.Debounce == 0 {
		c.Library.Debounce = 2 * time.Second
	}
	if c.Mangal.Binary == "" {
		c.Mangal.Binary = "mangal"
	}
	if c.Mangal.Timeout == 0 {
		c.Mangal.Timeout = 10 * time.Minute
	}
	if c.Events.Retention == 0 {
		c.Events.Retention = 30 * 24 * time.Hour
	}
	if c.Events.JobRetention == 0 {
		c.Events.JobRetention = 7 * 24 * time.Hour
	}

	c.Queues.Check.defaults(QueueConfig{Concurrency: 5, Attempts: 20, Backoff: 2 * time.Minute})
	c.Queues.Download.defaults(QueueConfig{Concurrency: 5, Attempts: 20, Backoff: 2 * time.Minute})
	c.Queues.OutOfSync.defaults(QueueConfig{Concurrency: 1, Attempts: 20, Backoff: 2 * time.Minute})
	c.Queues.Notify.defaults(QueueConfig{Concurrency: 30, Attempts: 20, Backoff: 2 * time.Minute,
		RateLimit: 30, RateWindow: 2 * time.Second})
	c.Queues.Integration.defaults(QueueConfig{Concurrency: 30, Attempts: 20, Backoff: 2 * time.Minute,
		RateLimit: 30, RateWindow: 2 * time.Second})
	c.Queues.Metadata.defaults(QueueConfig{Concurrency: 5, Attempts: 10, Backoff: 2 * time.Minute})
}

func (q *QueueConfig) defaults(d QueueConfig) {
	if q.Concurrency == 0 {
		q.Concurrency = d.Concurrency
	}
	if q.Attempts == 0 {
		q.Attempts = d.Attempts
	}
	if q.Backoff == 0 {
		q.Backoff = d.Backoff
	}
	if q.PollInterval == 0 {
		q.PollInterval = time.Second
	}
	if q.RateLimit == 0 {
		q.RateLimit = d.RateLimit
	}
	if q.RateWindow == 0 {
		q.RateWindow = d.RateWindow
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} with its environment value. A variable
// that is unset, with no default, is left in place and reported as missing.
// With ${VAR:-default} an unset or empty variable takes the default.
// Comment lines are left alone.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines[i] = envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
			m := envVarPattern.FindStringSubmatch(match)
			name := m[1]

			value, ok := os.LookupEnv(name)
			if strings.Contains(match, ":-") {
				if !ok || value == "" {
					return m[2]
				}
				return value
			}
			if !ok {
				if !seen[name] {
					seen[name] = true
					missing = append(missing, name)
				}
				return match
			}
			return value
		})
	}
	return strings.Join(lines, "\n"), missing
}
