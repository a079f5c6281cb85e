package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "pretty": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if !validLogFormats[c.Server.LogFormat] {
		errs = append(errs, fmt.Sprintf("server.log_format: must be one of text, json, pretty; got %q", c.Server.LogFormat))
	}

	if c.Library.Root == "" {
		errs = append(errs, "library.root: required")
	} else if info, err := os.Stat(c.Library.Root); err != nil {
		errs = append(errs, fmt.Sprintf("library.root: %v", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Sprintf("library.root: %q is not a directory", c.Library.Root))
	}

	if c.Mangal.Timeout < 0 {
		errs = append(errs, "mangal.timeout: must not be negative")
	}

	for name, q := range map[string]QueueConfig{
		"check":       c.Queues.Check,
		"download":    c.Queues.Download,
		"outofsync":   c.Queues.OutOfSync,
		"notify":      c.Queues.Notify,
		"integration": c.Queues.Integration,
		"metadata":    c.Queues.Metadata,
	} {
		errs = append(errs, q.validate("queues."+name)...)
	}

	if t := c.Notifications.Telegram; t != nil {
		if t.Token == "" {
			errs = append(errs, "notifications.telegram.token: required when telegram is configured")
		}
		if t.ChatID == "" {
			errs = append(errs, "notifications.telegram.chat_id: required when telegram is configured")
		}
	}
	if w := c.Notifications.Webhook; w != nil {
		if err := checkURL(w.URL); err != "" {
			errs = append(errs, "notifications.webhook.url: "+err)
		}
	}

	for name, s := range map[string]*ServerLogin{"komga": c.Integrations.Komga, "kavita": c.Integrations.Kavita} {
		if s == nil {
			continue
		}
		if s.URL == "" {
			errs = append(errs, fmt.Sprintf("integrations.%s.url: required when %s is configured", name, name))
		}
		if s.Username == "" || s.Password == "" {
			errs = append(errs, fmt.Sprintf("integrations.%s: username and password required", name))
		}
	}

	if c.Events.Retention < 0 || c.Events.JobRetention < 0 {
		errs = append(errs, "events: retention must not be negative")
	}

	return errs
}

func (q QueueConfig) validate(prefix string) []string {
	var errs []string
	if q.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("%s.concurrency: must be at least 1, got %d", prefix, q.Concurrency))
	}
	if q.Attempts < 1 {
		errs = append(errs, fmt.Sprintf("%s.attempts: must be at least 1, got %d", prefix, q.Attempts))
	}
	if q.Backoff < 0 {
		errs = append(errs, prefix+".backoff: must not be negative")
	}
	if q.RateLimit < 0 {
		errs = append(errs, prefix+".rate_limit: must not be negative")
	}
	if q.RateLimit > 0 && q.RateWindow <= 0 {
		errs = append(errs, prefix+".rate_window: required with rate_limit")
	}
	return errs
}

func checkURL(raw string) string {
	if raw == "" {
		return "required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err.Error()
	}
	if !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
		return fmt.Sprintf("must be an http(s) URL, got %q", raw)
	}
	return ""
}
