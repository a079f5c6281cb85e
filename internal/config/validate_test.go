package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{Library: LibraryConfig{Root: t.TempDir()}}
	cfg.applyDefaults()
	return cfg
}

func hasError(errs []string, prefix string) bool {
	for _, e := range errs {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, validConfig(t).Validate())
}

func TestValidate_LibraryRoot(t *testing.T) {
	cfg := validConfig(t)
	cfg.Library.Root = ""
	assert.True(t, hasError(cfg.Validate(), "library.root: required"))

	cfg.Library.Root = filepath.Join(t.TempDir(), "missing")
	assert.True(t, hasError(cfg.Validate(), "library.root:"))

	file := filepath.Join(t.TempDir(), "file")
	assert.NoError(t, os.WriteFile(file, nil, 0644))
	cfg.Library.Root = file
	assert.True(t, hasError(cfg.Validate(), "library.root:"))
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.LogLevel = "verbose"
	cfg.Server.LogFormat = "pretty"
	errs := cfg.Validate()
	assert.True(t, hasError(errs, "server.log_level"))
	assert.False(t, hasError(errs, "server.log_format"))
}

func TestValidate_Queues(t *testing.T) {
	cfg := validConfig(t)
	cfg.Queues.Download.Concurrency = 0
	cfg.Queues.Check.Attempts = -1
	cfg.Queues.Notify.RateWindow = 0

	errs := cfg.Validate()
	assert.True(t, hasError(errs, "queues.download.concurrency"))
	assert.True(t, hasError(errs, "queues.check.attempts"))
	assert.True(t, hasError(errs, "queues.notify.rate_window"))
}

func TestValidate_Notifications(t *testing.T) {
	cfg := validConfig(t)
	cfg.Notifications.Telegram = &TelegramConfig{}
	cfg.Notifications.Webhook = &WebhookConfig{URL: "ftp://example.com"}

	errs := cfg.Validate()
	assert.True(t, hasError(errs, "notifications.telegram.token"))
	assert.True(t, hasError(errs, "notifications.telegram.chat_id"))
	assert.True(t, hasError(errs, "notifications.webhook.url"))

	cfg.Notifications.Telegram = &TelegramConfig{Token: "t", ChatID: "1"}
	cfg.Notifications.Webhook = &WebhookConfig{URL: "https://example.com/hook"}
	assert.Empty(t, cfg.Validate())
}

func TestValidate_Integrations(t *testing.T) {
	cfg := validConfig(t)
	cfg.Integrations.Komga = &ServerLogin{URL: "http://komga:25600"}
	cfg.Integrations.Kavita = &ServerLogin{Username: "a", Password: "b"}

	errs := cfg.Validate()
	assert.True(t, hasError(errs, "integrations.komga: username and password required"))
	assert.True(t, hasError(errs, "integrations.kavita.url"))
}
