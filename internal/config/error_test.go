package config

import (
	"strings"
	"testing"
)

func TestConfigError_Error_Empty(t *testing.T) {
	e := &ConfigError{Path: "/etc/kaizoku/config.toml"}
	if got := e.Error(); got != "" {
		t.Errorf("expected empty string for no errors, got %q", got)
	}
	if e.HasErrors() {
		t.Error("expected HasErrors false")
	}
}

func TestConfigError_Error_MissingVars(t *testing.T) {
	e := &ConfigError{
		Path:    "/etc/kaizoku/config.toml",
		Missing: []string{"TELEGRAM_TOKEN", "KOMGA_PASSWORD"},
	}
	got := e.Error()
	if !strings.Contains(got, "missing environment variables") {
		t.Errorf("expected 'missing environment variables', got %q", got)
	}
	if !strings.Contains(got, "TELEGRAM_TOKEN") || !strings.Contains(got, "KOMGA_PASSWORD") {
		t.Errorf("expected var names in error, got %q", got)
	}
	if !strings.HasPrefix(got, "/etc/kaizoku/config.toml:") {
		t.Errorf("expected path prefix, got %q", got)
	}
}

func TestConfigError_Error_Validation(t *testing.T) {
	e := &ConfigError{Errors: []string{"library.root: required", "queues.check.concurrency: must be at least 1, got 0"}}
	got := e.Error()
	if !strings.Contains(got, "validation failed:") {
		t.Errorf("expected 'validation failed:', got %q", got)
	}
	if !strings.Contains(got, "  - library.root: required") {
		t.Errorf("expected bullet for library.root, got %q", got)
	}
	if !e.HasErrors() {
		t.Error("expected HasErrors true")
	}
}
