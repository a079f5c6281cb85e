package config

import "strings"

// ConfigError collects every problem found while loading a config file so
// they can be reported together.
type ConfigError struct {
	Path    string
	Missing []string // ${VAR} references with no value and no default
	Errors  []string // "section.key: problem"
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path + ":\n")
	}
	if len(e.Missing) > 0 {
		b.WriteString("missing environment variables: " + strings.Join(e.Missing, ", ") + "\n")
	}
	if len(e.Errors) > 0 {
		b.WriteString("validation failed:\n")
		for _, msg := range e.Errors {
			b.WriteString("  - " + msg + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HasErrors reports whether anything was collected.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
