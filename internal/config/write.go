package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

//go:embed default_config.toml
var defaultConfig string

// WriteDefault writes the example config to the specified path.
// Creates parent directories if needed.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(defaultConfig))
}

