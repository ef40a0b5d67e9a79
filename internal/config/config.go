// Package config reads coderd configuration from YAML.
// Reading prefers the workspace-local .coderd/config.yaml and falls back to
// the global ~/.coderd/config.yaml; absent files mean defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a key is not configured.
const (
	DefaultMaxFileSize    = 10 * 1024 * 1024 // 10 MB
	DefaultMaxOutputBytes = 512 * 1024       // bash output cap
	DefaultEditTimeout    = 2 * time.Second
	DefaultBashTimeout    = 120 * time.Second
	MaxBashTimeout        = 600 * time.Second
)

// Limits holds size limit options.
type Limits struct {
	MaxFileSize    *int64 `yaml:"max_file_size,omitempty"`
	MaxOutputBytes *int   `yaml:"max_output_bytes,omitempty"`
}

// Edit holds edit-engine options.
type Edit struct {
	TimeoutMS *int `yaml:"timeout_ms,omitempty"`
}

// Bash holds shell-tool options.
type Bash struct {
	TimeoutMS *int `yaml:"timeout_ms,omitempty"`
	// SandboxCommand, when set, is prefixed to every bash invocation
	// (e.g. "sandbox-exec -p profile"). Enabled by the --sandbox flag.
	SandboxCommand string `yaml:"sandbox_command,omitempty"`
}

// Config contains configuration for coderd.
type Config struct {
	Limits Limits `yaml:"limits,omitempty"`
	Edit   Edit   `yaml:"edit,omitempty"`
	Bash   Bash   `yaml:"bash,omitempty"`
}

// MaxFileSize returns the configured file size limit or the default.
func (c *Config) MaxFileSize() int64 {
	if c.Limits.MaxFileSize != nil && *c.Limits.MaxFileSize > 0 {
		return *c.Limits.MaxFileSize
	}
	return DefaultMaxFileSize
}

// MaxOutputBytes returns the configured output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.Limits.MaxOutputBytes != nil && *c.Limits.MaxOutputBytes > 0 {
		return *c.Limits.MaxOutputBytes
	}
	return DefaultMaxOutputBytes
}

// EditTimeout returns the edit engine's wall-clock budget.
func (c *Config) EditTimeout() time.Duration {
	if c.Edit.TimeoutMS != nil && *c.Edit.TimeoutMS > 0 {
		return time.Duration(*c.Edit.TimeoutMS) * time.Millisecond
	}
	return DefaultEditTimeout
}

// BashTimeout returns the shell tool's default timeout, clamped to
// MaxBashTimeout.
func (c *Config) BashTimeout() time.Duration {
	if c.Bash.TimeoutMS != nil && *c.Bash.TimeoutMS > 0 {
		d := time.Duration(*c.Bash.TimeoutMS) * time.Millisecond
		if d > MaxBashTimeout {
			return MaxBashTimeout
		}
		return d
	}
	return DefaultBashTimeout
}

// Load reads configuration for a workspace directory. A local
// .coderd/config.yaml inside the workspace wins over the global
// ~/.coderd/config.yaml; when neither exists the zero Config (all
// defaults) is returned.
func Load(workspaceDir string) (*Config, error) {
	local := filepath.Join(workspaceDir, ".coderd", "config.yaml")
	if cfg, err := read(local); err == nil {
		return cfg, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return &Config{}, nil
	}
	global := filepath.Join(home, ".coderd", "config.yaml")
	if cfg, err := read(global); err == nil {
		return cfg, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return &Config{}, nil
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
