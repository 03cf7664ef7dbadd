package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/stageloader/internal/config"
	"github.com/specialistvlad/stageloader/internal/host"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // .hcl or .toml file
	// Root overrides the configured library root when set.
	Root string

	// Mode and the versions describe the simulated host. A nil version
	// makes the host report exactly what the configuration requires.
	Mode            host.Mode
	ProtocolVersion *uint32
	RuntimeVersion  *uint32
	EditorVersion   *uint32

	// Events are broadcast to the plugin after a successful load, in order.
	// Each is a kind name or number, optionally followed by =payload.
	Events []string
	// Exec lists commands to run after the events, each as "name arg...".
	Exec    []string
	Subject uint64

	// LogFormat and LogLevel override the configuration file when set.
	LogFormat string
	LogLevel  string
	DiagPort  int
	// Serve keeps the diagnostics server running after the session until
	// the context is cancelled.
	Serve bool
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "pretty"}
)

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.LogLevel != "" && !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level: must be one of %v", logLevels)
	}
	if cfg.LogFormat != "" && !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format: must be one of %v", logFormats)
	}
	if cfg.Serve && cfg.DiagPort <= 0 {
		return nil, errors.New("serve requires a diagnostics port")
	}
	return &cfg, nil
}

// capabilities is the descriptor the simulated host reports.
func (c *Config) capabilities(req config.Requirements) host.Capabilities {
	return host.Capabilities{
		ProtocolVersion: orDefault(c.ProtocolVersion, req.MinProtocol),
		Mode:            c.Mode,
		RuntimeVersion:  orDefault(c.RuntimeVersion, req.Runtime),
		EditorVersion:   orDefault(c.EditorVersion, req.Editor),
	}
}

func orDefault(v *uint32, def uint32) uint32 {
	if v == nil {
		return def
	}
	return *v
}
