package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Model is the unified, format-agnostic representation of a loader
// configuration.
type Model struct {
	Plugin   Plugin
	Requires Requirements
	Stages   Stages
	Commands Commands
	Events   Events
	// Relay is nil when no relay block is configured.
	Relay *Relay
	Log   Log
}

// Plugin is what the loader reports to the host during Query.
type Plugin struct {
	Name    string
	Version uint32
}

// Requirements are the host versions the loader was built against.
type Requirements struct {
	MinProtocol uint32
	Runtime     uint32
	Editor      uint32
}

// Stages names the libraries of the load sequence.
type Stages struct {
	Root             string
	Dependency       string
	Editor           string
	Runtime          string
	InitializeSymbol string
}

// Commands configures script command registration.
type Commands struct {
	OpcodeBase uint32
	List       []Command
}

// Command is one script command backed by a submodule handler.
type Command struct {
	Name        string
	Description string
	Handler     string
}

// Events configures the host message listener.
type Events struct {
	ListenSender  string
	ForwardSymbol string
}

// Relay configures the socket.io event relay.
type Relay struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Log configures the diagnostic log.
type Log struct {
	Level  string
	Format string
	// File, when set, receives a copy of every log line.
	File string
}

// LogFormats lists the accepted Log.Format values.
var LogFormats = []string{"text", "json", "pretty"}

// Validate reports every problem in the model at once.
func (m *Model) Validate() error {
	var errs []error
	if m.Plugin.Name == "" {
		errs = append(errs, errors.New("plugin name is required"))
	}
	if m.Stages.Dependency == "" {
		errs = append(errs, errors.New("stages: dependency library is required"))
	}
	if m.Stages.Editor == "" && m.Stages.Runtime == "" {
		errs = append(errs, errors.New("stages: at least one of editor or runtime submodule is required"))
	}

	seen := make(map[string]struct{}, len(m.Commands.List))
	for i, c := range m.Commands.List {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("command #%d has no name", i+1))
			continue
		}
		if _, dup := seen[c.Name]; dup {
			errs = append(errs, fmt.Errorf("command '%s' is declared twice", c.Name))
		}
		seen[c.Name] = struct{}{}
		if c.Handler == "" {
			errs = append(errs, fmt.Errorf("command '%s' has no handler", c.Name))
		}
	}

	if m.Relay != nil && m.Relay.URL == "" {
		errs = append(errs, errors.New("relay: url is required"))
	}
	if m.Log.Format != "" && !slices.Contains(LogFormats, m.Log.Format) {
		errs = append(errs, fmt.Errorf("log: unknown format '%s', expected one of %v", m.Log.Format, LogFormats))
	}
	return errors.Join(errs...)
}
