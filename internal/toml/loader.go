// Package toml provides the TOML implementation of the config.Loader
// interface. It accepts the same settings as the HCL loader; string values
// may reference ${plugin.name} and ${plugin.version}.
package toml

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/specialistvlad/stageloader/internal/config"
	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/version"
)

type fileConfig struct {
	Plugin struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"plugin"`
	Requires struct {
		Protocol string `toml:"protocol"`
		Runtime  string `toml:"runtime"`
		Editor   string `toml:"editor"`
	} `toml:"requires"`
	Stages struct {
		Root       string `toml:"root"`
		Dependency string `toml:"dependency"`
		Editor     string `toml:"editor"`
		Runtime    string `toml:"runtime"`
		Initialize string `toml:"initialize"`
	} `toml:"stages"`
	Commands struct {
		OpcodeBase string `toml:"opcode_base"`
		Command    []struct {
			Name        string `toml:"name"`
			Description string `toml:"description"`
			Handler     string `toml:"handler"`
		} `toml:"command"`
	} `toml:"commands"`
	Events struct {
		Listen  string `toml:"listen"`
		Forward string `toml:"forward"`
	} `toml:"events"`
	Relay struct {
		URL                string `toml:"url"`
		Namespace          string `toml:"namespace"`
		InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
		ConnectTimeout     string `toml:"connect_timeout"`
	} `toml:"relay"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
}

// Loader is the TOML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new TOML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("TOML loader started.", "path", path)

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unsupported keys in %s: %s", path, strings.Join(keys, ", "))
	}

	model, err := translate(&raw, meta)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger.Debug("TOML loading complete.", "plugin", model.Plugin.Name, "commands", len(model.Commands.List), "relay", model.Relay != nil)
	return model, nil
}

func translate(raw *fileConfig, meta toml.MetaData) (*config.Model, error) {
	m := &config.Model{Plugin: config.Plugin{Name: strings.TrimSpace(raw.Plugin.Name)}}

	parse := func(key, value string, dst *uint32) error {
		if !meta.IsDefined(strings.Split(key, ".")...) {
			return nil
		}
		v, err := version.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
		return nil
	}
	if err := parse("plugin.version", raw.Plugin.Version, &m.Plugin.Version); err != nil {
		return nil, err
	}
	if err := parse("requires.protocol", raw.Requires.Protocol, &m.Requires.MinProtocol); err != nil {
		return nil, err
	}
	if err := parse("requires.runtime", raw.Requires.Runtime, &m.Requires.Runtime); err != nil {
		return nil, err
	}
	if err := parse("requires.editor", raw.Requires.Editor, &m.Requires.Editor); err != nil {
		return nil, err
	}
	if err := parse("commands.opcode_base", raw.Commands.OpcodeBase, &m.Commands.OpcodeBase); err != nil {
		return nil, err
	}

	expand := strings.NewReplacer(
		"${plugin.name}", m.Plugin.Name,
		"${plugin.version}", version.Format(m.Plugin.Version),
	).Replace

	m.Stages = config.Stages{
		Root:             expand(raw.Stages.Root),
		Dependency:       expand(raw.Stages.Dependency),
		Editor:           expand(raw.Stages.Editor),
		Runtime:          expand(raw.Stages.Runtime),
		InitializeSymbol: raw.Stages.Initialize,
	}
	for _, c := range raw.Commands.Command {
		m.Commands.List = append(m.Commands.List, config.Command{
			Name:        c.Name,
			Description: c.Description,
			Handler:     c.Handler,
		})
	}
	m.Events = config.Events{ListenSender: raw.Events.Listen, ForwardSymbol: raw.Events.Forward}

	if meta.IsDefined("relay") {
		relay := &config.Relay{
			URL:                expand(raw.Relay.URL),
			Namespace:          raw.Relay.Namespace,
			InsecureSkipVerify: raw.Relay.InsecureSkipVerify,
		}
		if meta.IsDefined("relay", "connect_timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.Relay.ConnectTimeout))
			if err != nil {
				return nil, fmt.Errorf("relay.connect_timeout: %w", err)
			}
			relay.ConnectTimeout = d
		}
		m.Relay = relay
	}

	m.Log = config.Log{Level: raw.Log.Level, Format: raw.Log.Format, File: expand(raw.Log.File)}
	return m, nil
}
