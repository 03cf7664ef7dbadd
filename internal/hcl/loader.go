package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stageloader/internal/config"
	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/version"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses and decodes the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var head header
	if diags := gohcl.DecodeBody(file.Body, nil, &head); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plugin block in %s: %w", path, diags)
	}

	model := &config.Model{Plugin: config.Plugin{Name: head.Plugin.Name}}
	if head.Plugin.Version != "" {
		v, err := version.Parse(head.Plugin.Version)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s': %w", head.Plugin.Name, err)
		}
		model.Plugin.Version = v
	}

	evalCtx := newEvalContext(model.Plugin)
	if diags := checkReferences(head.Remain, evalCtx); diags.HasErrors() {
		return nil, fmt.Errorf("invalid expression in %s: %w", path, diags)
	}

	var body fileBody
	if diags := gohcl.DecodeBody(head.Remain, evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	if err := translate(&body, model); err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger.Debug("HCL loading complete.", "plugin", model.Plugin.Name, "commands", len(model.Commands.List), "relay", model.Relay != nil)
	return model, nil
}

// newEvalContext exposes the plugin identity and a few string functions to
// expressions in the second pass.
func newEvalContext(p config.Plugin) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"plugin": cty.ObjectVal(map[string]cty.Value{
				"name":    cty.StringVal(p.Name),
				"version": cty.StringVal(version.Format(p.Version)),
			}),
		},
		Functions: map[string]function.Function{
			"upper":   stdlib.UpperFunc,
			"lower":   stdlib.LowerFunc,
			"format":  stdlib.FormatFunc,
			"replace": stdlib.ReplaceFunc,
		},
	}
}

// translate converts the HCL-specific schema into the agnostic model.
func translate(b *fileBody, m *config.Model) error {
	if r := b.Requires; r != nil {
		for _, f := range []struct {
			name string
			raw  string
			dst  *uint32
		}{
			{"requires.protocol", r.Protocol, &m.Requires.MinProtocol},
			{"requires.runtime", r.Runtime, &m.Requires.Runtime},
			{"requires.editor", r.Editor, &m.Requires.Editor},
		} {
			if f.raw == "" {
				continue
			}
			v, err := version.Parse(f.raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			*f.dst = v
		}
	}

	if s := b.Stages; s != nil {
		m.Stages = config.Stages{
			Root:             s.Root,
			Dependency:       s.Dependency,
			Editor:           s.Editor,
			Runtime:          s.Runtime,
			InitializeSymbol: s.Initialize,
		}
	}

	if c := b.Commands; c != nil {
		if c.OpcodeBase != "" {
			base, err := version.Parse(c.OpcodeBase)
			if err != nil {
				return fmt.Errorf("commands.opcode_base: %w", err)
			}
			m.Commands.OpcodeBase = base
		}
		for _, cmd := range c.Commands {
			m.Commands.List = append(m.Commands.List, config.Command{
				Name:        cmd.Name,
				Description: cmd.Description,
				Handler:     cmd.Handler,
			})
		}
	}

	if e := b.Events; e != nil {
		m.Events = config.Events{ListenSender: e.Listen, ForwardSymbol: e.Forward}
	}

	if r := b.Relay; r != nil {
		relay := &config.Relay{URL: r.URL, Namespace: r.Namespace, InsecureSkipVerify: r.InsecureSkipVerify}
		if r.ConnectTimeout != "" {
			d, err := time.ParseDuration(r.ConnectTimeout)
			if err != nil {
				return fmt.Errorf("relay.connect_timeout: %w", err)
			}
			relay.ConnectTimeout = d
		}
		m.Relay = relay
	}

	if lg := b.Log; lg != nil {
		m.Log = config.Log{Level: lg.Level, Format: lg.Format, File: lg.File}
	}
	return nil
}
