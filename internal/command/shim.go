// Package command registers script commands with the host and routes their
// execution into handlers exported by the submodule.
//
// The loader itself holds no command logic. A Shim extracts the arguments
// the host hands it and calls the named submodule handler through the
// invoker. It always reports success to the host: a handler that cannot be
// found is logged, never surfaced as a script failure.
package command

import (
	"context"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/invoker"
	"github.com/specialistvlad/stageloader/internal/registry"
)

// MaxStringArgs is the number of optional string arguments every command
// accepts.
const MaxStringArgs = 3

// Spec configures one command.
type Spec struct {
	Name        string
	Description string
	// Handler is the symbol the submodule exports for this command.
	Handler string
}

// ThreeOptionalStrings is the parameter list shared by all shims.
var ThreeOptionalStrings = []host.ParamInfo{
	{Name: "stringA", Type: host.ParamString, Optional: true},
	{Name: "stringB", Type: host.ParamString, Optional: true},
	{Name: "stringC", Type: host.ParamString, Optional: true},
}

// Shim forwards one host command to the submodule.
type Shim struct {
	spec      Spec
	invoker   *invoker.Invoker
	submodule *registry.Handle
}

// NewShim creates a shim that calls spec.Handler inside submodule.
func NewShim(spec Spec, inv *invoker.Invoker, submodule *registry.Handle) *Shim {
	return &Shim{spec: spec, invoker: inv, submodule: submodule}
}

// Name returns the command name.
func (s *Shim) Name() string { return s.spec.Name }

// Descriptor builds the descriptor handed to the host.
func (s *Shim) Descriptor() *host.CommandDescriptor {
	params := make([]host.ParamInfo, len(ThreeOptionalStrings))
	copy(params, ThreeOptionalStrings)
	return &host.CommandDescriptor{
		Name:        s.spec.Name,
		Description: s.spec.Description,
		MinArgs:     0,
		MaxArgs:     MaxStringArgs,
		Params:      params,
		Execute:     s.Execute,
	}
}

// Register hands the descriptor to the host. The host owns it afterwards.
func (s *Shim) Register(ctx context.Context, h host.Interface) bool {
	logger := ctxlog.FromContext(ctx)
	if !h.RegisterCommand(s.Descriptor()) {
		logger.Error("Host rejected command registration.", "command", s.spec.Name)
		return false
	}
	logger.Debug("Registered command.", "command", s.spec.Name, "handler", s.spec.Handler)
	return true
}

// Execute runs the command for the host. It always returns true.
func (s *Shim) Execute(ctx context.Context, call host.CommandCall) bool {
	logger := ctxlog.FromContext(ctx).With("command", s.spec.Name)

	if call.Result != nil {
		*call.Result = 0
	}

	var argA, argB, argC string
	if call.Args != nil && !call.Args.ExtractStrings(&argA, &argB, &argC) {
		logger.Warn("Could not extract command arguments, running with what was read.")
	}

	s.invoker.Command(ctx, s.submodule, s.spec.Handler, uintptr(call.Subject), argA, argB, argC)
	return true
}
