// Package plugin implements the entry points the host calls: Query, Load,
// the event listener and command execution.
//
// All state lives in a Plugin value. The host drives it serially from one
// control thread; only the lifecycle state is locked, because diagnostics
// read it from other goroutines.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/stageloader/internal/command"
	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/events"
	"github.com/specialistvlad/stageloader/internal/fsutil"
	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/invoker"
	"github.com/specialistvlad/stageloader/internal/loader"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/registry"
	"github.com/specialistvlad/stageloader/internal/version"
)

// DefaultOpcodeBase is the first opcode assigned to registered commands.
const DefaultOpcodeBase = 0x5000

// DefaultListenSender is the sender whose messages the plugin listens to.
const DefaultListenSender = "OBSE"

// State is the lifecycle position of a Plugin.
type State int

const (
	StateCreated State = iota
	StateQueried
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateQueried:
		return "queried"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Plugin.
type Options struct {
	Name    string
	Version uint32
	Gate    version.Gate
	Plan    loader.Plan
	// Root anchors relative library paths.
	Root             string
	InitializeSymbol string
	OpcodeBase       uint32
	Commands         []command.Spec
	ListenSender     string
	// ForwardSymbol, when set, names a submodule entry point that receives
	// every dispatched event.
	ForwardSymbol string
	Sinks         []events.Sink
}

// Plugin is the loader's single context object.
type Plugin struct {
	opts       Options
	registry   *registry.Registry
	loader     *loader.Loader
	invoker    *invoker.Invoker
	dispatcher *events.Dispatcher
	shims      map[string]*command.Shim
	handle     host.PluginHandle
	submodule  *registry.Handle

	mu    sync.RWMutex
	state State
}

// New creates a Plugin that opens libraries through opener.
func New(opts Options, opener native.Opener) *Plugin {
	if opts.InitializeSymbol == "" {
		opts.InitializeSymbol = invoker.InitializeSymbol
	}
	if opts.ListenSender == "" {
		opts.ListenSender = DefaultListenSender
	}
	if opts.OpcodeBase == 0 {
		opts.OpcodeBase = DefaultOpcodeBase
	}
	reg := registry.New()
	return &Plugin{
		opts:       opts,
		registry:   reg,
		loader:     loader.New(opener, reg),
		invoker:    invoker.New(),
		dispatcher: events.NewDispatcher(opts.Sinks...),
		shims:      make(map[string]*command.Shim),
		handle:     host.InvalidPluginHandle,
		state:      StateCreated,
	}
}

// State returns the current lifecycle state. It is safe to call from any
// goroutine.
func (p *Plugin) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Plugin) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Registry exposes the module registry for diagnostics.
func (p *Plugin) Registry() *registry.Registry { return p.registry }

// Dispatcher exposes the event dispatcher so callers can add sinks.
func (p *Plugin) Dispatcher() *events.Dispatcher { return p.dispatcher }

// Query fills info and checks the host's versions. Nothing is loaded here.
func (p *Plugin) Query(ctx context.Context, h host.Interface, info *host.PluginInfo) bool {
	caps := h.Capabilities()
	logger := ctxlog.FromContext(ctx).With("plugin", p.opts.Name)

	if info != nil {
		info.InfoVersion = host.InfoVersion
		info.Name = p.opts.Name
		info.Version = p.opts.Version
	}
	logger.Info("Host query.", "mode", caps.Mode.String(), "version", version.Format(p.opts.Version))

	if p.State() == StateLoaded {
		logger.Warn("Query called again, already loaded.")
		return true
	}
	if err := p.opts.Gate.CheckCompatibility(caps); err != nil {
		logger.Error("Host is not compatible, aborting.", "error", err)
		p.setState(StateFailed)
		return false
	}
	p.setState(StateQueried)
	return true
}

// Load runs the load sequence. It returns false when a stage fails; the
// host then carries on without this plugin.
func (p *Plugin) Load(ctx context.Context, h host.Interface) bool {
	caps := h.Capabilities()
	logger := ctxlog.FromContext(ctx).With("plugin", p.opts.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	switch state := p.State(); state {
	case StateLoaded:
		logger.Warn("Load called again, already loaded.")
		return true
	case StateQueried:
	default:
		logger.Error("Load called without a successful query.", "state", state.String())
		return false
	}
	logger.Info("Host load.", "mode", caps.Mode.String())

	stages, err := p.opts.Plan.Stages(caps.Mode)
	if err != nil {
		logger.Error("No load plan for host mode.", "error", err)
		p.setState(StateFailed)
		return false
	}
	for i := range stages {
		stages[i].Path = fsutil.ResolveLibraryPath(p.opts.Root, stages[i].Path)
	}

	handles, err := p.loader.LoadChain(ctx, stages...)
	if err != nil {
		p.setState(StateFailed)
		return false
	}
	p.submodule = handles[len(handles)-1]
	p.handle = h.PluginHandle()

	if p.opts.ForwardSymbol != "" {
		p.dispatcher.AddSink(&forwarder{invoker: p.invoker, submodule: p.submodule, symbol: p.opts.ForwardSymbol})
	}
	p.registerListener(ctx, h)

	p.invoker.InitializeNamed(ctx, p.submodule, p.opts.InitializeSymbol)

	logger.Info("Registering commands.", "opcode_base", fmt.Sprintf("%04X", p.opts.OpcodeBase), "count", len(p.opts.Commands))
	h.SetOpcodeBase(p.opts.OpcodeBase)
	for _, spec := range p.opts.Commands {
		shim := command.NewShim(spec, p.invoker, p.submodule)
		if shim.Register(ctx, h) {
			p.shims[spec.Name] = shim
		}
	}

	p.setState(StateLoaded)
	return true
}

func (p *Plugin) registerListener(ctx context.Context, h host.Interface) {
	logger := ctxlog.FromContext(ctx)
	messaging := host.Messaging(h)
	if messaging == nil {
		logger.Warn("Host has no messaging interface, events will not be received.")
		return
	}
	ok := messaging.RegisterListener(p.handle, p.opts.ListenSender, func(msg host.Message) {
		p.OnEvent(ctx, msg)
	})
	if !ok {
		logger.Warn("Host refused the message listener.", "sender", p.opts.ListenSender)
		return
	}
	logger.Debug("Registered message listener.", "sender", p.opts.ListenSender, "handle", uint32(p.handle))
}

// OnEvent routes a host message to the dispatcher.
func (p *Plugin) OnEvent(ctx context.Context, msg host.Message) {
	p.dispatcher.Dispatch(ctx, events.Record{
		Kind:   events.Kind(msg.Type),
		Sender: msg.Sender,
		Data:   msg.Data,
	})
}

// ExecuteCommand runs a registered command. Commands that were never
// registered report false; registered ones always report true.
func (p *Plugin) ExecuteCommand(ctx context.Context, name string, call host.CommandCall) bool {
	shim, ok := p.shims[name]
	if !ok {
		ctxlog.FromContext(ctx).Error("Command is not registered.", "command", name)
		return false
	}
	return shim.Execute(ctx, call)
}

// forwarder hands dispatched events to a submodule entry point.
type forwarder struct {
	invoker   *invoker.Invoker
	submodule *registry.Handle
	symbol    string
}

func (f *forwarder) HandleEvent(ctx context.Context, rec events.Record) {
	f.invoker.Event(ctx, f.submodule, f.symbol, uint32(rec.Kind), rec.Sender, rec.Payload())
}
