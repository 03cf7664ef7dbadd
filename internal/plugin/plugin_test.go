package plugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stageloader/internal/command"
	"github.com/specialistvlad/stageloader/internal/events"
	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/host/hostsim"
	"github.com/specialistvlad/stageloader/internal/loader"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/testutil"
	"github.com/specialistvlad/stageloader/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	minProtocol    = 21
	runtimeVersion = 0x010201A0
	editorVersion  = 0x01000000

	depPath  = "builtin:ExportInjector"
	gamePath = "builtin:Submodule.Game"
	csPath   = "builtin:Submodule.CS"
)

type fixture struct {
	mem         *native.Memory
	initialized int
	commands    [][]string
	events      []uint32
}

// newFixture provides both submodules. The dependency is provided only
// when withDependency is set.
func newFixture(withDependency bool) *fixture {
	f := &fixture{mem: native.NewMemory()}
	if withDependency {
		f.mem.Provide(depPath, &native.Definition{})
	}
	for _, path := range []string{gamePath, csPath} {
		f.mem.Provide(path, &native.Definition{
			Requires: []string{depPath},
			Symbols: map[string]any{
				"Initialize": func() { f.initialized++ },
				"COEFBasicTest": func(_ uintptr, a, b, c string) {
					f.commands = append(f.commands, []string{a, b, c})
				},
				"OnHostEvent": func(kind uint32, _, _ string) { f.events = append(f.events, kind) },
			},
		})
	}
	return f
}

func options() Options {
	return Options{
		Name:       "COEFExample",
		Version:    0x00010000,
		Gate:       version.NewGate(minProtocol, runtimeVersion, editorVersion),
		Plan:       loader.Plan{Dependency: depPath, Editor: csPath, Runtime: gamePath},
		OpcodeBase: DefaultOpcodeBase,
		Commands: []command.Spec{
			{Name: "coefBasicTest", Description: "test command", Handler: "COEFBasicTest"},
		},
	}
}

func runtimeHost(protocol uint32, opts ...hostsim.Option) *hostsim.Simulator {
	return hostsim.New(host.Capabilities{
		ProtocolVersion: protocol,
		Mode:            host.ModeRuntime,
		RuntimeVersion:  runtimeVersion,
		EditorVersion:   editorVersion,
	}, opts...)
}

func TestQuery_ProtocolTooOldLoadsNothing(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := newFixture(true)
	p := New(options(), f.mem)

	var info host.PluginInfo
	assert.False(t, p.Query(ctx, runtimeHost(minProtocol-1), &info))
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, "COEFExample", info.Name)
	assert.Equal(t, uint32(host.InfoVersion), info.InfoVersion)
	for _, path := range []string{depPath, gamePath, csPath} {
		assert.Zero(t, f.mem.Opens(path), path)
	}
	testutil.AssertLoggedOnce(t, logs, "Host is not compatible, aborting.")

	assert.False(t, p.Load(ctx, runtimeHost(minProtocol)), "load after a failed query")
	assert.Zero(t, f.mem.Opens(depPath))
}

func TestLoad_WithoutQueryFails(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := newFixture(true)
	p := New(options(), f.mem)

	assert.False(t, p.Load(ctx, runtimeHost(minProtocol)))
	assert.Zero(t, f.mem.Opens(depPath))
	testutil.AssertLoggedOnce(t, logs, "without a successful query")
}

func TestLoad_MissingDependencyNeverInitializes(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(false)
	p := New(options(), f.mem)
	sim := runtimeHost(minProtocol)

	require.True(t, p.Query(ctx, sim, &host.PluginInfo{}))
	assert.False(t, p.Load(ctx, sim))

	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, 1, f.mem.Opens(depPath))
	assert.Zero(t, f.mem.Opens(gamePath), "stage 2 must not be attempted")
	assert.Zero(t, f.initialized)
	assert.Empty(t, sim.Commands())
	assert.Zero(t, sim.Listeners(DefaultListenSender))
}

func TestLoad_MissingFromDiskFails(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(false)
	opts := options()
	opts.Root = t.TempDir()
	opts.Plan.Dependency = filepath.Join("Data", "obse", "Plugins", "COEF", "API", "ExportInjector.dll")
	p := New(opts, native.Fallback(f.mem, native.System{}))
	sim := runtimeHost(minProtocol)

	require.True(t, p.Query(ctx, sim, nil))
	assert.False(t, p.Load(ctx, sim))
	assert.Zero(t, f.initialized)
}

func TestLoad_FullSequence(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := newFixture(true)
	opts := options()
	opts.ForwardSymbol = "OnHostEvent"
	var sunk []events.Kind
	opts.Sinks = []events.Sink{events.SinkFunc(func(_ context.Context, rec events.Record) { sunk = append(sunk, rec.Kind) })}
	p := New(opts, f.mem)
	sim := runtimeHost(minProtocol+3, hostsim.WithPluginHandle(7))

	require.True(t, p.Query(ctx, sim, &host.PluginInfo{}))
	require.True(t, p.Load(ctx, sim))

	assert.Equal(t, StateLoaded, p.State())
	assert.Equal(t, 1, f.initialized)
	assert.Equal(t, 1, f.mem.Opens(depPath))
	assert.Equal(t, 1, f.mem.Opens(gamePath))
	assert.Zero(t, f.mem.Opens(csPath))
	assert.Equal(t, uint32(DefaultOpcodeBase), sim.OpcodeBase())

	table := sim.Commands()
	require.Len(t, table, 1)
	assert.Equal(t, "coefBasicTest", table[0].Descriptor.Name)
	assert.Equal(t, uint32(0x5000), table[0].Opcode)

	assert.Equal(t, 1, sim.Listeners("OBSE"))
	assert.Equal(t, 1, sim.Broadcast(host.Message{Type: uint32(events.KindPostLoad), Sender: "OBSE"}))
	assert.Equal(t, 1, sim.Broadcast(host.Message{Type: 9, Sender: "OBSE"}))
	assert.Zero(t, sim.Broadcast(host.Message{Type: 1, Sender: "SomeoneElse"}))
	assert.Equal(t, []uint32{2, 9}, f.events)
	assert.Equal(t, []events.Kind{events.KindPostLoad, events.KindPostPostLoad}, sunk)

	result, ok, err := sim.Execute(ctx, "coefBasicTest", 0x1000, "a", "b", "c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.0, result)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, f.commands)

	assert.True(t, p.ExecuteCommand(ctx, "coefBasicTest", host.CommandCall{}))
	assert.False(t, p.ExecuteCommand(ctx, "coefUnknown", host.CommandCall{}))

	assert.True(t, p.Load(ctx, sim), "second load is a no-op")
	assert.Equal(t, 1, f.initialized)
	testutil.AssertNotLogged(t, logs, "not found")
}

func TestQuery_AfterLoadKeepsPluginLoaded(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := newFixture(true)
	p := New(options(), f.mem)
	sim := runtimeHost(minProtocol)

	require.True(t, p.Query(ctx, sim, &host.PluginInfo{}))
	require.True(t, p.Load(ctx, sim))

	var info host.PluginInfo
	assert.True(t, p.Query(ctx, sim, &info))
	assert.Equal(t, "COEFExample", info.Name)
	assert.Equal(t, StateLoaded, p.State())

	// A rejecting query after the load must not reopen the sequence either.
	assert.True(t, p.Query(ctx, runtimeHost(minProtocol-1), nil))
	assert.Equal(t, StateLoaded, p.State())

	assert.True(t, p.Load(ctx, sim))
	assert.Equal(t, 1, f.initialized)
	assert.Equal(t, 1, sim.Listeners(DefaultListenSender))
	assert.Len(t, sim.Commands(), 1)
	assert.Equal(t, 1, sim.Broadcast(host.Message{Type: uint32(events.KindPostLoad), Sender: DefaultListenSender}))
	assert.Equal(t, 2, testutil.CountLogLines(logs.String(), "Query called again, already loaded."))
	testutil.AssertNotLogged(t, logs, "Host is not compatible")
}

func TestLoad_EditorModePicksEditorSubmodule(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(true)
	p := New(options(), f.mem)
	sim := hostsim.New(host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeEditor, EditorVersion: editorVersion})

	require.True(t, p.Query(ctx, sim, nil))
	require.True(t, p.Load(ctx, sim))
	assert.Equal(t, 1, f.mem.Opens(csPath))
	assert.Zero(t, f.mem.Opens(gamePath))
}

func TestLoad_MissingInitializeIsNotFatal(t *testing.T) {
	ctx, logs := testutil.Context(t)
	mem := native.NewMemory()
	mem.Provide(depPath, &native.Definition{})
	mem.Provide(gamePath, &native.Definition{Requires: []string{depPath}})
	p := New(options(), mem)
	sim := runtimeHost(minProtocol, hostsim.WithoutMessaging())

	require.True(t, p.Query(ctx, sim, nil))
	assert.True(t, p.Load(ctx, sim))
	testutil.AssertLoggedOnce(t, logs, "Submodule entry point not found.")
	testutil.AssertLoggedOnce(t, logs, "Host has no messaging interface")

	result, ok, err := sim.Execute(ctx, "coefBasicTest", 0)
	require.NoError(t, err)
	assert.True(t, ok, "missing handler still reports success")
	assert.Equal(t, 0.0, result)
}

func TestLoad_SharedDependencyAlreadyResident(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(true)
	_, err := f.mem.Open(depPath)
	require.NoError(t, err)

	p := New(options(), f.mem)
	sim := runtimeHost(minProtocol)
	require.True(t, p.Query(ctx, sim, nil))
	assert.True(t, p.Load(ctx, sim))
	assert.Equal(t, 1, f.initialized)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "queried", StateQueried.String())
	assert.Equal(t, "State(9)", State(9).String())
}
