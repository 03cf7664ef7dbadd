package loader

import (
	"testing"

	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/registry"
	"github.com/specialistvlad/stageloader/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tablePath   = "builtin:ExportInjector"
	editorPath  = "builtin:Submodule.CS"
	runtimePath = "builtin:Submodule.Game"
)

func newMemory() *native.Memory {
	m := native.NewMemory()
	m.Provide(tablePath, &native.Definition{})
	m.Provide(editorPath, &native.Definition{Requires: []string{tablePath}})
	m.Provide(runtimePath, &native.Definition{Requires: []string{tablePath}})
	return m
}

func testPlan() Plan {
	return Plan{Dependency: tablePath, Editor: editorPath, Runtime: runtimePath}
}

func TestLoadChain_LoadsDependencyThenSubmodule(t *testing.T) {
	ctx, _ := testutil.Context(t)
	mem := newMemory()
	reg := registry.New()
	l := New(mem, reg)

	stages, err := testPlan().Stages(host.ModeRuntime)
	require.NoError(t, err)
	handles, err := l.LoadChain(ctx, stages...)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	assert.Equal(t, tablePath, handles[0].Path)
	assert.Equal(t, runtimePath, handles[1].Path)
	assert.True(t, handles[1].Loaded())
	assert.Zero(t, mem.Opens(editorPath))
}

func TestLoadChain_StageTwoNeverAttemptedAfterStageOneFails(t *testing.T) {
	ctx, logs := testutil.Context(t)
	mem := native.NewMemory()
	mem.Provide(runtimePath, &native.Definition{})
	reg := registry.New()
	l := New(mem, reg)

	stages, err := testPlan().Stages(host.ModeRuntime)
	require.NoError(t, err)
	handles, err := l.LoadChain(ctx, stages...)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailure)
	assert.ErrorIs(t, err, native.ErrLibraryNotFound)
	assert.Empty(t, handles)
	assert.Equal(t, 1, mem.Opens(tablePath))
	assert.Zero(t, mem.Opens(runtimePath), "stage 2 must not be attempted")

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, StageDependency, loadErr.Stage)
	testutil.AssertLoggedOnce(t, logs, "Could not load library")
}

func TestLoadStage_AlreadyResidentIsSuccess(t *testing.T) {
	ctx, logs := testutil.Context(t)
	attached := 0
	mem := native.NewMemory()
	mem.Provide(tablePath, &native.Definition{Attach: func() { attached++ }})
	reg := registry.New()
	l := New(mem, reg)

	first, err := l.LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.NoError(t, err)
	second, err := l.LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, attached)
	assert.Equal(t, 1, mem.Opens(tablePath))
	testutil.AssertLoggedOnce(t, logs, "already resident")
}

func TestLoadStage_ResidentFromAnotherPlugin(t *testing.T) {
	ctx, _ := testutil.Context(t)
	attached := 0
	mem := native.NewMemory()
	mem.Provide(tablePath, &native.Definition{Attach: func() { attached++ }})

	// A different plugin instance shares the process but has its own registry.
	_, err := New(mem, registry.New()).LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.NoError(t, err)
	h, err := New(mem, registry.New()).LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.NoError(t, err)

	assert.True(t, h.Loaded())
	assert.Equal(t, 1, attached, "a resident library is not initialized twice")
}

func TestLoadStage_FailureIsNotRetried(t *testing.T) {
	ctx, _ := testutil.Context(t)
	mem := native.NewMemory()
	reg := registry.New()
	l := New(mem, reg)

	_, err := l.LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.ErrorIs(t, err, ErrLoadFailure)

	// Installing the library afterwards does not change the session outcome.
	mem.Provide(tablePath, &native.Definition{})
	_, err = l.LoadStage(ctx, Stage{Name: StageDependency, Path: tablePath})
	require.ErrorIs(t, err, ErrLoadFailure)
	assert.Equal(t, 1, mem.Opens(tablePath))

	h, ok := reg.Lookup(tablePath)
	require.True(t, ok)
	assert.Equal(t, registry.StatusLoadFailed, h.Status)
}

func TestLoadStage_SubmoduleWithoutTableFails(t *testing.T) {
	ctx, _ := testutil.Context(t)
	l := New(newMemory(), registry.New())

	_, err := l.LoadStage(ctx, Stage{Name: StageSubmodule, Path: editorPath})
	assert.ErrorIs(t, err, ErrLoadFailure)
	assert.ErrorIs(t, err, native.ErrUnresolvedDependency)
}

func TestLoadStage_EmptyPath(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := New(newMemory(), registry.New()).LoadStage(ctx, Stage{Name: StageSubmodule})
	assert.ErrorIs(t, err, ErrLoadFailure)
}

func TestPlan_SelectsSubmoduleByMode(t *testing.T) {
	p := testPlan()

	stages, err := p.Stages(host.ModeEditor)
	require.NoError(t, err)
	assert.Equal(t, []Stage{
		{Name: StageDependency, Path: tablePath},
		{Name: StageSubmodule, Path: editorPath},
	}, stages)

	_, err = p.Stages(host.Mode(5))
	assert.Error(t, err)
}
