package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_OpenUnknownLibrary(t *testing.T) {
	m := NewMemory()
	lib, err := m.Open("missing.dll")
	assert.Nil(t, lib)
	assert.ErrorIs(t, err, ErrLibraryNotFound)
	assert.Equal(t, 1, m.Opens("missing.dll"))
}

func TestMemory_AttachRunsOncePerProcess(t *testing.T) {
	m := NewMemory()
	attached := 0
	m.Provide("table.dll", &Definition{Attach: func() { attached++ }})

	first, err := m.Open("table.dll")
	require.NoError(t, err)
	second, err := m.Open("table.dll")
	require.NoError(t, err)

	assert.Equal(t, 1, attached)
	assert.Same(t, first, second)
	assert.True(t, m.Resident("table.dll"))
	assert.Equal(t, 2, m.Opens("table.dll"))
}

func TestMemory_DependencyMustBeResident(t *testing.T) {
	m := NewMemory()
	m.Provide("table.dll", &Definition{})
	m.Provide("sub.dll", &Definition{Requires: []string{"table.dll"}})

	_, err := m.Open("sub.dll")
	require.ErrorIs(t, err, ErrUnresolvedDependency)
	assert.False(t, m.Resident("sub.dll"))

	_, err = m.Open("table.dll")
	require.NoError(t, err)
	_, err = m.Open("sub.dll")
	require.NoError(t, err)
	assert.True(t, m.Resident("sub.dll"))
}

func TestMemory_ProvideTwicePanics(t *testing.T) {
	m := NewMemory()
	m.Provide("a.dll", &Definition{})
	assert.Panics(t, func() { m.Provide("a.dll", &Definition{}) })
}

func TestMemoryLibrary_Lookup(t *testing.T) {
	m := NewMemory()
	calls := 0
	m.Provide("sub.dll", &Definition{Symbols: map[string]any{
		"Initialize": func() { calls++ },
		"Version":    func() uint32 { return 7 },
	}})
	lib, err := m.Open("sub.dll")
	require.NoError(t, err)

	t.Run("bound func is callable", func(t *testing.T) {
		var initialize func()
		require.NoError(t, lib.Lookup("Initialize", &initialize))
		initialize()
		assert.Equal(t, 1, calls)
	})

	t.Run("named func types convert", func(t *testing.T) {
		type initFunc func()
		var fn initFunc
		require.NoError(t, lib.Lookup("Initialize", &fn))
	})

	t.Run("missing symbol", func(t *testing.T) {
		var fn func()
		err := lib.Lookup("Shutdown", &fn)
		assert.ErrorIs(t, err, ErrSymbolNotFound)
		assert.Nil(t, fn)
	})

	t.Run("wrong signature", func(t *testing.T) {
		var fn func(string)
		err := lib.Lookup("Version", &fn)
		assert.ErrorIs(t, err, ErrSymbolType)
	})

	t.Run("destination must be a func pointer", func(t *testing.T) {
		var notFunc int
		assert.ErrorIs(t, lib.Lookup("Initialize", &notFunc), ErrSymbolType)
		assert.ErrorIs(t, lib.Lookup("Initialize", nil), ErrSymbolType)
	})
}

type stubOpener struct{ opened []string }

func (s *stubOpener) Open(path string) (Library, error) {
	s.opened = append(s.opened, path)
	return nil, ErrLibraryNotFound
}

func TestFallback_RoutesByProvider(t *testing.T) {
	m := NewMemory()
	m.Provide("builtin:table", &Definition{})
	sys := &stubOpener{}
	opener := Fallback(m, sys)

	lib, err := opener.Open("builtin:table")
	require.NoError(t, err)
	assert.Equal(t, "builtin:table", lib.Path())
	assert.Empty(t, sys.opened)

	_, err = opener.Open("/opt/plugins/sub.so")
	assert.ErrorIs(t, err, ErrLibraryNotFound)
	assert.Equal(t, []string{"/opt/plugins/sub.so"}, sys.opened)
}
