package native

import (
	"fmt"
	"reflect"
	"sync"
)

// Definition describes an in-process library.
type Definition struct {
	// Symbols maps exported names to Go values, usually funcs.
	Symbols map[string]any
	// Requires lists library paths that must already be resident before
	// this one can be opened.
	Requires []string
	// Attach runs once, when the library first becomes resident.
	Attach func()
}

// Module is a Go package that provides one or more in-process libraries.
type Module interface {
	Register(mem *Memory)
}

// Memory is an Opener for libraries built from Go values. Residency is
// tracked per Memory value, which plays the role of the process.
type Memory struct {
	mu       sync.Mutex
	defs     map[string]*Definition
	resident map[string]*memoryLibrary
	opens    map[string]int
	nextAddr uintptr
}

// NewMemory creates an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{
		defs:     make(map[string]*Definition),
		resident: make(map[string]*memoryLibrary),
		opens:    make(map[string]int),
		nextAddr: 0x10000000,
	}
}

// Provide makes def available under path. Providing the same path twice is
// a programming error.
func (m *Memory) Provide(path string, def *Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.defs[path]; exists {
		panic(fmt.Sprintf("library '%s' already provided", path))
	}
	if def.Symbols == nil {
		def.Symbols = map[string]any{}
	}
	m.defs[path] = def
}

// Provides implements Provider.
func (m *Memory) Provides(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.defs[path]
	return ok
}

// Resident reports whether path has been opened successfully.
func (m *Memory) Resident(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.resident[path]
	return ok
}

// Opens returns how many times Open was called for path, failed calls
// included.
func (m *Memory) Opens(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[path]
}

// Open implements Opener.
func (m *Memory) Open(path string) (Library, error) {
	m.mu.Lock()
	m.opens[path]++
	if lib, ok := m.resident[path]; ok {
		m.mu.Unlock()
		return lib, nil
	}
	def, ok := m.defs[path]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
	}
	for _, dep := range def.Requires {
		if _, ok := m.resident[dep]; !ok {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %s requires %s", ErrUnresolvedDependency, path, dep)
		}
	}
	lib := &memoryLibrary{path: path, addr: m.nextAddr, symbols: def.Symbols}
	m.nextAddr += 0x10000
	m.resident[path] = lib
	m.mu.Unlock()

	// Attach runs outside the lock so it may open further libraries.
	if def.Attach != nil {
		def.Attach()
	}
	return lib, nil
}

type memoryLibrary struct {
	path    string
	addr    uintptr
	symbols map[string]any
}

func (l *memoryLibrary) Path() string  { return l.path }
func (l *memoryLibrary) Addr() uintptr { return l.addr }

func (l *memoryLibrary) Lookup(name string, fnPtr any) error {
	dst, err := checkFuncPtr(fnPtr)
	if err != nil {
		return err
	}
	sym, ok := l.symbols[name]
	if !ok || sym == nil {
		return fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	src := reflect.ValueOf(sym)
	if !src.Type().AssignableTo(dst.Type()) {
		if !src.Type().ConvertibleTo(dst.Type()) {
			return fmt.Errorf("%w: %s in %s is %s, want %s", ErrSymbolType, name, l.path, src.Type(), dst.Type())
		}
		src = src.Convert(dst.Type())
	}
	dst.Set(src)
	return nil
}
