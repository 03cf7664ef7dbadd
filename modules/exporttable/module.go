// Package exporttable is the built-in dependency library. Becoming resident
// publishes a process-wide capability table that submodules link against.
package exporttable

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/stageloader/internal/native"
)

// Path is the library path the table is served under.
const Path = "builtin:ExportInjector"

// DescribeSymbol is the table entry that describes an engine object.
const DescribeSymbol = "GetDebugDescription"

// DescribeFunc returns a human readable description of subject.
type DescribeFunc func(subject uintptr) string

// Table is the capability table. It is empty until the library attaches.
type Table struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]any)}
}

// Publish adds or replaces an entry.
func (t *Table) Publish(name string, v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = v
}

// Len returns the number of published entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Describe returns the published describe function.
func (t *Table) Describe() (DescribeFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.entries[DescribeSymbol].(DescribeFunc)
	return fn, ok
}

// Module serves the table as an in-process library.
type Module struct {
	Table  *Table
	Logger *slog.Logger
	// Describe overrides the published describe function.
	Describe DescribeFunc
}

// Register provides the library to mem.
func (m *Module) Register(mem *native.Memory) {
	mem.Provide(Path, &native.Definition{
		Symbols: map[string]any{
			"TableSize": m.Table.Len,
		},
		Attach: m.attach,
	})
}

func (m *Module) attach() {
	describe := m.Describe
	if describe == nil {
		describe = defaultDescribe
	}
	m.Table.Publish(DescribeSymbol, describe)

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Export table built.", "entries", m.Table.Len())
}

func defaultDescribe(subject uintptr) string {
	return fmt.Sprintf("object %08X", subject)
}
