// Package basictest is the built-in feature submodule. One implementation
// serves both host modes; only the library path differs.
package basictest

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/modules/exporttable"
)

const (
	// CommandSymbol is the handler behind the coefBasicTest command.
	CommandSymbol = "COEFBasicTest"
	// EventSymbol receives forwarded host events.
	EventSymbol = "OnHostEvent"
)

// Path returns the library path for mode.
func Path(mode host.Mode) string {
	if mode == host.ModeEditor {
		return "builtin:Submodule.CS"
	}
	return "builtin:Submodule.Game"
}

// Module is the submodule for one host mode.
type Module struct {
	Mode   host.Mode
	Table  *exporttable.Table
	Logger *slog.Logger
}

// Register provides the submodule to mem. It can only be opened once the
// export table is resident.
func (m *Module) Register(mem *native.Memory) {
	mem.Provide(Path(m.Mode), &native.Definition{
		Requires: []string{exporttable.Path},
		Symbols: map[string]any{
			"Initialize":  m.Initialize,
			CommandSymbol: m.BasicTest,
			EventSymbol:   m.OnHostEvent,
		},
		Attach: func() { m.logger().Info("Attaching submodule.") },
	})
}

func (m *Module) logger() *slog.Logger {
	l := m.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("submodule", Path(m.Mode))
}

// Initialize is called once after the submodule is loaded.
func (m *Module) Initialize() {
	logger := m.logger()
	logger.Info("Initializing submodule...")
	logger.Debug("Submodule initialization completed.")
}

// BasicTest describes subject through the export table and logs the
// command arguments.
func (m *Module) BasicTest(subject uintptr, argA, argB, argC string) {
	desc := ""
	if subject != 0 {
		if describe, ok := m.Table.Describe(); ok {
			desc = describe(subject)
		}
	}
	m.logger().Debug("Test command.",
		"subject", fmt.Sprintf("<%08X>", subject),
		"description", desc,
		"a", argA,
		"b", argB,
		"c", argC,
	)
}

// OnHostEvent receives events forwarded by the loader.
func (m *Module) OnHostEvent(kind uint32, sender, payload string) {
	m.logger().Debug("Host event received.", "type", kind, "sender", sender, "payload", payload)
}
