package app

import (
	"log/slog"

	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/modules/basictest"
	"github.com/specialistvlad/stageloader/modules/exporttable"
)

// coreModules is the definitive list of in-process libraries compiled into
// the stageloader binary. They are served under builtin: paths and share
// one export table.
func coreModules(logger *slog.Logger) []native.Module {
	table := exporttable.NewTable()
	return []native.Module{
		&exporttable.Module{Table: table, Logger: logger},
		&basictest.Module{Mode: host.ModeRuntime, Table: table, Logger: logger},
		&basictest.Module{Mode: host.ModeEditor, Table: table, Logger: logger},
	}
}
