package loader

import (
	"fmt"

	"github.com/specialistvlad/stageloader/internal/host"
)

const (
	StageDependency = "dependency"
	StageSubmodule  = "submodule"
)

// Plan names the libraries of a load sequence. Only the submodule path
// depends on the host mode.
type Plan struct {
	Dependency string
	Editor     string
	Runtime    string
}

// SubmodulePath returns the submodule library for mode.
func (p Plan) SubmodulePath(mode host.Mode) (string, error) {
	switch mode {
	case host.ModeEditor:
		return p.Editor, nil
	case host.ModeRuntime:
		return p.Runtime, nil
	default:
		return "", fmt.Errorf("no submodule for host mode %s", mode)
	}
}

// Stages returns the two stages for mode, dependency first.
func (p Plan) Stages(mode host.Mode) ([]Stage, error) {
	sub, err := p.SubmodulePath(mode)
	if err != nil {
		return nil, err
	}
	return []Stage{
		{Name: StageDependency, Path: p.Dependency},
		{Name: StageSubmodule, Path: sub},
	}, nil
}
