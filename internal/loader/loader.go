// Package loader loads the loader's dependency chain in a fixed order.
//
// Stage one is the shared-capability-table provider; stage two is the
// feature submodule, which may link against symbols that only exist once
// stage one has been mapped into the process. The stages therefore run
// strictly in sequence and stage two is never attempted after stage one
// fails.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/registry"
)

// ErrLoadFailure is matched by every error returned from a stage.
var ErrLoadFailure = errors.New("load failure")

// Stage is one library in the chain.
type Stage struct {
	Name string
	Path string
}

// LoadError reports which stage failed.
type LoadError struct {
	Stage string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load %s '%s': %v", e.Stage, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoadFailure, e.Err} }

// Loader opens stages and records the outcome in a registry.
type Loader struct {
	opener   native.Opener
	registry *registry.Registry
}

// New creates a Loader.
func New(opener native.Opener, reg *registry.Registry) *Loader {
	return &Loader{opener: opener, registry: reg}
}

// LoadStage loads a single stage. A library the registry already holds is
// returned as is; a library that failed before is not retried.
func (l *Loader) LoadStage(ctx context.Context, stage Stage) (*registry.Handle, error) {
	logger := ctxlog.FromContext(ctx).With("stage", stage.Name, "path", stage.Path)

	if stage.Path == "" {
		err := &LoadError{Stage: stage.Name, Path: stage.Path, Err: errors.New("no library path configured")}
		logger.Error("Stage has no library path.")
		return nil, err
	}

	if h, ok := l.registry.Lookup(stage.Path); ok {
		switch {
		case h.Loaded():
			logger.Debug("Library already resident, skipping load.", "handle", fmt.Sprintf("%#x", h.Raw()))
			return h, nil
		case h.Err != nil:
			logger.Warn("Library failed earlier in this session, not retrying.", "error", h.Err)
			return nil, &LoadError{Stage: stage.Name, Path: stage.Path, Err: h.Err}
		}
	}

	logger.Info("Loading library...")
	lib, err := l.opener.Open(stage.Path)
	if err != nil {
		l.registry.RecordFailed(stage.Path, err)
		logger.Error("Could not load library. Check that this file is installed correctly.", "error", err)
		return nil, &LoadError{Stage: stage.Name, Path: stage.Path, Err: err}
	}

	h := l.registry.RecordLoaded(stage.Path, lib)
	logger.Debug("Library loaded.", "handle", fmt.Sprintf("%#x", h.Raw()))
	return h, nil
}

// LoadChain loads stages in order and stops at the first failure. The
// returned handles cover the stages that succeeded.
func (l *Loader) LoadChain(ctx context.Context, stages ...Stage) ([]*registry.Handle, error) {
	handles := make([]*registry.Handle, 0, len(stages))
	for _, stage := range stages {
		h, err := l.LoadStage(ctx, stage)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
