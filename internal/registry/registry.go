package registry

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/stageloader/internal/native"
)

// Status is the load state of a library.
type Status int

const (
	StatusUnloaded Status = iota
	StatusLoaded
	StatusLoadFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoaded:
		return "loaded"
	case StatusLoadFailed:
		return "load-failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Handle is the registry's record of one library.
type Handle struct {
	Path    string
	Status  Status
	Library native.Library
	Err     error
}

// Raw returns the OS handle value, or zero when the library is not loaded.
func (h *Handle) Raw() uintptr {
	if h == nil || h.Library == nil {
		return 0
	}
	return h.Library.Addr()
}

// Loaded reports whether the handle refers to a resident library.
func (h *Handle) Loaded() bool {
	return h != nil && h.Status == StatusLoaded
}

// Registry holds the handles for a single loader instance. Writes come from
// the load sequence; Snapshot may be called from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	order   []string
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Lookup returns the handle recorded for path.
func (r *Registry) Lookup(path string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[path]
	return h, ok
}

// RecordLoaded stores a successful load of path.
func (r *Registry) RecordLoaded(path string, lib native.Library) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.entry(path)
	h.Status = StatusLoaded
	h.Library = lib
	h.Err = nil
	return h
}

// RecordFailed stores a failed load of path.
func (r *Registry) RecordFailed(path string, err error) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.entry(path)
	h.Status = StatusLoadFailed
	h.Library = nil
	h.Err = err
	return h
}

func (r *Registry) entry(path string) *Handle {
	if h, ok := r.handles[path]; ok {
		return h
	}
	h := &Handle{Path: path}
	r.handles[path] = h
	r.order = append(r.order, path)
	return h
}

// Handles returns every handle in the order the paths were first requested.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.handles[p])
	}
	return out
}

// Snapshot returns copies of every handle in request order. Unlike Handles,
// the result can be read while a load is running.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, *r.handles[p])
	}
	return out
}

// Reset marks every handle unloaded and forgets it. It is meant for process
// teardown; the libraries themselves stay mapped.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handles {
		h.Status = StatusUnloaded
		h.Library = nil
	}
	r.handles = make(map[string]*Handle)
	r.order = nil
}
