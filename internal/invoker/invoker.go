// Package invoker resolves entry points exported by loaded modules and calls
// them.
//
// An absent entry point is never fatal: the feature it would provide is
// treated as optional, the miss is logged at error level and the caller
// carries on. Calls are one-way; submodule entry points have no return
// channel to the host.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/specialistvlad/stageloader/internal/ctxlog"
	"github.com/specialistvlad/stageloader/internal/native"
	"github.com/specialistvlad/stageloader/internal/registry"
)

// InitializeFunc is the submodule's no-argument initialization entry point.
type InitializeFunc func()

// CommandFunc is the shape of a submodule command handler: an opaque
// subject handle plus three string arguments.
type CommandFunc func(subject uintptr, argA, argB, argC string)

// EventFunc receives a host event forwarded to the submodule.
type EventFunc func(kind uint32, sender string, payload string)

// InitializeSymbol is the conventional name of the initialization entry point.
const InitializeSymbol = "Initialize"

type cacheKey struct {
	handle *registry.Handle
	name   string
	typ    reflect.Type
}

// Invoker caches successful resolutions per handle. Every handle is created
// by a load, so the first resolution after a load is always a fresh lookup.
type Invoker struct {
	cache map[cacheKey]any
}

// New creates an Invoker.
func New() *Invoker {
	return &Invoker{cache: make(map[cacheKey]any)}
}

// Resolve looks up name in the module behind h and returns it as an F. The
// boolean is false when the module is not loaded, does not export name or
// exports it with a different shape; each of those is logged at error level.
func Resolve[F any](ctx context.Context, inv *Invoker, h *registry.Handle, name string) (F, bool) {
	var fn F
	logger := ctxlog.FromContext(ctx)

	if h == nil || !h.Loaded() {
		path := ""
		if h != nil {
			path = h.Path
		}
		logger.Error("Cannot resolve entry point in a module that is not loaded.", "symbol", name, "module", path)
		return fn, false
	}

	key := cacheKey{handle: h, name: name, typ: reflect.TypeFor[F]()}
	if cached, ok := inv.cache[key]; ok {
		return cached.(F), true
	}

	if err := h.Library.Lookup(name, &fn); err != nil {
		if errors.Is(err, native.ErrSymbolNotFound) {
			logger.Error("Submodule entry point not found.", "symbol", name, "module", h.Path)
		} else {
			logger.Error("Submodule entry point could not be bound.", "symbol", name, "module", h.Path, "error", err)
		}
		var zero F
		return zero, false
	}

	inv.cache[key] = fn
	logger.Debug("Resolved submodule entry point.", "symbol", name, "module", h.Path)
	return fn, true
}

// Initialize calls the module's Initialize entry point. It reports whether
// the entry point was found and called.
func (inv *Invoker) Initialize(ctx context.Context, h *registry.Handle) bool {
	return inv.InitializeNamed(ctx, h, InitializeSymbol)
}

// InitializeNamed is Initialize with a configurable symbol name.
func (inv *Invoker) InitializeNamed(ctx context.Context, h *registry.Handle, name string) bool {
	fn, ok := Resolve[InitializeFunc](ctx, inv, h, name)
	if !ok {
		return false
	}
	return call(ctx, name, func() { fn() })
}

// Command calls the named command handler with the fixed argument tuple.
func (inv *Invoker) Command(ctx context.Context, h *registry.Handle, name string, subject uintptr, argA, argB, argC string) bool {
	fn, ok := Resolve[CommandFunc](ctx, inv, h, name)
	if !ok {
		return false
	}
	return call(ctx, name, func() { fn(subject, argA, argB, argC) })
}

// Event forwards a host event to the named submodule entry point.
func (inv *Invoker) Event(ctx context.Context, h *registry.Handle, name string, kind uint32, sender, payload string) bool {
	fn, ok := Resolve[EventFunc](ctx, inv, h, name)
	if !ok {
		return false
	}
	return call(ctx, name, func() { fn(kind, sender, payload) })
}

// call runs a resolved Go-side entry point and turns a panic into a logged
// failure so one broken optional feature cannot take the host down.
func call(ctx context.Context, name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Submodule entry point panicked.", "symbol", name, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	fn()
	return true
}
