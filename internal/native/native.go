// Package native opens dynamic libraries and binds their exported symbols to
// typed Go functions.
//
// Two backends implement Opener: System talks to the operating system's
// dynamic loader, Memory serves libraries assembled from Go values inside
// the process. Fallback combines them so that built-in libraries and real
// shared objects can take part in the same load sequence.
package native

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrLibraryNotFound      = errors.New("library not found")
	ErrUnresolvedDependency = errors.New("unresolved library dependency")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrSymbolType           = errors.New("symbol type mismatch")
	ErrUnsupported          = errors.New("dynamic loading is not supported on this platform")
)

// Library is a loaded module.
type Library interface {
	// Path is the path the library was opened with.
	Path() string
	// Addr is the raw OS handle, or a synthetic one for in-process libraries.
	Addr() uintptr
	// Lookup resolves name and stores it in fnPtr, which must be a non-nil
	// pointer to a func variable. It fails with ErrSymbolNotFound when the
	// library does not export name.
	Lookup(name string, fnPtr any) error
}

// Opener loads libraries. Opening a library that is already resident in
// the process returns it without running its initialization again.
type Opener interface {
	Open(path string) (Library, error)
}

// Provider is an Opener that knows which paths it can serve.
type Provider interface {
	Opener
	Provides(path string) bool
}

type fallback struct {
	primary   Provider
	secondary Opener
}

// Fallback routes the paths primary provides to primary and every other
// path to secondary.
func Fallback(primary Provider, secondary Opener) Opener {
	return &fallback{primary: primary, secondary: secondary}
}

func (f *fallback) Open(path string) (Library, error) {
	if f.primary.Provides(path) {
		return f.primary.Open(path)
	}
	return f.secondary.Open(path)
}

// checkFuncPtr validates the destination handed to Lookup.
func checkFuncPtr(fnPtr any) (reflect.Value, error) {
	v := reflect.ValueOf(fnPtr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("%w: destination must be a pointer to a func, got %T", ErrSymbolType, fnPtr)
	}
	return v.Elem(), nil
}
