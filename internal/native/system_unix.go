//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package native

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// System opens shared objects through the platform dynamic loader.
// Libraries are opened RTLD_GLOBAL so that symbols published by an earlier
// stage are visible to the libraries loaded after it.
type System struct{}

// Open implements Opener. dlopen reference-counts resident objects, so
// opening a library a second time does not run its constructors again.
func (System) Open(path string) (Library, error) {
	if err := checkOnDisk(path); err != nil {
		return nil, err
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &systemLibrary{path: path, handle: handle}, nil
}

type systemLibrary struct {
	path   string
	handle uintptr
}

func (l *systemLibrary) Path() string  { return l.path }
func (l *systemLibrary) Addr() uintptr { return l.handle }

func (l *systemLibrary) Lookup(name string, fnPtr any) error {
	if _, err := checkFuncPtr(fnPtr); err != nil {
		return err
	}
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil || addr == 0 {
		return fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	return bind(fnPtr, addr)
}
