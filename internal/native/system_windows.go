//go:build windows && (amd64 || arm64)

package native

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// System opens DLLs with LoadLibrary. The Windows loader keeps one copy of
// a module per process and reference-counts it, so loading a DLL another
// plugin already loaded hands back the resident module.
type System struct{}

// Open implements Opener.
func (System) Open(path string) (Library, error) {
	if err := checkOnDisk(path); err != nil {
		return nil, err
	}
	handle, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLibrary %s: %w", path, err)
	}
	return &systemLibrary{path: path, handle: handle}, nil
}

type systemLibrary struct {
	path   string
	handle windows.Handle
}

func (l *systemLibrary) Path() string  { return l.path }
func (l *systemLibrary) Addr() uintptr { return uintptr(l.handle) }

func (l *systemLibrary) Lookup(name string, fnPtr any) error {
	if _, err := checkFuncPtr(fnPtr); err != nil {
		return err
	}
	addr, err := windows.GetProcAddress(l.handle, name)
	if err != nil || addr == 0 {
		return fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	return bind(fnPtr, addr)
}
