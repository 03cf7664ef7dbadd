//go:build (darwin || freebsd || linux || windows) && (amd64 || arm64)

package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ebitengine/purego"
)

// bind turns a C function address into a typed Go func. purego panics on
// signatures it cannot marshal; that is reported as ErrSymbolType so a bad
// declaration stays a recoverable lookup failure.
func bind(fnPtr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSymbolType, r)
		}
	}()
	purego.RegisterFunc(fnPtr, addr)
	return nil
}

// checkOnDisk only inspects paths with a directory part; bare names are
// left to the loader's search path.
func checkOnDisk(path string) error {
	if filepath.Base(path) == path {
		return nil
	}
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
	}
	return nil
}
