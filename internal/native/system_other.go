//go:build !((darwin || freebsd || linux || windows) && (amd64 || arm64))

package native

// System reports ErrUnsupported on platforms without a dynamic loader
// binding.
type System struct{}

// Open implements Opener.
func (System) Open(path string) (Library, error) {
	return nil, ErrUnsupported
}
