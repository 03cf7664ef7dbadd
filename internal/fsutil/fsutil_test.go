package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLibraryPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "games", "oblivion")

	assert.Equal(t,
		filepath.Join(root, "Data", "obse", "Plugins", "COEF", "API", "ExportInjector.dll"),
		ResolveLibraryPath(root, `Data\obse\Plugins\COEF\API\ExportInjector.dll`))
	assert.Equal(t,
		filepath.Join(root, "plugins", "sub.so"),
		ResolveLibraryPath(root, "plugins/sub.so"))
	assert.Equal(t, "builtin:ExportInjector", ResolveLibraryPath(root, "builtin:ExportInjector"))
	assert.Equal(t, "", ResolveLibraryPath(root, ""))
	assert.Equal(t, filepath.Join("plugins", "sub.so"), ResolveLibraryPath("", "plugins/./sub.so"))
}
