package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScan_FindsPboCaseInsensitivelyAndSkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.PBO"), []byte("x"), 0o644))

	hidden := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "b.pbo"), []byte("x"), 0o644))

	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "c.pbo"), []byte("x"), 0o644))

	result := Scan([]string{root})
	require.Len(t, result.Archives, 2)
	require.Contains(t, result.Archives, filepath.Join(root, "a.PBO"))
	require.Contains(t, result.Archives, filepath.Join(nested, "c.pbo"))
}

func TestScan_ReturnsSortedDeduplicatedArchives(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "zzz.pbo"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "aaa.pbo"), []byte("x"), 0o644))

	result := Scan([]string{root, root})
	require.Equal(t, []string{
		filepath.Join(root, "aaa.pbo"),
		filepath.Join(root, "zzz.pbo"),
	}, result.Archives)
}

func TestScan_MissingRootRecordsNonFatalError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	result := Scan([]string{missing})
	require.Empty(t, result.Archives)
	require.Len(t, result.Errors, 1)
}
