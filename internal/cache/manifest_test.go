package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadManifest_MissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Empty(t, m.Entries(KindGameData))
	require.Empty(t, m.Entries(KindMission))
}

func TestLoadManifest_CorruptFileRebuildsEmptyInsteadOfFailing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache_index.json"), []byte("{not json"), 0o644))

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Empty(t, m.Entries(KindGameData))
}

func TestManifest_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(dir)
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.Put(KindGameData, "archiveA", &ManifestEntry{
		Path:           "archiveA",
		BaseDir:        "/roots/1",
		LastModified:   now,
		FileSize:       1234,
		ExtractionTime: now,
		ExtractedFiles: []string{"config.cpp"},
		UsedExtensions: []string{"cpp", "hpp"},
		PboType:        KindGameData,
	})
	require.NoError(t, m.Save())

	reloaded, err := LoadManifest(dir)
	require.NoError(t, err)
	entries := reloaded.Entries(KindGameData)
	require.Len(t, entries, 1)
	require.Equal(t, "archiveA", entries[0].Path)
	require.Equal(t, int64(1234), entries[0].FileSize)
	require.True(t, now.Equal(entries[0].LastModified))
}

func TestNeedsExtraction_UnchangedArchiveIsCacheHit(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.pbo")
	require.NoError(t, os.WriteFile(archive, []byte("pbo-bytes"), 0o644))
	info, err := os.Stat(archive)
	require.NoError(t, err)

	entry := &ManifestEntry{
		FileSize:       info.Size(),
		LastModified:   info.ModTime(),
		UsedExtensions: []string{"cpp", "hpp"},
	}
	require.False(t, NeedsExtraction(entry, archive, info.Size(), info.ModTime(), []string{"hpp", "cpp"}))
}

func TestNeedsExtraction_WideningExtensionSetForcesReExtraction(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.pbo")
	require.NoError(t, os.WriteFile(archive, []byte("pbo-bytes"), 0o644))
	info, err := os.Stat(archive)
	require.NoError(t, err)

	entry := &ManifestEntry{
		FileSize:       info.Size(),
		LastModified:   info.ModTime(),
		UsedExtensions: []string{"cpp"},
	}
	require.True(t, NeedsExtraction(entry, archive, info.Size(), info.ModTime(), []string{"cpp", "sqf"}))
}

func TestNeedsExtraction_NoEntryAlwaysNeedsExtraction(t *testing.T) {
	require.True(t, NeedsExtraction(nil, "missing.pbo", 10, time.Now(), []string{"cpp"}))
}

func TestNeedsExtraction_MissingArchiveFileNeedsExtraction(t *testing.T) {
	entry := &ManifestEntry{FileSize: 10, UsedExtensions: []string{"cpp"}}
	require.True(t, NeedsExtraction(entry, filepath.Join(t.TempDir(), "gone.pbo"), 10, time.Now(), []string{"cpp"}))
}
