package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	calls   int32
	files   []string
	failing bool
}

func (f *fakeDecoder) Decode(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failing {
		return nil, errors.New("decode failed")
	}
	return f.files, nil
}

func newExtractorArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, "mission.pbo")
	require.NoError(t, os.WriteFile(archive, []byte("bytes"), 0o644))
	return archive
}

func TestExtractor_Run_ExtractsOnFirstPassThenCachesSecond(t *testing.T) {
	archive := newExtractorArchive(t)
	cacheDir := t.TempDir()
	manifest, err := LoadManifest(cacheDir)
	require.NoError(t, err)

	decoder := &fakeDecoder{files: []string{"config.cpp"}}
	ex := NewExtractor(decoder, manifest, cacheDir, 0, 1)

	req := Request{Path: archive, Kind: KindGameData, BaseDir: filepath.Dir(archive), Extensions: []string{"cpp"}}

	outcomes, err := ex.Run(context.Background(), []Request{req})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].Cached)
	require.Equal(t, []string{"config.cpp"}, outcomes[0].ExtractedFiles)
	require.EqualValues(t, 1, decoder.calls)

	outcomes, err = ex.Run(context.Background(), []Request{req})
	require.NoError(t, err)
	require.True(t, outcomes[0].Cached)
	require.EqualValues(t, 1, decoder.calls, "second run should hit the cache without invoking the decoder again")
}

func TestExtractor_Run_ArchiveNotFoundReportsPerArchiveError(t *testing.T) {
	cacheDir := t.TempDir()
	manifest, err := LoadManifest(cacheDir)
	require.NoError(t, err)
	decoder := &fakeDecoder{}
	ex := NewExtractor(decoder, manifest, cacheDir, 0, 1)

	req := Request{Path: filepath.Join(t.TempDir(), "missing.pbo"), Kind: KindGameData, Extensions: []string{"cpp"}}
	outcomes, err := ex.Run(context.Background(), []Request{req})
	require.NoError(t, err)
	require.Error(t, outcomes[0].Err)
}

func TestExtractor_Run_DecoderFailureDoesNotAbortOtherArchives(t *testing.T) {
	cacheDir := t.TempDir()
	manifest, err := LoadManifest(cacheDir)
	require.NoError(t, err)
	decoder := &fakeDecoder{failing: true}
	ex := NewExtractor(decoder, manifest, cacheDir, 0, 2)

	a := newExtractorArchive(t)
	b := newExtractorArchive(t)
	reqs := []Request{
		{Path: a, Kind: KindGameData, Extensions: []string{"cpp"}},
		{Path: b, Kind: KindGameData, Extensions: []string{"cpp"}},
	}

	outcomes, err := ex.Run(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Error(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
}
