package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_TOMLPopulatesEveryField(t *testing.T) {
	path := writeConfig(t, "config.toml", `
game_data_dirs = ["/data/gamedata"]
mission_dirs = ["/data/missions"]
game_data_extensions = ["cpp", "hpp"]
mission_extensions = ["sqm", "sqf"]
cache_dir = "`+t.TempDir()+`"
threads = 8
parser_mode = "simple"
fuzzy_threshold = 0.75
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/data/gamedata"}, cfg.GameDataDirs)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, "simple", cfg.ParserMode)
	require.Equal(t, 0.75, cfg.FuzzyThreshold)
	require.Contains(t, cfg.VerbSet, "addWeapon", "empty verb_set should fall back to the equipment-addition verb family")
	require.Contains(t, cfg.VerbSet, "addMagazine", "empty verb_set should fall back to the equipment-addition verb family")
	require.NotContains(t, cfg.VerbSet, "createVehicle", "default verb set must not include generic SQF functions")
}

func TestLoad_JSONConfigIsRecognisedByExtension(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"mission_dirs": ["/data/missions"],
		"cache_dir": "`+t.TempDir()+`",
		"threads": 2,
		"parser_mode": "advanced"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Threads)
	require.Equal(t, []string{"/data/missions"}, cfg.MissionDirs)
}

func TestLoad_EnvOverlayOverridesFileValue(t *testing.T) {
	path := writeConfig(t, "config.toml", `
mission_dirs = ["/data/missions"]
cache_dir = "`+t.TempDir()+`"
threads = 2
parser_mode = "advanced"
`)
	t.Setenv("PBOINDEX_THREADS", "16")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Threads)
}

func TestValidate_RejectsNonPositiveThreads(t *testing.T) {
	cfg := &Config{Threads: 0, MissionDirs: []string{"x"}, CacheDir: t.TempDir(), ParserMode: "advanced"}
	require.Error(t, cfg.Validate())
}

func TestValidate_RequiresAtLeastOneRootKind(t *testing.T) {
	cfg := &Config{Threads: 1, CacheDir: t.TempDir(), ParserMode: "advanced"}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeFuzzyThreshold(t *testing.T) {
	cfg := &Config{Threads: 1, MissionDirs: []string{"x"}, CacheDir: t.TempDir(), ParserMode: "advanced", FuzzyThreshold: 1.5}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownParserMode(t *testing.T) {
	cfg := &Config{Threads: 1, MissionDirs: []string{"x"}, CacheDir: t.TempDir(), ParserMode: "weird"}
	require.Error(t, cfg.Validate())
}

func TestExtractorDBPathOrDefault_FallsBackBeneathCacheDir(t *testing.T) {
	cfg := &Config{CacheDir: "/var/cache/pboindex"}
	require.Equal(t, "/var/cache/pboindex/extractor.db", cfg.ExtractorDBPathOrDefault())
}

func TestAnalysisDBPathOrDefault_FallsBackToExtractorDB(t *testing.T) {
	cfg := &Config{CacheDir: "/var/cache/pboindex"}
	require.Equal(t, cfg.ExtractorDBPathOrDefault(), cfg.AnalysisDBPathOrDefault())
}
