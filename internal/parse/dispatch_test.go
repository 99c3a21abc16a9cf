package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/pboindex/internal/parse/configdialect"
	"github.com/jward/pboindex/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath, store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDialectFor_RoutesByExtension(t *testing.T) {
	require.Equal(t, DialectConfig, DialectFor("config.cpp"))
	require.Equal(t, DialectScript, DialectFor("init.sqf"))
	require.Equal(t, DialectMission, DialectFor("mission.sqm"))
	require.Equal(t, Dialect(""), DialectFor("readme.txt"))
}

func TestDispatchFile_ConfigProducesClassesBoundToFileIndex(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	path := writeTempFile(t, "config.cpp", `class arifle_MX_F : Rifle_Base_F { scope = 2; };`)
	d := NewDispatcher(tx, Options{ParserMode: configdialect.ModeAdvanced})

	report := &Report{}
	d.DispatchFile(path, "config.cpp", ptrStr("P1"), report)
	require.Empty(t, report.Failed)
	require.Len(t, report.Classes, 1)
	require.Equal(t, "arifle_MX_F", report.Classes[0].ID)
	require.NotNil(t, report.Classes[0].SourceFileIndex)

	require.NoError(t, tx.Commit())
}

func TestDispatchFile_ScriptProducesDependenciesWithLineNumbers(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	path := writeTempFile(t, "init.sqf", "_unit addWeapon \"arifle_MX_F\";\n")
	d := NewDispatcher(tx, Options{ScriptVerbs: []string{"addWeapon"}})

	report := &Report{}
	d.DispatchFile(path, "init.sqf", nil, report)
	require.Len(t, report.Dependencies, 1)
	require.Equal(t, "arifle_MX_F", report.Dependencies[0].ClassName)
	require.Equal(t, store.RefDirect, report.Dependencies[0].ReferenceKind)
	require.NotNil(t, report.Dependencies[0].LineNumber)

	require.NoError(t, tx.Commit())
}

func TestDispatchFile_MissionProducesComponentDependencies(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	path := writeTempFile(t, "mission.sqm", `
class Mission {
	class Entities {
		class Item0 {
			class Attributes {
				class Inventory {
					class uniform { typeName = "U_B_CombatUniform_mcam"; };
				};
			};
		};
	};
};
`)
	d := NewDispatcher(tx, Options{})

	report := &Report{}
	d.DispatchFile(path, "mission.sqm", ptrStr("M1"), report)
	require.Len(t, report.Dependencies, 1)
	require.Equal(t, "U_B_CombatUniform_mcam", report.Dependencies[0].ClassName)
	require.Equal(t, store.RefComponent, report.Dependencies[0].ReferenceKind)

	require.NoError(t, tx.Commit())
}

func TestDispatchFile_UnclaimedExtensionIsSkippedSilently(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	path := writeTempFile(t, "readme.txt", "nothing to see here")
	d := NewDispatcher(tx, Options{})

	report := &Report{}
	d.DispatchFile(path, "readme.txt", nil, report)
	require.Empty(t, report.Classes)
	require.Empty(t, report.Dependencies)
	require.Empty(t, report.Failed)

	require.NoError(t, tx.Commit())
}

func TestClaimedExtensions_IncludesAllThreeDialects(t *testing.T) {
	exts := ClaimedExtensions()
	require.Contains(t, exts, "cpp")
	require.Contains(t, exts, "sqf")
	require.Contains(t, exts, "sqm")
}

func ptrStr(s string) *string { return &s }
