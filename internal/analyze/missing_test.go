package analyze

import (
	"path/filepath"
	"testing"

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

// TestFindMissing_LiteralScenario mirrors spec.md §8's missing-class
// example: a mission depends on "MyClas" (a typo) while the store only
// knows "MyClass", producing a miss whose fuzzy candidate is MyClass at
// high similarity.
func TestFindMissing_LiteralScenario(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.DB().Begin()
	require.NoError(t, err)
	require.NoError(t, store.UpsertClass(tx, &store.Class{ID: "MyClass", Properties: store.NewProperties()}))
	require.NoError(t, store.UpsertMission(tx, &store.Mission{ID: "m1", Name: "Test", SourcePath: "m1.pbo", ScannedAt: store.NowTruncated()}))
	require.NoError(t, store.ReplaceMissionDependencies(tx, "m1", []*store.MissionDependency{
		{MissionID: "m1", ClassName: "MyClas", ReferenceKind: store.RefComponent, SourceFileRelative: "mission.sqm"},
	}))
	require.NoError(t, tx.Commit())

	reports, err := FindMissing(s)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "m1", reports[0].MissionID)
	require.Equal(t, []string{"MyClas"}, reports[0].Missing)

	ids, err := store.AllClassIDs(s.DB())
	require.NoError(t, err)
	cands := FuzzyCandidates(ids, reports[0].Missing, DefaultFuzzyOptions())
	require.NotEmpty(t, cands["MyClas"])
	require.Equal(t, "MyClass", cands["MyClas"][0].ClassID)
	require.GreaterOrEqual(t, cands["MyClas"][0].Similarity, 0.9)
}

func TestFindMissing_KnownClassIsCaseInsensitiveMatch(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.DB().Begin()
	require.NoError(t, err)
	require.NoError(t, store.UpsertClass(tx, &store.Class{ID: "ArifleMXF", Properties: store.NewProperties()}))
	require.NoError(t, store.UpsertMission(tx, &store.Mission{ID: "m1", Name: "Test", SourcePath: "m1.pbo", ScannedAt: store.NowTruncated()}))
	require.NoError(t, store.ReplaceMissionDependencies(tx, "m1", []*store.MissionDependency{
		{MissionID: "m1", ClassName: "ARIFLEMXF", ReferenceKind: store.RefDirect, SourceFileRelative: "f.sqf"},
	}))
	require.NoError(t, tx.Commit())

	reports, err := FindMissing(s)
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestFuzzyCandidates_RespectsThresholdAndTopN(t *testing.T) {
	all := []string{"Aardvark", "Completely_Unrelated", "Zzz"}
	cands := FuzzyCandidates(all, []string{"Aarvark"}, FuzzyOptions{Threshold: 0.9, TopN: 1})
	require.Len(t, cands["Aarvark"], 1)
	require.Equal(t, "Aardvark", cands["Aarvark"][0].ClassID)
}
