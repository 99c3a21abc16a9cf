package pboindex

import (
	"github.com/jward/pboindex/internal/analyze"
	"github.com/jward/pboindex/internal/graph"
	"github.com/jward/pboindex/internal/store"
)

// Hierarchy returns the descendant graph of root (or the full forest when
// root is "") within maxDepth, excluding any subtree under excludePrefixes
// (C8, spec.md §4.8).
func (e *Engine) Hierarchy(root string, maxDepth int, excludePrefixes []string) (*graph.Hierarchy, error) {
	return graph.BuildHierarchy(e.Store, root, maxDepth, excludePrefixes)
}

// ImpactAnalysis computes the removed/orphaned/affected partition for a
// notional removal of the given class names, plus the empty-PBO set over
// removed∪orphaned (C8, spec.md §4.8).
func (e *Engine) ImpactAnalysis(remove []string) (*graph.Impact, []string, error) {
	impact, err := graph.AnalyzeImpact(e.Store, remove)
	if err != nil {
		return nil, nil, err
	}
	if impact.CycleWarning != "" {
		return impact, nil, nil
	}
	combined := append(append([]string{}, impact.Removed...), impact.Orphaned...)
	empty, err := graph.EmptyPBOs(e.Store, combined)
	if err != nil {
		return impact, nil, err
	}
	return impact, empty, nil
}

// MissingClasses computes the per-mission missing-class report (C9,
// spec.md §4.9).
func (e *Engine) MissingClasses() ([]analyze.MissingReport, error) {
	return analyze.FindMissing(e.Store)
}

// FuzzyCandidates computes fuzzy-matched suggestions for a set of missing
// class names (C9, spec.md §4.9).
func (e *Engine) FuzzyCandidates(missing []string, opts analyze.FuzzyOptions) (map[string][]analyze.FuzzyCandidate, error) {
	ids, err := store.AllClassIDs(e.Store.DB())
	if err != nil {
		return nil, err
	}
	return analyze.FuzzyCandidates(ids, missing, opts), nil
}

// WeaponCompatibility resolves weapon/magazine-well compatibility across
// every class currently in the store (C10, supplemented feature).
func (e *Engine) WeaponCompatibility() ([]*analyze.WeaponInfo, error) {
	classes, err := store.AllClasses(e.Store.DB())
	if err != nil {
		return nil, err
	}
	cache := analyze.BuildMagazineWellCache(classes)
	weapons := analyze.WeaponsFromClasses(classes)
	analyze.ResolveCompatibility(weapons, cache)
	return weapons, nil
}
