// Package graph implements the graph query engine (C8 in spec.md §4.8):
// hierarchy walks, impact-analysis closures, and empty-PBO prediction,
// operating entirely against the relational store with no additional
// persistent state of its own. The bulk-load-adjacency-then-walk-in-memory
// pattern avoids one SQL round trip per node during closure computation.
package graph

import (
	"fmt"
	"sort"

	"github.com/jward/pboindex/internal/store"
)

// Edge is one parent -> child relationship in a hierarchy result.
type Edge struct {
	Parent string
	Child  string
}

// Hierarchy is the result of a hierarchy-build query.
type Hierarchy struct {
	Roots []string
	Edges []Edge
}

// adjacency maps class id -> sorted child ids, built once per call so a
// hierarchy/impact computation never issues more than the handful of bulk
// queries needed to load the full classes table.
type adjacency struct {
	childrenOf map[string][]string
	parentOf   map[string]string
	allIDs     map[string]struct{}
}

func loadAdjacency(classes []*store.Class) *adjacency {
	a := &adjacency{
		childrenOf: make(map[string][]string),
		parentOf:   make(map[string]string),
		allIDs:     make(map[string]struct{}, len(classes)),
	}
	for _, c := range classes {
		a.allIDs[c.ID] = struct{}{}
		if c.ParentID != nil {
			a.parentOf[c.ID] = *c.ParentID
		}
	}
	for _, c := range classes {
		if c.ParentID != nil {
			a.childrenOf[*c.ParentID] = append(a.childrenOf[*c.ParentID], c.ID)
		}
	}
	for k := range a.childrenOf {
		sort.Strings(a.childrenOf[k])
	}
	return a
}

// hasParentInStore reports whether id's parent_id, if any, exists as a
// class row.
func (a *adjacency) hasParentInStore(id string) bool {
	parent, ok := a.parentOf[id]
	if !ok {
		return false
	}
	_, exists := a.allIDs[parent]
	return exists
}

// roots returns classes with no parent, or whose parent is absent from the
// store, sorted alphabetically (spec.md §4.8).
func (a *adjacency) roots() []string {
	var out []string
	for id := range a.allIDs {
		if _, hasParent := a.parentOf[id]; !hasParent || !a.hasParentInStore(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// BuildHierarchy returns the descendant graph of root (or the full forest
// of roots when root is "") within maxDepth, excluding any subtree whose
// node id has one of the given prefixes (spec.md §4.8).
func BuildHierarchy(db *store.Store, root string, maxDepth int, excludePrefixes []string) (*Hierarchy, error) {
	classes, err := store.AllClasses(db.DB())
	if err != nil {
		return nil, fmt.Errorf("build hierarchy: load classes: %w", err)
	}
	a := loadAdjacency(classes)

	excluded := func(id string) bool {
		for _, prefix := range excludePrefixes {
			if len(prefix) > 0 && len(id) >= len(prefix) && id[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}

	var roots []string
	if root != "" {
		if _, ok := a.allIDs[root]; !ok {
			return &Hierarchy{}, nil
		}
		roots = []string{root}
	} else {
		roots = a.roots()
	}

	h := &Hierarchy{}
	visited := make(map[string]struct{})
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if excluded(id) {
			return
		}
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		for _, child := range a.childrenOf[id] {
			if excluded(child) {
				continue
			}
			h.Edges = append(h.Edges, Edge{Parent: id, Child: child})
			walk(child, depth+1)
		}
	}
	for _, r := range roots {
		if excluded(r) {
			continue
		}
		h.Roots = append(h.Roots, r)
		walk(r, 0)
	}
	return h, nil
}

// Impact is the three-way disjoint partition computed by impact analysis
// (spec.md §4.8).
type Impact struct {
	Removed  []string
	Orphaned []string
	Affected []string
	// CycleWarning is set if the parent-chain acyclicity invariant was
	// violated; when set, Removed, Orphaned and Affected are left empty
	// (spec.md §9).
	CycleWarning string
}

// AnalyzeImpact computes removed/orphaned/affected for a notional removal
// of the given class names (spec.md §4.8). Closure is defensively guarded
// by a visited set so a malformed cyclic graph cannot hang the computation.
func AnalyzeImpact(db *store.Store, remove []string) (*Impact, error) {
	classes, err := store.AllClasses(db.DB())
	if err != nil {
		return nil, fmt.Errorf("analyze impact: load classes: %w", err)
	}
	a := loadAdjacency(classes)

	removedSet := make(map[string]struct{})
	for _, name := range remove {
		if _, ok := a.allIDs[name]; ok {
			removedSet[name] = struct{}{}
		}
	}

	orphanedSet := make(map[string]struct{})
	visited := make(map[string]struct{})
	var queue []string
	for id := range removedSet {
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		chain := map[string]struct{}{id: {}}
		for cur := id; ; {
			parent, ok := a.parentOf[cur]
			if !ok {
				break
			}
			if _, dup := chain[parent]; dup {
				return &Impact{CycleWarning: "parent-chain cycle detected; impact results suppressed for this component"}, nil
			}
			chain[parent] = struct{}{}
			cur = parent
		}
		for _, child := range a.childrenOf[id] {
			if _, inRemoved := removedSet[child]; inRemoved {
				continue
			}
			if _, inOrphaned := orphanedSet[child]; !inOrphaned {
				orphanedSet[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}

	affectedSet := make(map[string]struct{})
	for id := range a.allIDs {
		if _, r := removedSet[id]; r {
			continue
		}
		if _, o := orphanedSet[id]; o {
			continue
		}
		cur := id
		seenChain := make(map[string]struct{})
		for {
			parent, ok := a.parentOf[cur]
			if !ok {
				break
			}
			if _, seen := seenChain[parent]; seen {
				break // defensive: cyclic chain, stop walking this one
			}
			seenChain[parent] = struct{}{}
			if _, r := removedSet[parent]; r {
				affectedSet[id] = struct{}{}
				break
			}
			if _, o := orphanedSet[parent]; o {
				affectedSet[id] = struct{}{}
				break
			}
			cur = parent
		}
	}

	result := &Impact{
		Removed:  sortedKeys(removedSet),
		Orphaned: sortedKeys(orphanedSet),
		Affected: sortedKeys(affectedSet),
	}
	return result, nil
}

// EmptyPBOs computes the set of pbo_id values where every resolvable class
// sourced from that pbo is within combined (spec.md §4.8). A pbo with zero
// resolvable classes is filtered out, not considered empty.
func EmptyPBOs(db *store.Store, combined []string) ([]string, error) {
	classes, err := store.AllClasses(db.DB())
	if err != nil {
		return nil, fmt.Errorf("empty pbos: load classes: %w", err)
	}
	mappings, err := store.AllFileIndexMappings(db.DB())
	if err != nil {
		return nil, fmt.Errorf("empty pbos: load file index mappings: %w", err)
	}
	indexToPbo := make(map[int64]string, len(mappings))
	for _, m := range mappings {
		if m.PboID != nil {
			indexToPbo[m.FileIndex] = *m.PboID
		}
	}

	combinedSet := make(map[string]struct{}, len(combined))
	for _, id := range combined {
		combinedSet[id] = struct{}{}
	}

	classCountByPbo := make(map[string]int)
	resolvedByPbo := make(map[string]int)
	for _, c := range classes {
		if c.SourceFileIndex == nil {
			continue
		}
		pbo, ok := indexToPbo[*c.SourceFileIndex]
		if !ok {
			continue
		}
		classCountByPbo[pbo]++
		if _, in := combinedSet[c.ID]; in {
			resolvedByPbo[pbo]++
		}
	}

	var out []string
	for pbo, total := range classCountByPbo {
		if total == 0 {
			continue
		}
		if resolvedByPbo[pbo] == total {
			out = append(out, pbo)
		}
	}
	sort.Strings(out)
	return out, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
