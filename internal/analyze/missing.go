// Package analyze implements the dependency analyser (C9 in spec.md §4.9):
// joining mission dependencies against the class table to surface missing
// classes and fuzzy-matched candidates, plus the supplemented weapon/
// magazine compatibility resolver (C10, see compat.go).
package analyze

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"
	"github.com/jward/pboindex/internal/store"
)

// MissingReport is one mission's missing-class analysis (spec.md §4.9).
type MissingReport struct {
	MissionID string
	Missing   []string // distinct class_name values, case-insensitive miss
}

// FuzzyCandidate is one ranked suggestion for a missing class.
type FuzzyCandidate struct {
	ClassID    string
	Similarity float64
}

// FindMissing performs the single bulk query described in spec.md §4.9:
// pull every dependency row once, join against a case-insensitive
// membership test on the in-memory class id set, and group misses by
// mission.
func FindMissing(db *store.Store) ([]MissingReport, error) {
	deps, err := store.AllMissionDependencies(db.DB())
	if err != nil {
		return nil, err
	}
	ids, err := store.AllClassIDs(db.DB())
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[strings.ToLower(id)] = struct{}{}
	}

	byMission := make(map[string]map[string]struct{})
	var order []string
	for _, d := range deps {
		if _, ok := known[strings.ToLower(d.ClassName)]; ok {
			continue
		}
		set, exists := byMission[d.MissionID]
		if !exists {
			set = make(map[string]struct{})
			byMission[d.MissionID] = set
			order = append(order, d.MissionID)
		}
		set[d.ClassName] = struct{}{}
	}
	sort.Strings(order)

	reports := make([]MissingReport, 0, len(order))
	for _, missionID := range order {
		set := byMission[missionID]
		missing := make([]string, 0, len(set))
		for name := range set {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		reports = append(reports, MissingReport{MissionID: missionID, Missing: missing})
	}
	return reports, nil
}

// FuzzyOptions configures the candidate search (spec.md §6: fuzzy_threshold,
// fuzzy_top_n).
type FuzzyOptions struct {
	Threshold float64
	TopN      int
}

// DefaultFuzzyOptions matches spec.md §6's documented defaults.
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{Threshold: 0.8, TopN: 5}
}

// FuzzyCandidates computes, for each name in missing, the top-N existing
// class ids by Jaro-Winkler similarity (spec.md §4.9), run in parallel
// across missing classes against a single pre-materialised id list.
func FuzzyCandidates(allClassIDs []string, missing []string, opts FuzzyOptions) map[string][]FuzzyCandidate {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	results := make(map[string][]FuzzyCandidate, len(missing))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range missing {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			cands := candidatesFor(name, allClassIDs, opts)
			mu.Lock()
			results[name] = cands
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func candidatesFor(name string, allClassIDs []string, opts FuzzyOptions) []FuzzyCandidate {
	var cands []FuzzyCandidate
	for _, id := range allClassIDs {
		score, err := edlib.StringsSimilarity(name, id, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		sim := float64(score)
		if sim >= opts.Threshold {
			cands = append(cands, FuzzyCandidate{ClassID: id, Similarity: sim})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Similarity != cands[j].Similarity {
			return cands[i].Similarity > cands[j].Similarity
		}
		return cands[i].ClassID < cands[j].ClassID
	})
	if len(cands) > opts.TopN {
		cands = cands[:opts.TopN]
	}
	return cands
}
