package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/pboindex/internal/perr"
)

// ScanError is one non-fatal failure observed while walking a root, kept in
// the per-run diagnostics buffer rather than aborting the scan (spec.md
// §4.1: "no failure is fatal at this level").
type ScanError struct {
	Path string
	Err  error
}

// ScanResult is the sorted, deterministic archive list plus any per-item
// errors observed along the way.
type ScanResult struct {
	Archives []string
	Errors   []ScanError
}

// Scan walks every root in roots looking for files whose extension is
// "pbo" (case-insensitive), following symlinks and skipping hidden
// directories, and returns a sorted, deduplicated archive list (spec.md
// §4.1).
func Scan(roots []string) ScanResult {
	seen := make(map[string]struct{})
	var result ScanResult

	for _, root := range roots {
		walkRoot(root, seen, &result)
	}

	sort.Strings(result.Archives)
	return result
}

func walkRoot(root string, seen map[string]struct{}, result *ScanResult) {
	info, err := os.Stat(root)
	if err != nil {
		result.Errors = append(result.Errors, ScanError{Path: root, Err: perr.IO(root, err)})
		return
	}
	if !info.IsDir() {
		return
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		result.Errors = append(result.Errors, ScanError{Path: root, Err: perr.IO(root, err)})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(root, name)

		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			walkRoot(full, seen, result)
			continue
		}

		if entry.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(full)
			if err != nil {
				result.Errors = append(result.Errors, ScanError{Path: full, Err: perr.IO(full, err)})
				continue
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				result.Errors = append(result.Errors, ScanError{Path: full, Err: perr.IO(full, err)})
				continue
			}
			if targetInfo.IsDir() {
				walkRoot(target, seen, result)
				continue
			}
			full = target
		}

		if strings.EqualFold(filepath.Ext(name), ".pbo") {
			if _, dup := seen[full]; !dup {
				seen[full] = struct{}{}
				result.Archives = append(result.Archives, full)
			}
		}
	}
}
