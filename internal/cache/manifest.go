// Package cache implements the PBO extraction cache (C1 scanner and C2
// extraction cache from spec.md §4.1/§4.2): enumerating archives, deciding
// whether an archive needs re-extraction, and maintaining the on-disk
// extraction manifest.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jward/pboindex/internal/perr"
)

// Kind distinguishes the two archive roles named in spec.md §4.2.
type Kind string

const (
	KindGameData Kind = "GameData"
	KindMission  Kind = "Mission"
)

// ManifestEntry is one archive's cached extraction state (spec.md §4.2
// "Manifest entry fields").
type ManifestEntry struct {
	Path            string    `json:"path"`
	BaseDir         string    `json:"base_dir"`
	LastModified    time.Time `json:"last_modified"`
	FileSize        int64     `json:"file_size"`
	ExtractionTime  time.Time `json:"extraction_time"`
	ExtractedFiles  []string  `json:"extracted_files"`
	UsedExtensions  []string  `json:"used_extensions"`
	PboType         Kind      `json:"pbo_type"`
}

// manifestDoc is the on-disk shape described in spec.md §6: a single JSON
// document with two top-level maps, keyed by archive key. This follows
// Open Question (1)'s resolution in favour of the single-document form.
type manifestDoc struct {
	GameData map[string]*ManifestEntry `json:"game_data"`
	Missions map[string]*ManifestEntry `json:"missions"`
}

func newManifestDoc() *manifestDoc {
	return &manifestDoc{
		GameData: make(map[string]*ManifestEntry),
		Missions: make(map[string]*ManifestEntry),
	}
}

// Manifest owns the single extraction manifest file beneath cache_dir
// (spec.md §5: "the manifest is shared; mutations go through a single
// owner that serialises update application").
type Manifest struct {
	mu   sync.Mutex
	path string
	doc  *manifestDoc
}

// ArchiveKey returns the stable manifest key for an archive path: the
// absolute path, used verbatim as the map key.
func ArchiveKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(abs)
}

// HashSuffix returns the first 8 hex characters of the SHA-256 of path,
// used to disambiguate same-stem archives from different roots (spec.md §6).
func HashSuffix(path string) string {
	sum := sha256.Sum256([]byte(ArchiveKey(path)))
	return hex.EncodeToString(sum[:])[:8]
}

// LoadManifest loads cache_index.json from cacheDir, or starts an empty
// manifest if the file is absent. A read failure is returned as an IO
// error. A file that is not valid JSON is treated as ManifestCorrupt: the
// manifest starts from empty state and the file is overwritten on the next
// Save, never a fatal error. No warning is emitted for this case, and the
// caller cannot tell it apart from a missing file.
func LoadManifest(cacheDir string) (*Manifest, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, perr.IO(cacheDir, fmt.Errorf("create cache dir: %w", err))
	}
	path := filepath.Join(cacheDir, "cache_index.json")
	m := &Manifest{path: path, doc: newManifestDoc()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, perr.IO(path, err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// ManifestCorrupt: rebuild from empty; never halts the run.
		return m, nil
	}
	if doc.GameData == nil {
		doc.GameData = make(map[string]*ManifestEntry)
	}
	if doc.Missions == nil {
		doc.Missions = make(map[string]*ManifestEntry)
	}
	m.doc = &doc
	return m, nil
}

func (m *Manifest) bucket(kind Kind) map[string]*ManifestEntry {
	if kind == KindMission {
		return m.doc.Missions
	}
	return m.doc.GameData
}

// Entry returns the manifest entry for key under kind, or nil if absent.
func (m *Manifest) Entry(kind Kind, key string) *ManifestEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.bucket(kind)[key]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// Put records or replaces the entry for key under kind. Callers must call
// Save to persist the change.
func (m *Manifest) Put(kind Kind, key string, entry *ManifestEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(kind)[key] = entry
}

// Entries returns a sorted-by-key snapshot of every entry under kind.
func (m *Manifest) Entries(kind Kind) []*ManifestEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.bucket(kind)
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*ManifestEntry, 0, len(keys))
	for _, k := range keys {
		cp := *bucket[k]
		out = append(out, &cp)
	}
	return out
}

// Save writes the manifest to a sibling temporary file and renames it over
// the canonical path, per spec.md §4.2's atomicity contract.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.doc, "", "  ")
	if err != nil {
		return perr.IO(m.path, fmt.Errorf("marshal manifest: %w", err))
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return perr.IO(tmp, fmt.Errorf("write temp manifest: %w", err))
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return perr.IO(m.path, fmt.Errorf("rename manifest into place: %w", err))
	}
	return nil
}

// NeedsExtraction implements the re-extraction predicate of spec.md §4.2:
// needs re-extraction iff the archive is missing, its size or mtime
// differs from the manifest, the extension-filter set differs, or no
// manifest entry exists.
func NeedsExtraction(entry *ManifestEntry, path string, size int64, mtime time.Time, extensions []string) bool {
	if entry == nil {
		return true
	}
	if _, err := os.Stat(path); err != nil {
		return true
	}
	if entry.FileSize != size {
		return true
	}
	if !entry.LastModified.Equal(mtime) {
		return true
	}
	if !sameExtensionSet(entry.UsedExtensions, extensions) {
		return true
	}
	return false
}

func sameExtensionSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	norm := func(in []string) []string {
		out := make([]string, len(in))
		copy(out, in)
		sort.Strings(out)
		return out
	}
	na, nb := norm(a), norm(b)
	for i := range na {
		if !strings.EqualFold(na[i], nb[i]) {
			return false
		}
	}
	return true
}
