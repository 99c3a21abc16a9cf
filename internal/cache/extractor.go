package cache

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jward/pboindex/internal/perr"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// Decoder invokes the native PBO byte-format decoder out of process and
// reports the files it wrote beneath destDir, relative to destDir. The
// decoder itself is an existing native component invoked, not redesigned
// (spec.md §1 out-of-scope).
type Decoder interface {
	Decode(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error)
}

// CommandDecoder shells out to an external decoder binary, one process per
// archive, matching spec.md §5's "out-of-process operation per archive".
type CommandDecoder struct {
	BinaryPath string
}

func (d *CommandDecoder) Decode(ctx context.Context, archivePath, destDir string, extensions []string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}
	args := []string{"extract", archivePath, "--dest", destDir}
	for _, ext := range extensions {
		args = append(args, "--ext", ext)
	}
	cmd := exec.CommandContext(ctx, d.BinaryPath, args...)
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return walkExtracted(destDir)
}

func walkExtracted(destDir string) ([]string, error) {
	var out []string
	err := filepath.Walk(destDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(destDir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

// ExtractionTimeout is applied per archive unless overridden (spec.md §4.2,
// default 60s).
const ExtractionTimeout = 60 * time.Second

// Extractor drives C2: decide per-archive whether to extract, run the
// decoder with a timeout and circuit breaker, and commit manifest entries.
type Extractor struct {
	Decoder  Decoder
	Manifest *Manifest
	CacheDir string
	Timeout  time.Duration
	Workers  int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	breaker *gobreaker.CircuitBreaker
}

// NewExtractor builds an Extractor with a circuit breaker guarding the
// decoder invocation: five consecutive failures trip the breaker open for
// 30s, preventing a storm of timeouts against a wedged decoder binary from
// serializing every worker behind its own timeout.
func NewExtractor(decoder Decoder, manifest *Manifest, cacheDir string, timeout time.Duration, workers int) *Extractor {
	if timeout <= 0 {
		timeout = ExtractionTimeout
	}
	if workers <= 0 {
		workers = 1
	}
	e := &Extractor{
		Decoder:  decoder,
		Manifest: manifest,
		CacheDir: cacheDir,
		Timeout:  timeout,
		Workers:  workers,
		locks:    make(map[string]*sync.Mutex),
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pbo-decoder",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return e
}

func (e *Extractor) lockFor(key string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// Request describes one archive to consider for extraction.
type Request struct {
	Path       string
	Kind       Kind
	BaseDir    string
	Extensions []string
}

// Outcome reports what happened to one archive.
type Outcome struct {
	Path           string
	Cached         bool
	ExtractedFiles []string
	Err            error
}

// Run extracts every request, respecting the configured worker count and
// per-archive locking, and commits manifest updates as each archive
// finishes (spec.md §4.2/§5). Per-archive failures are captured in the
// returned outcomes, not returned as a top-level error; only ctx
// cancellation or a programming error aborts the whole run early.
func (e *Extractor) Run(ctx context.Context, requests []Request) ([]Outcome, error) {
	outcomes := make([]Outcome, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			outcomes[i] = e.runOne(gctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, perr.Cancelled("", err)
	}
	if err := ctx.Err(); err != nil {
		return outcomes, perr.Cancelled("", err)
	}
	return outcomes, nil
}

func (e *Extractor) runOne(ctx context.Context, req Request) Outcome {
	if ctx.Err() != nil {
		return Outcome{Path: req.Path, Err: perr.Cancelled(req.Path, ctx.Err())}
	}

	key := ArchiveKey(req.Path)
	lock := e.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	info, err := os.Stat(req.Path)
	if err != nil {
		return Outcome{Path: req.Path, Err: perr.Extraction(req.Path, fmt.Errorf("ArchiveNotFound: %w", err))}
	}

	existing := e.Manifest.Entry(req.Kind, key)
	if !NeedsExtraction(existing, req.Path, info.Size(), info.ModTime(), req.Extensions) {
		return Outcome{Path: req.Path, Cached: true, ExtractedFiles: existing.ExtractedFiles}
	}

	destDir := filepath.Join(e.CacheDir, cacheSubdir(req.Kind), stemWithHash(req.Path))

	timeoutCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	result, err := e.breaker.Execute(func() (any, error) {
		return e.Decoder.Decode(timeoutCtx, req.Path, destDir, req.Extensions)
	})
	if err != nil {
		if timeoutCtx.Err() != nil {
			return Outcome{Path: req.Path, Err: perr.Extraction(req.Path, fmt.Errorf("DecoderTimeout: %w", err))}
		}
		return Outcome{Path: req.Path, Err: perr.Extraction(req.Path, fmt.Errorf("DecoderFailure: %w", err))}
	}
	extracted, _ := result.([]string)

	entry := &ManifestEntry{
		Path:           req.Path,
		BaseDir:        req.BaseDir,
		LastModified:   info.ModTime(),
		FileSize:       info.Size(),
		ExtractionTime: time.Now().UTC(),
		ExtractedFiles: extracted,
		UsedExtensions: req.Extensions,
		PboType:        req.Kind,
	}
	e.Manifest.Put(req.Kind, key, entry)
	if err := e.Manifest.Save(); err != nil {
		return Outcome{Path: req.Path, Err: err}
	}

	return Outcome{Path: req.Path, ExtractedFiles: extracted}
}

func cacheSubdir(kind Kind) string {
	if kind == KindMission {
		return "missions"
	}
	return "gamedata"
}

func stemWithHash(path string) string {
	base := filepath.Base(path)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return fmt.Sprintf("%s_%s", stem, HashSuffix(path))
}
