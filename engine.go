// Package pboindex ties the extraction cache, parser dispatch, relational
// store, graph queries, and dependency analyser into a single orchestrator
// that a CLI or other caller drives end to end.
package pboindex

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jward/pboindex/internal/cache"
	"github.com/jward/pboindex/internal/config"
	"github.com/jward/pboindex/internal/parse"
	"github.com/jward/pboindex/internal/parse/configdialect"
	"github.com/jward/pboindex/internal/store"
	"go.uber.org/zap"
)

// Engine owns one run's manifest, store handle, and configuration. Global
// mutable state is limited to these two values, both constructed fresh per
// run; there are no process-wide singletons (spec.md §9).
type Engine struct {
	Config   *config.Config
	Store    *store.Store
	Manifest *cache.Manifest
	Decoder  cache.Decoder
	Logger   *zap.Logger
}

// Stats summarises one run for the end-of-run report (spec.md §7).
type Stats struct {
	ArchivesProcessed int
	ArchivesSkipped   int
	ArchivesFailed    int
	ClassesAdded      int
	MissionsAdded     int
	DependenciesAdded int
	FailedFiles       []parse.FailedFile
	Warnings          []parse.Warning
}

// New builds an Engine from cfg, opening (and migrating) the store and
// loading the extraction manifest.
func New(cfg *config.Config, decoder cache.Decoder, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	manifest, err := cache.LoadManifest(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.MaxConnections = cfg.MaxConnections
	storeCfg.BusyTimeoutMs = cfg.BusyTimeoutMs
	storeCfg.UseWAL = cfg.UseWAL
	storeCfg.CacheSize = cfg.CacheSize
	storeCfg.Synchronous = cfg.Synchronous

	st, err := store.NewStore(cfg.ExtractorDBPathOrDefault(), storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Engine{Config: cfg, Store: st, Manifest: manifest, Decoder: decoder, Logger: logger}, nil
}

// Close releases the store handle.
func (e *Engine) Close() error {
	return e.Store.Close()
}

// Run executes the full extract -> parse -> persist pipeline for both
// game-data and mission roots (spec.md §2 data flow: C1 -> C2 -> C3 ->
// {C4,C5,C6} -> C7).
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := e.runKind(ctx, cache.KindGameData, e.Config.GameDataDirs, e.Config.GameDataExtensions, stats); err != nil {
		return stats, err
	}
	if err := e.runKind(ctx, cache.KindMission, e.Config.MissionDirs, e.Config.MissionExtensions, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (e *Engine) runKind(ctx context.Context, kind cache.Kind, roots []string, extensions []string, stats *Stats) error {
	if len(roots) == 0 {
		return nil
	}

	scanResult := cache.Scan(roots)
	for _, scanErr := range scanResult.Errors {
		e.Logger.Warn("scan error", zap.String("path", scanErr.Path), zap.Error(scanErr.Err))
	}

	if len(extensions) == 0 {
		extensions = parse.ClaimedExtensions()
	}

	extractor := cache.NewExtractor(e.Decoder, e.Manifest, e.Config.CacheDir, time.Duration(e.Config.ExtractionTimeoutS)*time.Second, e.Config.Threads)

	var requests []cache.Request
	for _, archive := range scanResult.Archives {
		requests = append(requests, cache.Request{
			Path:       archive,
			Kind:       kind,
			BaseDir:    filepath.Dir(archive),
			Extensions: extensions,
		})
	}

	outcomes, err := extractor.Run(ctx, requests)
	if err != nil {
		return fmt.Errorf("extraction run: %w", err)
	}

	opts := parse.Options{
		ParserMode:       configdialect.Mode(e.Config.ParserMode),
		ScriptVerbs:      e.Config.VerbSet,
		MissionPatterns:  nil,
	}

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			stats.ArchivesFailed++
			e.Logger.Error("archive failed", zap.String("path", outcome.Path), zap.Error(outcome.Err))
			continue
		}
		if outcome.Cached {
			stats.ArchivesSkipped++
		} else {
			stats.ArchivesProcessed++
		}

		pboID := cache.ArchiveKey(outcome.Path)
		report, err := e.persistArchive(ctx, kind, outcome, pboID, opts)
		if err != nil {
			return fmt.Errorf("persist archive %s: %w", outcome.Path, err)
		}
		stats.ClassesAdded += len(report.Classes)
		stats.DependenciesAdded += len(report.Dependencies)
		stats.FailedFiles = append(stats.FailedFiles, report.Failed...)
		stats.Warnings = append(stats.Warnings, report.Warnings...)
		if kind == cache.KindMission {
			stats.MissionsAdded++
		}
	}
	return nil
}

// persistArchive runs parser dispatch over one archive's extracted files
// and commits its classes/dependencies in a single transaction (spec.md §5:
// "classes for a given archive are committed in a single transaction").
func (e *Engine) persistArchive(ctx context.Context, kind cache.Kind, outcome cache.Outcome, pboID string, opts parse.Options) (*parse.Report, error) {
	tx, err := e.Store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := store.DeleteClassesForPbo(tx, pboID); err != nil {
		return nil, err
	}
	if err := store.DeleteFileIndexMappingsForPbo(tx, pboID); err != nil {
		return nil, err
	}

	dispatcher := parse.NewDispatcher(tx, opts)
	report := &parse.Report{}

	destDir := cacheDirFor(e.Config.CacheDir, kind, outcome.Path)
	for _, rel := range outcome.ExtractedFiles {
		full := filepath.Join(destDir, rel)
		dispatcher.DispatchFile(full, rel, &pboID, report)
	}

	for _, c := range report.Classes {
		if err := store.UpsertClass(tx, c); err != nil {
			return nil, err
		}
	}

	if kind == cache.KindMission {
		missionID := pboID
		mission := &store.Mission{ID: missionID, Name: filepath.Base(outcome.Path), SourcePath: outcome.Path, ScannedAt: store.NowTruncated()}
		if err := store.UpsertMission(tx, mission); err != nil {
			return nil, err
		}

		components := make([]*store.MissionComponent, 0, len(outcome.ExtractedFiles))
		for _, rel := range outcome.ExtractedFiles {
			kind := string(parse.DialectFor(rel))
			if kind == "" {
				kind = "other"
			}
			components = append(components, &store.MissionComponent{
				MissionID:    missionID,
				ComponentID:  rel,
				Kind:         kind,
				RelativePath: rel,
			})
		}
		if err := store.ReplaceMissionComponents(tx, missionID, components); err != nil {
			return nil, err
		}

		for _, d := range report.Dependencies {
			d.MissionID = missionID
		}
		if err := store.ReplaceMissionDependencies(tx, missionID, report.Dependencies); err != nil {
			return nil, err
		}
	}

	return report, tx.Commit()
}

func cacheDirFor(cacheDir string, kind cache.Kind, archivePath string) string {
	sub := "gamedata"
	if kind == cache.KindMission {
		sub = "missions"
	}
	base := filepath.Base(archivePath)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(cacheDir, sub, fmt.Sprintf("%s_%s", stem, cache.HashSuffix(archivePath)))
}
