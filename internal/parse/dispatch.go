// Package parse implements the parser dispatch layer (C3 in spec.md §4.3):
// routing extracted files to the correct dialect parser by extension and
// normalising their output into store-ready records.
package parse

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jward/pboindex/internal/parse/configdialect"
	"github.com/jward/pboindex/internal/parse/missiondialect"
	"github.com/jward/pboindex/internal/parse/scriptdialect"
	"github.com/jward/pboindex/internal/perr"
	"github.com/jward/pboindex/internal/store"
)

// Dialect names the three file kinds routed by the dispatcher.
type Dialect string

const (
	DialectConfig  Dialect = "config"
	DialectScript  Dialect = "script"
	DialectMission Dialect = "mission"
)

// DialectFor returns the dialect that claims path's extension, or "" if
// none does (spec.md §4.3's extension table).
func DialectFor(path string) Dialect {
	switch {
	case configdialect.CanParse(path):
		return DialectConfig
	case scriptdialect.CanParse(path):
		return DialectScript
	case missiondialect.CanParse(path):
		return DialectMission
	default:
		return ""
	}
}

// Options bundles dialect-specific parsing options (spec.md §6 config
// surface: parser_mode, verb_set).
type Options struct {
	ParserMode       configdialect.Mode
	ScriptVerbs      []string
	ScriptAllLiteral bool
	MissionPatterns  []missiondialect.QueryPattern
}

// FailedFile is one file the dispatcher could not parse, kept in the
// per-run "failed files" diagnostic report (spec.md §4.3).
type FailedFile struct {
	Path string
	Err  error
}

// Warning is a non-fatal dialect-level warning, aggregated per file but
// never affecting persistence. It carries no severity level.
type Warning struct {
	Path    string
	Message string
}

// Report is the dispatcher's accumulated output across every file in a run.
type Report struct {
	Classes      []*store.Class
	Dependencies []*store.MissionDependency
	Failed       []FailedFile
	Warnings     []Warning
}

// Dispatcher routes files to dialects and assigns file-index mappings.
type Dispatcher struct {
	Tx      *sql.Tx
	Options Options
}

// NewDispatcher returns a Dispatcher bound to an open transaction, so every
// class and dependency produced in one call commits atomically (spec.md
// §5: "classes for a given archive are committed in a single transaction").
func NewDispatcher(tx *sql.Tx, opts Options) *Dispatcher {
	if opts.ParserMode == "" {
		opts.ParserMode = configdialect.ModeAdvanced
	}
	return &Dispatcher{Tx: tx, Options: opts}
}

// DispatchFile reads path, routes it to the matching dialect, and appends
// the records it produced, and any failure or warning, to report (without
// mutating the store, beyond the file-index-mapping row that every
// class/dependency must reference). Files no dialect claims are ignored.
func (d *Dispatcher) DispatchFile(path, cacheRelativePath string, pboID *string, report *Report) {
	dialect := DialectFor(path)
	if dialect == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		report.Failed = append(report.Failed, FailedFile{Path: path, Err: perr.IO(path, err)})
		return
	}
	src := string(data)

	fileIndex, err := store.UpsertFileIndexMapping(d.Tx, cacheRelativePath, pboID)
	if err != nil {
		report.Failed = append(report.Failed, FailedFile{Path: path, Err: perr.Database(path, err)})
		return
	}

	switch dialect {
	case DialectConfig:
		d.dispatchConfig(src, path, fileIndex, report)
	case DialectScript:
		d.dispatchScript(src, path, cacheRelativePath, fileIndex, report)
	case DialectMission:
		d.dispatchMission(src, path, cacheRelativePath, fileIndex, report)
	}
}

func (d *Dispatcher) dispatchConfig(src, path string, fileIndex int64, report *Report) {
	res, err := configdialect.Parse(src, d.Options.ParserMode)
	if err != nil {
		report.Failed = append(report.Failed, FailedFile{Path: path, Err: perr.Parse(path, err)})
		return
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, Warning{Path: path, Message: w.Message})
	}
	for _, c := range res.Classes {
		idx := fileIndex
		report.Classes = append(report.Classes, &store.Class{
			ID:                   c.ID,
			ParentID:             c.ParentID,
			ContainerID:          c.ContainerID,
			SourceFileIndex:      &idx,
			IsForwardDeclaration: c.IsForwardDeclaration,
			Properties:           c.Properties,
		})
	}
}

func (d *Dispatcher) dispatchScript(src, path, relPath string, fileIndex int64, report *Report) {
	refs := scriptdialect.Extract(src, scriptdialect.Options{
		Verbs:       d.Options.ScriptVerbs,
		AllLiterals: d.Options.ScriptAllLiteral,
	})
	for _, r := range refs {
		line := r.Line
		report.Dependencies = append(report.Dependencies, &store.MissionDependency{
			ClassName:          strings.TrimSpace(r.ClassName),
			ReferenceKind:      store.RefDirect,
			SourceFileRelative: relPath,
			LineNumber:         &line,
		})
	}
	_ = fileIndex // script references carry source_file_relative, not an index, per spec.md §3
}

func (d *Dispatcher) dispatchMission(src, path, relPath string, fileIndex int64, report *Report) {
	tree, err := missiondialect.ParseTree(src)
	if err != nil {
		report.Failed = append(report.Failed, FailedFile{Path: path, Err: perr.Parse(path, err)})
		return
	}
	names := missiondialect.Walk(tree, d.Options.MissionPatterns)
	for _, name := range names {
		report.Dependencies = append(report.Dependencies, &store.MissionDependency{
			ClassName:          name,
			ReferenceKind:      store.RefComponent,
			SourceFileRelative: relPath,
		})
	}
	_ = fileIndex
}

// ClaimedExtensions returns the union of extensions every dialect claims,
// for use by the extraction cache's extension filters.
func ClaimedExtensions() []string {
	var out []string
	out = append(out, configdialect.Extensions()...)
	out = append(out, scriptdialect.Extensions()...)
	out = append(out, missiondialect.Extensions()...)
	return out
}

// DiagnosticSummary renders a one-line human-readable summary of a Report,
// for the orchestrator's end-of-run output: counts of classes,
// dependencies, failed files and warnings. Individual failed files and
// their causes are not listed.
func DiagnosticSummary(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "classes=%d dependencies=%d failed=%d warnings=%d",
		len(r.Classes), len(r.Dependencies), len(r.Failed), len(r.Warnings))
	return b.String()
}
