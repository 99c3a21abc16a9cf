// Package pboindex extracts PBO archives, parses their recovered
// configuration, script, and mission files, persists a class/mission
// relational index, and answers hierarchy, impact, and dependency-gap
// queries against it.
//
// An Engine owns one run's manifest and store handle:
//
//	engine, err := pboindex.New(cfg, decoder, logger)
//	stats, err := engine.Run(ctx)
//
// Subpackages under internal/ implement each pipeline stage: cache
// (scanning and extraction), parse (dialect dispatch), store (the
// relational schema), graph (hierarchy and impact queries), and analyze
// (missing-class and compatibility analysis).
package pboindex
