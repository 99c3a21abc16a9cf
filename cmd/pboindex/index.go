package main

import (
	"context"
	"fmt"

	"github.com/jward/pboindex/internal/cache"
	"github.com/jward/pboindex/internal/config"
	pboindex "github.com/jward/pboindex"
	"github.com/spf13/cobra"
)

var flagDecoderBin string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan configured roots, extract changed archives, and persist classes/dependencies",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagDecoderBin, "decoder-bin", "extractpbo", "path to the native PBO decoder binary")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	decoder := &cache.CommandDecoder{BinaryPath: flagDecoderBin}
	engine, err := pboindex.New(cfg, decoder, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Run(context.Background())
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return printJSON(stats)
	}
	fmt.Printf("archives: processed=%d skipped=%d failed=%d\n", stats.ArchivesProcessed, stats.ArchivesSkipped, stats.ArchivesFailed)
	fmt.Printf("classes added: %d\n", stats.ClassesAdded)
	fmt.Printf("missions added: %d\n", stats.MissionsAdded)
	fmt.Printf("dependencies added: %d\n", stats.DependenciesAdded)
	if len(stats.FailedFiles) > 0 {
		fmt.Println("failed files:")
		for _, f := range stats.FailedFiles {
			fmt.Printf("  %s: %v\n", f.Path, f.Err)
		}
	}
	return nil
}
