// Command pboindex drives the extraction-and-indexing pipeline from the
// command line: scanning configured roots, extracting changed archives,
// parsing their contents, persisting classes and mission dependencies, and
// answering hierarchy/impact/missing-class queries against the result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool

	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pboindex",
	Short:         "Extract, index, and analyse PBO archive content",
	Long:          "pboindex extracts PBO archives, parses config/script/mission dialects, and persists a relational index used for hierarchy, impact, and missing-class queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		cfg := zap.NewProductionConfig()
		if flagVerbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "pboindex.toml", "path to configuration file (TOML or JSON)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(queryCmd)
}

func validateFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid --format %q: must be json or text", format)
	}
	return nil
}
