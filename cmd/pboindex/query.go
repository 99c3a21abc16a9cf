package main

import (
	"fmt"
	"strings"

	"github.com/jward/pboindex/internal/config"
	pboindex "github.com/jward/pboindex"
	"github.com/spf13/cobra"
)

var (
	flagRoot       string
	flagMaxDepth   int
	flagExclude    string
	flagRemoveList string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a hierarchy, impact, or empty-pbo query against the store",
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Print the class hierarchy beneath an optional root",
	RunE:  runHierarchy,
}

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Compute removed/orphaned/affected classes and empty pbos for a notional removal",
	RunE:  runImpact,
}

func init() {
	hierarchyCmd.Flags().StringVar(&flagRoot, "root", "", "root class name (default: whole forest)")
	hierarchyCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "maximum depth (0 = unbounded)")
	hierarchyCmd.Flags().StringVar(&flagExclude, "exclude-prefix", "", "comma-separated id prefixes to exclude")

	impactCmd.Flags().StringVar(&flagRemoveList, "remove", "", "comma-separated class names to remove")

	queryCmd.AddCommand(hierarchyCmd)
	queryCmd.AddCommand(impactCmd)
}

func openEngine() (*pboindex.Engine, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return pboindex.New(cfg, nil, logger)
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var exclude []string
	if flagExclude != "" {
		exclude = strings.Split(flagExclude, ",")
	}

	h, err := engine.Hierarchy(flagRoot, flagMaxDepth, exclude)
	if err != nil {
		return err
	}
	if flagFormat == "json" {
		return printJSON(h)
	}
	for _, root := range h.Roots {
		fmt.Println(root)
	}
	for _, e := range h.Edges {
		fmt.Printf("  %s -> %s\n", e.Parent, e.Child)
	}
	return nil
}

func runImpact(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var remove []string
	if flagRemoveList != "" {
		remove = strings.Split(flagRemoveList, ",")
	}

	impact, empty, err := engine.ImpactAnalysis(remove)
	if err != nil {
		return err
	}
	if impact.CycleWarning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", impact.CycleWarning)
		return nil
	}

	if flagFormat == "json" {
		return printJSON(map[string]any{
			"removed":    impact.Removed,
			"orphaned":   impact.Orphaned,
			"affected":   impact.Affected,
			"empty_pbos": empty,
		})
	}
	fmt.Printf("removed:  %v\n", impact.Removed)
	fmt.Printf("orphaned: %v\n", impact.Orphaned)
	fmt.Printf("affected: %v\n", impact.Affected)
	fmt.Printf("empty pbos: %v\n", empty)
	return nil
}
