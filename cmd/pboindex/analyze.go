package main

import (
	"fmt"

	"github.com/jward/pboindex/internal/analyze"
	"github.com/jward/pboindex/internal/config"
	pboindex "github.com/jward/pboindex"
	"github.com/spf13/cobra"
)

var (
	flagFuzzy     bool
	flagThreshold float64
	flagTopN      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute missing-class sets (and optionally fuzzy candidates) per mission",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagFuzzy, "fuzzy", false, "also compute fuzzy-matched candidates")
	analyzeCmd.Flags().Float64Var(&flagThreshold, "threshold", 0.8, "fuzzy similarity cut-off")
	analyzeCmd.Flags().IntVar(&flagTopN, "top-n", 5, "candidate count per missing class")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	engine, err := pboindex.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	reports, err := engine.MissingClasses()
	if err != nil {
		return err
	}

	type missionOut struct {
		MissionID string                               `json:"mission_id"`
		Missing   []string                              `json:"missing"`
		Fuzzy     map[string][]analyze.FuzzyCandidate `json:"fuzzy,omitempty"`
	}
	var out []missionOut
	for _, r := range reports {
		mo := missionOut{MissionID: r.MissionID, Missing: r.Missing}
		if flagFuzzy && len(r.Missing) > 0 {
			cands, err := engine.FuzzyCandidates(r.Missing, analyze.FuzzyOptions{Threshold: flagThreshold, TopN: flagTopN})
			if err != nil {
				return err
			}
			mo.Fuzzy = cands
		}
		out = append(out, mo)
	}

	if flagFormat == "json" {
		return printJSON(out)
	}
	for _, mo := range out {
		fmt.Printf("%s: missing=%v\n", mo.MissionID, mo.Missing)
		for name, cands := range mo.Fuzzy {
			fmt.Printf("  %s ->", name)
			for _, c := range cands {
				fmt.Printf(" %s(%.2f)", c.ClassID, c.Similarity)
			}
			fmt.Println()
		}
	}
	return nil
}
