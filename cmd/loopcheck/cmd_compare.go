package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopless/loopcheck/internal/config"
	"github.com/loopless/loopcheck/internal/reporting"
	"github.com/loopless/loopcheck/internal/runstore"
)

var (
	compareLimit      int
	compareOutputPath string
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare cold runs against warm runs",
		Long: `Compare agent performance between cold runs (no macros) and warm runs
(with macros), aggregated over recent runs from the run store.`,
		RunE: compareCommandE,
	}

	cmd.Flags().IntVar(&compareLimit, "limit", 0, "Maximum runs to include (default: from config)")
	cmd.Flags().StringVarP(&compareOutputPath, "output", "o", "", "Output JSON file for the comparison")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	limit := compareLimit
	if limit <= 0 {
		limit = cfg.Eval.RunLimit
	}

	store, err := runstore.NewRedisStore(cfg.Redis.URL, cfg.Redis.Prefix)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return errors.New("no runs found in the run store")
	}

	comparison := reporting.CompareModes(runs)

	if compareOutputPath != "" {
		data, err := json.MarshalIndent(comparison, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
		if err := os.WriteFile(compareOutputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write comparison: %w", err)
		}
	}

	cmd.Println(reporting.FormatComparison(comparison))
	return nil
}
