package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopless/loopcheck/internal/config"
	"github.com/loopless/loopcheck/internal/evaluation"
	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
	"github.com/loopless/loopcheck/internal/reporting"
	"github.com/loopless/loopcheck/internal/runstore"
	"github.com/loopless/loopcheck/internal/snapshot"
)

var (
	evalTaskPath   string
	evalDumpPath   string
	evalRunFile    string
	evalOutputPath string
	evalJUnitPath  string
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <run-id>",
		Short: "Evaluate a single recorded run",
		Long: `Evaluate one recorded run against its task spec.

The run is loaded from the configured Redis store unless --run-file points
at a run document on disk. A snapshot dump (--dump) enables state diffing
and diff-dependent assertions.`,
		Args: cobra.ExactArgs(1),
		RunE: evalCommandE,
	}

	cmd.Flags().StringVar(&evalTaskPath, "task", "", "Task spec YAML file")
	cmd.Flags().StringVar(&evalDumpPath, "dump", "", "Snapshot dump JSON file (.json or .json.gz)")
	cmd.Flags().StringVar(&evalRunFile, "run-file", "", "Load the run from a JSON file instead of Redis")
	cmd.Flags().StringVarP(&evalOutputPath, "output", "o", "", "Output JSON file for the report")
	cmd.Flags().StringVar(&evalJUnitPath, "junit", "", "Write JUnit XML to this path")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID := args[0]

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	run, err := loadRun(cmd, runID, cfg)
	if err != nil {
		return err
	}

	in := evaluation.Input{Run: run}

	if evalTaskPath != "" {
		task, err := models.LoadTaskSpec(evalTaskPath)
		if err != nil {
			return fmt.Errorf("failed to load task spec: %w", err)
		}
		in.Task = task
	}

	if evalDumpPath != "" {
		dump, err := snapshot.LoadDump(evalDumpPath)
		if err != nil {
			return fmt.Errorf("failed to load snapshot dump: %w", err)
		}
		in.Dump = dump
	}

	j, err := judge.NewCopilotJudge(cfg.Judge.Model)
	if err != nil {
		return err
	}

	engine := evaluation.NewEngine(j)
	report := engine.Evaluate(ctx, in)

	if err := emitReports(cmd, []*models.EvaluationReport{report}, evalOutputPath, evalJUnitPath); err != nil {
		return err
	}

	if !report.Verdict.Passed {
		return &EvalFailureError{
			Message: fmt.Sprintf("run %s failed: score=%.2f issues=%v",
				report.RunID, report.Verdict.OverallScore, report.Verdict.Issues),
		}
	}
	return nil
}

func loadRun(cmd *cobra.Command, runID string, cfg *config.Config) (*models.RunRecord, error) {
	if evalRunFile != "" {
		data, err := os.ReadFile(evalRunFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read run file: %w", err)
		}
		var run models.RunRecord
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to decode run file: %w", err)
		}
		if run.RunID == "" {
			run.RunID = runID
		}
		return &run, nil
	}

	store, err := runstore.NewRedisStore(cfg.Redis.URL, cfg.Redis.Prefix)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.LoadRun(cmd.Context(), runID)
}

// emitReports writes the JSON report and JUnit XML when requested, and
// always prints the text summary.
func emitReports(cmd *cobra.Command, reports []*models.EvaluationReport, outputPath, junitPath string) error {
	if outputPath != "" {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}
	}

	if junitPath != "" {
		if err := reporting.WriteJUnitXML("loopcheck", reports, junitPath); err != nil {
			return err
		}
	}

	cmd.Println(reporting.FormatSummaryReport(reports))
	return nil
}
