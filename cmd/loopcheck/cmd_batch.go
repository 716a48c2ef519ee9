package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loopless/loopcheck/internal/config"
	"github.com/loopless/loopcheck/internal/evaluation"
	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
	"github.com/loopless/loopcheck/internal/runstore"
)

var (
	batchLimit      int
	batchTasksDir   string
	batchWorkers    int
	batchOutputPath string
	batchJUnitPath  string
)

func newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate recent runs from the run store",
		Long: `Evaluate a batch of recent runs loaded from the configured Redis store.

Each run is matched to a task spec by its task id: the spec is expected at
<tasks-dir>/<task-id>.yaml. Runs without a matching spec are scored on
behavior alone.`,
		RunE: batchCommandE,
	}

	cmd.Flags().IntVar(&batchLimit, "limit", 0, "Maximum runs to evaluate (default: from config)")
	cmd.Flags().StringVar(&batchTasksDir, "tasks-dir", "tasks", "Directory of task spec YAML files")
	cmd.Flags().IntVar(&batchWorkers, "workers", 0, "Number of concurrent workers (default: from config)")
	cmd.Flags().StringVarP(&batchOutputPath, "output", "o", "", "Output JSON file for the reports")
	cmd.Flags().StringVar(&batchJUnitPath, "junit", "", "Write JUnit XML to this path")

	return cmd
}

func batchCommandE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	limit := batchLimit
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

	j, err := judge.NewCopilotJudge(cfg.Judge.Model)
	if err != nil {
		return err
	}

	inputs := make([]evaluation.Input, 0, len(runs))
	for _, run := range runs {
		inputs = append(inputs, evaluation.Input{
			Run:  run,
			Task: lookupTask(run.TaskID),
		})
	}

	engine := evaluation.NewEngine(j)
	if batchWorkers > 0 {
		engine.SetConcurrency(batchWorkers)
	} else if cfg.Eval.Workers > 0 {
		engine.SetConcurrency(cfg.Eval.Workers)
	}

	reports, err := engine.EvaluateAll(ctx, inputs)
	if err != nil {
		return err
	}

	if err := emitReports(cmd, reports, batchOutputPath, batchJUnitPath); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if !r.Verdict.Passed {
			failed++
		}
	}
	if failed > 0 {
		return &EvalFailureError{
			Message: fmt.Sprintf("%d of %d runs failed their verdict", failed, len(reports)),
		}
	}
	return nil
}

// lookupTask loads <tasks-dir>/<task-id>.yaml, or returns nil when the task
// has no spec on disk.
func lookupTask(taskID string) *models.TaskSpec {
	if taskID == "" {
		return nil
	}
	path := filepath.Join(batchTasksDir, taskID+".yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	task, err := models.LoadTaskSpec(path)
	if err != nil {
		return nil
	}
	return task
}
