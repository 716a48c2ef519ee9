// Package evaluation orchestrates the full scoring pipeline for recorded
// runs: snapshot resolution, state diffing, assertion evaluation, and
// composite behavior scoring, combined into one report per run.
package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loopless/loopcheck/internal/composite"
	"github.com/loopless/loopcheck/internal/diff"
	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
	"github.com/loopless/loopcheck/internal/rules"
	"github.com/loopless/loopcheck/internal/snapshot"
)

// DefaultConcurrency bounds how many runs a batch evaluates at once. Judge
// escalations dominate the cost, so this is deliberately small.
const DefaultConcurrency = 4

// Input is everything needed to evaluate one run. Dump may be nil when no
// state capture exists for the run; diff-dependent assertions then fail with
// an explicit message instead of aborting the evaluation.
type Input struct {
	Run  *models.RunRecord
	Task *models.TaskSpec
	Dump snapshot.Dump
}

// Engine evaluates recorded runs against their task specs.
type Engine struct {
	scorer      *composite.Scorer
	rules       *rules.Evaluator
	concurrency int
}

// NewEngine creates an evaluation engine backed by the given judge.
func NewEngine(j judge.Judge) *Engine {
	return &Engine{
		scorer:      composite.NewScorer(j),
		rules:       rules.NewEvaluator(j),
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency overrides the batch concurrency limit. Values below 1 are
// ignored.
func (e *Engine) SetConcurrency(n int) {
	if n >= 1 {
		e.concurrency = n
	}
}

// Evaluate scores one run end to end. It never fails: structural input
// problems are recorded on the report and scoring proceeds on whatever
// evidence remains.
func (e *Engine) Evaluate(ctx context.Context, in Input) *models.EvaluationReport {
	report := &models.EvaluationReport{
		ReportID:  uuid.NewString(),
		RunID:     in.Run.RunID,
		TaskID:    in.Run.TaskID,
		Timestamp: time.Now().UTC(),
	}

	var params composite.Params
	var assertions []models.Assertion
	if in.Task != nil {
		params = composite.Params{
			Intent:           in.Task.Intent,
			ExpectedURL:      in.Task.ExpectedURL,
			ExpectedSequence: in.Task.ExpectedSequence,
			OptimalSteps:     in.Task.OptimalSteps,
		}
		assertions = in.Task.Assertions
		report.Intent = in.Task.Intent
	}

	var diffDoc map[string]any
	if in.Dump != nil {
		resolved, err := snapshot.Resolve(in.Dump)
		if err != nil {
			report.DiffError = err.Error()
		} else {
			diffDoc = diff.Compare(resolved.FirstState, resolved.LastState).ToMap()
			report.DiffAvailable = true
			report.ElapsedSeconds = resolved.ElapsedSeconds()
			report.ElapsedKnown = true
		}
	}

	report.Verdict = *e.scorer.Score(ctx, in.Run, params)

	if len(assertions) > 0 {
		summary := e.rules.Evaluate(ctx, assertions, diffDoc, models.FinalResponse(in.Run.Messages))
		report.Assertions = summary.Outcomes
		report.AssertionsPassed = summary.Passed
		report.AssertionsFailed = summary.Failed
	}

	return report
}

// EvaluateAll scores a batch of runs concurrently. Report order matches
// input order. The batch stops early only if the context is cancelled.
func (e *Engine) EvaluateAll(ctx context.Context, inputs []Input) ([]*models.EvaluationReport, error) {
	reports := make([]*models.EvaluationReport, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = e.Evaluate(ctx, in)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
