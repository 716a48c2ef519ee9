// Package composite combines the behavior scorers into one weighted verdict
// per run. Task success dominates the weighting, and both the task and loop
// checks gate the pass decision regardless of the numeric score.
package composite

import (
	"context"
	"fmt"
	"math"

	"github.com/loopless/loopcheck/internal/behavior"
	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
)

// Sub-score weights. They sum to 1.
const (
	weightTaskSuccess   = 0.40
	weightNoLoop        = 0.25
	weightSequenceValid = 0.20
	weightEfficiency    = 0.15
)

// A failing boolean check still contributes a floor score, so one bad
// dimension degrades rather than zeroes the overall.
const (
	loopFailScore     = 0.3
	sequenceFailScore = 0.5
)

const passThreshold = 0.6

// At most this many recommendations survive into the verdict.
const maxRecommendations = 3

// Params is the task context a run is scored against.
type Params struct {
	Intent           string
	ExpectedURL      string
	ExpectedSequence []string
	OptimalSteps     int
}

// Scorer produces composite verdicts over recorded runs.
type Scorer struct {
	success  *behavior.SuccessScorer
	sequence *behavior.SequenceValidator
}

// NewScorer creates a composite scorer. The judge backs the task-success
// escalation and the sequence fallback.
func NewScorer(j judge.Judge) *Scorer {
	return &Scorer{
		success:  behavior.NewSuccessScorer(j),
		sequence: behavior.NewSequenceValidator(j),
	}
}

// Score runs every behavior scorer over the run and combines them. The pass
// decision requires task success AND no loop AND the weighted overall at or
// above the threshold.
func (s *Scorer) Score(ctx context.Context, run *models.RunRecord, p Params) *models.CompositeVerdict {
	actions := models.PlannedActions(run.Events)

	task := s.success.Score(ctx, run.Metrics, p.Intent, p.ExpectedURL)
	loop := behavior.DetectLoops(actions)
	sequence := s.sequence.Validate(ctx, p.Intent, p.ExpectedSequence, actions)
	efficiency := behavior.ScoreEfficiency(run.Metrics, p.OptimalSteps)

	scores := map[string]float64{
		models.ScoreTaskSuccess:   0.0,
		models.ScoreNoLoop:        loopFailScore,
		models.ScoreSequenceValid: sequenceFailScore,
		models.ScoreEfficiency:    efficiency.Score,
	}
	if task.Success {
		scores[models.ScoreTaskSuccess] = 1.0
	}
	if loop.NoLoop {
		scores[models.ScoreNoLoop] = 1.0
	}
	if sequence.Valid {
		scores[models.ScoreSequenceValid] = 1.0
	}

	overall := scores[models.ScoreTaskSuccess]*weightTaskSuccess +
		scores[models.ScoreNoLoop]*weightNoLoop +
		scores[models.ScoreSequenceValid]*weightSequenceValid +
		scores[models.ScoreEfficiency]*weightEfficiency
	overall = math.Round(overall*1000) / 1000

	var issues []string
	var recommendations []string

	if !task.Success {
		issues = append(issues, models.IssueTaskFailed)
		if task.JudgeReason != "" {
			recommendations = append(recommendations, task.JudgeReason)
		}
	}
	if !loop.NoLoop {
		issues = append(issues, models.IssueLoopDetected)
		recommendations = append(recommendations, fmt.Sprintf(
			"Agent repeated action %d times. Try different approaches when actions fail.",
			loop.MaxRepeats))
	}
	if !sequence.Valid {
		issues = append(issues, models.IssueWrongSeq)
		if sequence.JudgeReason != "" {
			recommendations = append(recommendations, sequence.JudgeReason)
		}
	}
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}

	return &models.CompositeVerdict{
		OverallScore:    overall,
		Passed:          task.Success && loop.NoLoop && overall >= passThreshold,
		Scores:          scores,
		Issues:          issues,
		Recommendations: recommendations,
		Details: models.VerdictDetails{
			Task:       task,
			Loop:       loop,
			Sequence:   sequence,
			Efficiency: efficiency,
		},
	}
}
