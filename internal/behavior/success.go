package behavior

import (
	"context"
	"fmt"
	"strings"

	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
)

// SuccessScorer decides whether a run completed its task, combining the
// run's own success flag, a URL heuristic, and a judge escalation.
type SuccessScorer struct {
	judge judge.Judge
}

// NewSuccessScorer creates a task-success scorer using the given judge for
// escalations.
func NewSuccessScorer(j judge.Judge) *SuccessScorer {
	return &SuccessScorer{judge: j}
}

// Score evaluates task success. When the run reports failure and an intent
// is known, the judge gets the final say; a judge failure there counts as
// task failure.
func (s *SuccessScorer) Score(ctx context.Context, metrics models.RunMetrics, intent, expectedURL string) *models.TaskSuccessResult {
	urlMatch := expectedURL != "" &&
		strings.Contains(strings.ToLower(metrics.FinalURL), strings.ToLower(expectedURL))

	if !metrics.Success && intent != "" {
		return s.escalate(ctx, metrics, intent, urlMatch)
	}

	return &models.TaskSuccessResult{
		Success:  metrics.Success,
		URLMatch: urlMatch,
		FinalURL: metrics.FinalURL,
	}
}

func (s *SuccessScorer) escalate(ctx context.Context, metrics models.RunMetrics, intent string, urlMatch bool) *models.TaskSuccessResult {
	prompt := fmt.Sprintf(`You are evaluating if a browser automation agent completed a task.

TASK: %s
FINAL URL: %s
STEPS TAKEN: %d

Be lenient - say YES if the agent made significant progress toward the goal.
Only say NO if the agent clearly failed or didn't attempt the main task.

Respond with ONLY 'YES' or 'NO' followed by a brief explanation (max 2 sentences).`, intent, metrics.FinalURL, metrics.NumSteps)

	verdict, err := s.judge.Verdict(ctx, prompt)
	if err != nil {
		return &models.TaskSuccessResult{
			Success:      false,
			URLMatch:     urlMatch,
			FinalURL:     metrics.FinalURL,
			JudgeVerdict: "NO",
			JudgeReason:  fmt.Sprintf("judge error: %v", err),
		}
	}

	passed := judge.IsYes(verdict)
	result := &models.TaskSuccessResult{
		Success:      passed,
		URLMatch:     urlMatch,
		FinalURL:     metrics.FinalURL,
		JudgeVerdict: "NO",
		JudgeReason:  verdict,
	}
	if passed {
		result.JudgeVerdict = "YES"
	}
	return result
}
