package behavior

import (
	"context"
	"fmt"
	"strings"

	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
)

const (
	// A run covering at least this fraction of the expected steps counts
	// as a valid sequence.
	sequenceCoverageThreshold = 0.7

	// Only the head of a long trajectory is shown to the judge.
	maxJudgedActions = 20
)

// SequenceValidator checks whether the agent's action trajectory matches a
// task's expected step sequence, falling back to a judge when no expected
// sequence is declared.
type SequenceValidator struct {
	judge judge.Judge
}

// NewSequenceValidator creates a validator using the given judge for the
// no-expected-sequence fallback.
func NewSequenceValidator(j judge.Judge) *SequenceValidator {
	return &SequenceValidator{judge: j}
}

// Validate scores the trajectory. With an expected sequence the check is a
// case-insensitive substring coverage; otherwise the judge reviews the head
// of the trajectory. A judge failure here defaults to valid: an unreviewable
// sequence is not evidence of a broken one.
func (v *SequenceValidator) Validate(ctx context.Context, intent string, expected []string, actions []string) *models.SequenceResult {
	if len(actions) == 0 {
		return &models.SequenceResult{
			Valid:       false,
			ActionCount: 0,
			Reason:      "no actions were performed",
		}
	}

	if len(expected) > 0 {
		matched := 0
		for _, step := range expected {
			want := strings.ToLower(step)
			for _, act := range actions {
				if strings.Contains(strings.ToLower(act), want) {
					matched++
					break
				}
			}
		}
		coverage := float64(matched) / float64(len(expected))

		return &models.SequenceResult{
			Valid:         coverage >= sequenceCoverageThreshold,
			ActionCount:   len(actions),
			Coverage:      round3(coverage),
			MatchedSteps:  matched,
			TotalExpected: len(expected),
		}
	}

	if intent != "" {
		return v.judgeSequence(ctx, intent, actions)
	}

	return &models.SequenceResult{Valid: true, ActionCount: len(actions)}
}

func (v *SequenceValidator) judgeSequence(ctx context.Context, intent string, actions []string) *models.SequenceResult {
	head := actions
	if len(head) > maxJudgedActions {
		head = head[:maxJudgedActions]
	}

	var b strings.Builder
	for i, a := range head {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}

	prompt := fmt.Sprintf(`You are evaluating if a browser automation agent's actions were logical.

TASK: %s

ACTIONS TAKEN:
%s
Evaluate:
1. Were the actions in a logical order?
2. Were there unnecessary repeated actions?
3. Did the agent stay focused on the task?

Respond with ONLY 'YES' or 'NO' followed by a brief explanation.`, intent, b.String())

	verdict, err := v.judge.Verdict(ctx, prompt)
	if err != nil {
		return &models.SequenceResult{
			Valid:        true,
			ActionCount:  len(actions),
			JudgeVerdict: "YES",
			JudgeReason:  fmt.Sprintf("judge error: %v", err),
		}
	}

	passed := judge.IsYes(verdict)
	result := &models.SequenceResult{
		Valid:        passed,
		ActionCount:  len(actions),
		JudgeVerdict: "NO",
		JudgeReason:  verdict,
	}
	if passed {
		result.JudgeVerdict = "YES"
	}
	return result
}
