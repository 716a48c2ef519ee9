package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/loopless/loopcheck/internal/models"
)

// Column budget for free-form text (intents, recommendations) in the text
// summary. Measured in display cells, not bytes.
const maxDetailWidth = 72

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretPassRate returns a human-readable explanation of a pass rate (0–1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All runs passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most runs passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the runs passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few runs passed (%.0f%%)", pct)
	}
}

// FormatSummaryReport produces a plain-language report over a batch of
// evaluated runs.
func FormatSummaryReport(reports []*models.EvaluationReport) string {
	var b strings.Builder

	b.WriteString("=== Evaluation Summary ===\n\n")

	if len(reports) == 0 {
		b.WriteString("No runs evaluated.\n")
		return b.String()
	}

	passed := 0
	var scoreSum float64
	for _, r := range reports {
		if r.Verdict.Passed {
			passed++
		}
		scoreSum += r.Verdict.OverallScore
	}
	avgScore := scoreSum / float64(len(reports))
	passRate := float64(passed) / float64(len(reports))

	b.WriteString(fmt.Sprintf("Average Score: %.2f — %s\n", avgScore, InterpretScore(avgScore)))
	b.WriteString(fmt.Sprintf("Pass Rate:     %s\n", InterpretPassRate(passRate)))
	b.WriteString(fmt.Sprintf("Runs:          %d passed, %d failed out of %d total\n",
		passed, len(reports)-passed, len(reports)))

	b.WriteString("\nPer-Run Results:\n")
	for _, r := range reports {
		icon := "✓"
		if !r.Verdict.Passed {
			icon = "✗"
		}
		b.WriteString(fmt.Sprintf("  %s %s (%s): score=%.2f\n", icon, r.RunID, r.TaskID, r.Verdict.OverallScore))

		if r.Intent != "" {
			b.WriteString(fmt.Sprintf("    Intent: %s\n", clip(r.Intent)))
		}
		if r.ElapsedKnown {
			b.WriteString(fmt.Sprintf("    Elapsed: %v\n", time.Duration(r.ElapsedSeconds*float64(time.Second)).Round(time.Millisecond)))
		}
		if r.DiffError != "" {
			b.WriteString(fmt.Sprintf("    Snapshot: %s\n", r.DiffError))
		}
		if len(r.Assertions) > 0 {
			b.WriteString(fmt.Sprintf("    Assertions: %d passed, %d failed\n", r.AssertionsPassed, r.AssertionsFailed))
		}
		for _, issue := range r.Verdict.Issues {
			b.WriteString(fmt.Sprintf("    Issue: %s\n", issue))
		}
		for _, rec := range r.Verdict.Recommendations {
			b.WriteString(fmt.Sprintf("    Hint: %s\n", clip(rec)))
		}
	}

	return b.String()
}

func clip(s string) string {
	return runewidth.Truncate(s, maxDetailWidth, "…")
}
