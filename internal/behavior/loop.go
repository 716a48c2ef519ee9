// Package behavior scores the trajectory of a recorded agent run: action
// loops, sequence sanity, step efficiency, and task success. The loop and
// efficiency scorers are pure; the sequence and success scorers may escalate
// to a judge.
package behavior

import (
	"github.com/loopless/loopcheck/internal/models"
)

// Repeated actions are reported truncated so one runaway selector string
// cannot dominate a report.
const maxRepeatedActionLen = 100

// DetectLoops finds the longest run of consecutive identical non-empty
// actions. Three or more repeats count as a loop; five or more is severe.
func DetectLoops(actions []string) *models.LoopResult {
	maxRepeats := 1
	current := 1
	repeated := ""

	for i := 1; i < len(actions); i++ {
		if actions[i] == actions[i-1] && actions[i] != "" {
			current++
			if current > maxRepeats {
				maxRepeats = current
				repeated = actions[i]
			}
		} else {
			current = 1
		}
	}

	severity := models.LoopSeverityNone
	switch {
	case maxRepeats >= 5:
		severity = models.LoopSeveritySevere
	case maxRepeats >= 3:
		severity = models.LoopSeverityMild
	}

	return &models.LoopResult{
		NoLoop:         maxRepeats < 3,
		MaxRepeats:     maxRepeats,
		RepeatedAction: truncate(repeated, maxRepeatedActionLen),
		Severity:       severity,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
