package reporting

import (
	"fmt"
	"strings"

	"github.com/loopless/loopcheck/internal/models"
)

// ModeMetrics aggregates run metrics for one execution mode.
type ModeMetrics struct {
	Runs         int     `json:"runs"`
	SuccessRate  float64 `json:"success_rate"`
	AvgSteps     float64 `json:"avg_steps"`
	AvgCacheHits float64 `json:"avg_cache_hits"`
}

// Comparison contrasts cold runs (no macros) against warm runs (with
// macros). StepImprovement is the fractional step reduction warm achieves
// over cold.
type Comparison struct {
	Cold            ModeMetrics `json:"cold"`
	Warm            ModeMetrics `json:"warm"`
	StepImprovement float64     `json:"step_improvement"`
}

// CompareModes splits runs by mode and aggregates each group. Runs with an
// unknown mode count as cold.
func CompareModes(runs []*models.RunRecord) *Comparison {
	var cold, warm []*models.RunRecord
	for _, r := range runs {
		if r.Mode == "warm" {
			warm = append(warm, r)
		} else {
			cold = append(cold, r)
		}
	}

	c := &Comparison{
		Cold: aggregateMode(cold),
		Warm: aggregateMode(warm),
	}
	if c.Cold.AvgSteps > 0 {
		c.StepImprovement = (c.Cold.AvgSteps - c.Warm.AvgSteps) / c.Cold.AvgSteps
	}
	return c
}

func aggregateMode(runs []*models.RunRecord) ModeMetrics {
	m := ModeMetrics{Runs: len(runs)}
	if len(runs) == 0 {
		return m
	}

	successes := 0
	var steps, cacheHits int
	for _, r := range runs {
		if r.Metrics.Success {
			successes++
		}
		steps += r.Metrics.NumSteps
		cacheHits += r.Metrics.CacheHits
	}

	n := float64(len(runs))
	m.SuccessRate = float64(successes) / n
	m.AvgSteps = float64(steps) / n
	m.AvgCacheHits = float64(cacheHits) / n
	return m
}

// FormatComparison renders the cold/warm contrast as plain text.
func FormatComparison(c *Comparison) string {
	var b strings.Builder

	b.WriteString("=== Cold vs Warm Comparison ===\n")
	b.WriteString("\nCold Runs (no macros):\n")
	writeModeMetrics(&b, c.Cold)
	b.WriteString("\nWarm Runs (with macros):\n")
	writeModeMetrics(&b, c.Warm)

	if c.Cold.AvgSteps > 0 {
		b.WriteString(fmt.Sprintf("\nImprovement: %.1f%% fewer steps\n", c.StepImprovement*100))
	}
	return b.String()
}

func writeModeMetrics(b *strings.Builder, m ModeMetrics) {
	fmt.Fprintf(b, "  Runs:           %d\n", m.Runs)
	fmt.Fprintf(b, "  Success Rate:   %.1f%%\n", m.SuccessRate*100)
	fmt.Fprintf(b, "  Avg Steps:      %.1f\n", m.AvgSteps)
	fmt.Fprintf(b, "  Avg Cache Hits: %.1f\n", m.AvgCacheHits)
}
