package behavior

import (
	"math"

	"github.com/loopless/loopcheck/internal/models"
)

// DefaultOptimalSteps is the step budget used when a task declares none.
const DefaultOptimalSteps = 15

const efficiencyThreshold = 0.7

// ScoreEfficiency rates a run's step count against the task's step budget
// and reports cache usage. A run within budget scores 1.0; beyond budget the
// score decays as budget over actual.
func ScoreEfficiency(metrics models.RunMetrics, optimalSteps int) *models.EfficiencyResult {
	if optimalSteps <= 0 {
		optimalSteps = DefaultOptimalSteps
	}

	actual := metrics.NumSteps
	score := 1.0
	if actual > optimalSteps {
		score = float64(optimalSteps) / float64(max(actual, 1))
	}

	totalCache := metrics.CacheHits + metrics.CacheMisses
	cacheRate := 0.0
	if totalCache > 0 {
		cacheRate = float64(metrics.CacheHits) / float64(totalCache)
	}

	return &models.EfficiencyResult{
		Score:        round3(score),
		ActualSteps:  actual,
		OptimalSteps: optimalSteps,
		IsEfficient:  score >= efficiencyThreshold,
		CacheHitRate: round3(cacheRate),
		CacheHits:    metrics.CacheHits,
		CacheMisses:  metrics.CacheMisses,
		WallTimeMS:   metrics.WallTimeMS,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
