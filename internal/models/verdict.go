package models

import "time"

// LoopSeverity classifies how badly an agent looped.
type LoopSeverity string

const (
	LoopSeverityNone   LoopSeverity = "none"
	LoopSeverityMild   LoopSeverity = "mild"
	LoopSeveritySevere LoopSeverity = "severe"
)

// Issue identifiers, accumulated in this fixed order by the composite scorer.
const (
	IssueTaskFailed   = "task_failed"
	IssueLoopDetected = "loop_detected"
	IssueWrongSeq     = "wrong_sequence"
)

// Score names used in CompositeVerdict.Scores.
const (
	ScoreTaskSuccess   = "task_success"
	ScoreNoLoop        = "no_loop"
	ScoreSequenceValid = "sequence_valid"
	ScoreEfficiency    = "efficiency"
)

// TaskSuccessResult is the task-success signal over a run.
type TaskSuccessResult struct {
	Success      bool   `json:"task_success"`
	URLMatch     bool   `json:"url_match"`
	FinalURL     string `json:"final_url,omitempty"`
	JudgeVerdict string `json:"judge_verdict,omitempty"`
	JudgeReason  string `json:"judge_reason,omitempty"`
}

// LoopResult is the loop detector's report.
type LoopResult struct {
	NoLoop         bool         `json:"no_loop"`
	MaxRepeats     int          `json:"max_consecutive_repeats"`
	RepeatedAction string       `json:"repeated_action,omitempty"`
	Severity       LoopSeverity `json:"loop_severity"`
}

// SequenceResult is the sequence validator's report.
type SequenceResult struct {
	Valid         bool    `json:"sequence_valid"`
	ActionCount   int     `json:"action_count"`
	Coverage      float64 `json:"coverage,omitempty"`
	MatchedSteps  int     `json:"matched_steps,omitempty"`
	TotalExpected int     `json:"total_expected,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	JudgeVerdict  string  `json:"judge_verdict,omitempty"`
	JudgeReason   string  `json:"judge_reason,omitempty"`
}

// EfficiencyResult is the efficiency scorer's report.
type EfficiencyResult struct {
	Score        float64 `json:"efficiency_score"`
	ActualSteps  int     `json:"actual_steps"`
	OptimalSteps int     `json:"optimal_steps"`
	IsEfficient  bool    `json:"is_efficient"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	CacheHits    int     `json:"cache_hits"`
	CacheMisses  int     `json:"cache_misses"`
	WallTimeMS   int64   `json:"wall_time_ms"`
}

// VerdictDetails is the per-scorer breakdown attached to a verdict.
type VerdictDetails struct {
	Task       *TaskSuccessResult `json:"task,omitempty"`
	Loop       *LoopResult        `json:"loop,omitempty"`
	Sequence   *SequenceResult    `json:"sequence,omitempty"`
	Efficiency *EfficiencyResult  `json:"efficiency,omitempty"`
}

// CompositeVerdict is the single externally consumed result of scoring a run.
type CompositeVerdict struct {
	OverallScore    float64            `json:"overall_score"`
	Passed          bool               `json:"passed"`
	Scores          map[string]float64 `json:"scores"`
	Issues          []string           `json:"issues"`
	Recommendations []string           `json:"recommendations"`
	Details         VerdictDetails     `json:"details"`
}

// EvaluationReport is the full diagnostic record for one evaluated run.
// It is produced fresh per evaluation call and owned by the caller.
type EvaluationReport struct {
	ReportID  string    `json:"report_id"`
	RunID     string    `json:"run_id"`
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent,omitempty"`

	Verdict          CompositeVerdict   `json:"verdict"`
	Assertions       []AssertionOutcome `json:"assertions,omitempty"`
	AssertionsPassed int                `json:"assertions_passed"`
	AssertionsFailed int                `json:"assertions_failed"`

	// DiffAvailable is false when structural input failures prevented
	// snapshot resolution; diff-dependent assertions then fail instead of
	// crashing the batch.
	DiffAvailable bool   `json:"diff_available"`
	DiffError     string `json:"diff_error,omitempty"`

	// ElapsedSeconds is derived from the first and last snapshot
	// timestamps. A negative value is an anomaly to surface, not reject.
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	ElapsedKnown   bool    `json:"elapsed_known"`
}
