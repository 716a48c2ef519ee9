package models

// AssertionKind identifies how an assertion is checked.
type AssertionKind string

const (
	// AssertionKindQueryMatch compares a path-query result against an
	// expected value by string representation.
	AssertionKindQueryMatch AssertionKind = "query_match"
	// AssertionKindTextJudge submits the agent's final response to the
	// judge together with the expected criterion.
	AssertionKindTextJudge AssertionKind = "text_judge"
	// AssertionKindQueryJudge evaluates a path-query against the diff and
	// submits the result to the judge.
	AssertionKindQueryJudge AssertionKind = "query_judge"
)

// Assertion is one declarative pass/fail check a task defines over the
// state diff or the agent's final response.
type Assertion struct {
	Kind          AssertionKind `yaml:"kind" json:"kind"`
	Description   string        `yaml:"description" json:"description"`
	Query         string        `yaml:"query,omitempty" json:"query,omitempty"`
	ExpectedValue any           `yaml:"expected_value" json:"expected_value"`
}

// PartialResult is the outcome of a single assertion.
type PartialResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// AssertionOutcome pairs an assertion with its result for reporting.
type AssertionOutcome struct {
	Kind        AssertionKind `json:"kind"`
	Description string        `json:"description"`
	Passed      bool          `json:"passed"`
	Message     string        `json:"message"`
}
