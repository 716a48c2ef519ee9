// Package rules executes a task's declarative assertion list against the
// state diff and the agent's final response. Assertion failures are always
// reported as results; no evaluation error escapes Evaluate.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/loopless/loopcheck/internal/judge"
	"github.com/loopless/loopcheck/internal/models"
	"github.com/loopless/loopcheck/internal/query"
)

// Summary is the outcome of evaluating one assertion list.
type Summary struct {
	Passed   int
	Failed   int
	Outcomes []models.AssertionOutcome
}

// Evaluator dispatches assertions by kind. Only judge-backed kinds ever
// leave the process.
type Evaluator struct {
	judge judge.Judge
}

// NewEvaluator creates an assertion evaluator using the given judge
// capability for escalations.
func NewEvaluator(j judge.Judge) *Evaluator {
	return &Evaluator{judge: j}
}

// Evaluate runs every assertion in order. diffDoc is the portable diff map;
// nil means no diff is available (structural input failure), in which case
// diff-dependent assertions fail instead of crashing the batch. The diff is
// never mutated.
func (e *Evaluator) Evaluate(ctx context.Context, assertions []models.Assertion, diffDoc map[string]any, response string) *Summary {
	s := &Summary{}

	for _, a := range assertions {
		var result models.PartialResult
		switch a.Kind {
		case models.AssertionKindQueryMatch:
			result = e.evalQueryMatch(a, diffDoc)
		case models.AssertionKindTextJudge:
			result = e.evalTextJudge(ctx, a, response)
		case models.AssertionKindQueryJudge:
			result = e.evalQueryJudge(ctx, a, diffDoc)
		default:
			result = models.PartialResult{
				Passed:  false,
				Message: fmt.Sprintf("unknown assertion kind: %s", a.Kind),
			}
		}

		if result.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		s.Outcomes = append(s.Outcomes, models.AssertionOutcome{
			Kind:        a.Kind,
			Description: a.Description,
			Passed:      result.Passed,
			Message:     result.Message,
		})
	}

	return s
}

// evalQueryMatch compares the string representation of the query result
// against the string representation of the expected value.
func (e *Evaluator) evalQueryMatch(a models.Assertion, diffDoc map[string]any) models.PartialResult {
	if diffDoc == nil {
		return models.PartialResult{Passed: false, Message: "no diff available"}
	}

	actual, err := query.Search(a.Query, diffDoc)
	if err != nil {
		return models.PartialResult{Passed: false, Message: fmt.Sprintf("query error: %v", err)}
	}

	got, want := stringify(actual), stringify(a.ExpectedValue)
	if got == want {
		return models.PartialResult{Passed: true, Message: got}
	}
	return models.PartialResult{
		Passed:  false,
		Message: fmt.Sprintf("expected=%s got=%s", want, got),
	}
}

// evalTextJudge submits the final response and the expected criterion to the
// judge. Judge failures are fail-closed.
func (e *Evaluator) evalTextJudge(ctx context.Context, a models.Assertion, response string) models.PartialResult {
	if response == "" {
		return models.PartialResult{Passed: false, Message: "no response"}
	}

	prompt := fmt.Sprintf(`Does the actual answer approximately satisfy the expected criterion?

Be extremely lenient, say no only if the actual answer is clearly not related to the expected criterion.

Expected criterion: %s
Actual answer: %s

Respond with ONLY 'YES' or 'NO' followed by a brief explanation.`, stringify(a.ExpectedValue), response)

	return e.submit(ctx, prompt)
}

// evalQueryJudge evaluates the query first; a null result fails without
// contacting the judge.
func (e *Evaluator) evalQueryJudge(ctx context.Context, a models.Assertion, diffDoc map[string]any) models.PartialResult {
	if diffDoc == nil {
		return models.PartialResult{Passed: false, Message: "no diff available"}
	}

	actual, err := query.Search(a.Query, diffDoc)
	if err != nil {
		return models.PartialResult{Passed: false, Message: fmt.Sprintf("query error: %v", err)}
	}
	if actual == nil {
		return models.PartialResult{Passed: false, Message: "query returned nothing"}
	}

	serialized, err := json.Marshal(actual)
	if err != nil {
		return models.PartialResult{Passed: false, Message: fmt.Sprintf("failed to serialize query result: %v", err)}
	}

	prompt := fmt.Sprintf(`Does the actual value approximately satisfy the expected criterion?

Be extremely lenient, say no only if the actual value is clearly not related to the expected criterion.

Expected criterion: %s
Actual value: %s

Respond with ONLY 'YES' or 'NO' followed by a brief explanation.`, stringify(a.ExpectedValue), serialized)

	return e.submit(ctx, prompt)
}

// submit sends a prompt to the judge and converts the verdict (or a judge
// failure) into a result.
func (e *Evaluator) submit(ctx context.Context, prompt string) models.PartialResult {
	verdict, err := e.judge.Verdict(ctx, prompt)
	if err != nil {
		return models.PartialResult{Passed: false, Message: fmt.Sprintf("judge error: %v", err)}
	}
	return models.PartialResult{
		Passed:  judge.IsYes(verdict),
		Message: fmt.Sprintf("judge: %s", verdict),
	}
}

// stringify produces the canonical string representation used for
// query_match equality. Scalars render bare, structured values as JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
