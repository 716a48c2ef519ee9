package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/loopless/loopcheck/internal/models"
	"github.com/stretchr/testify/require"
)

// stubJudge returns canned verdicts and counts invocations.
type stubJudge struct {
	verdict string
	err     error
	calls   int
	prompts []string
}

func (s *stubJudge) Verdict(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.verdict, s.err
}

func sampleDiff() map[string]any {
	return map[string]any{
		"values_changed": map[string]any{
			"root['x']": map[string]any{"old_value": 1.0, "new_value": 2.0},
		},
		"dictionary_item_added": map[string]any{
			"root['order']": map[string]any{"status": "complete"},
		},
	}
}

func TestEvaluateQueryMatch(t *testing.T) {
	e := NewEvaluator(&stubJudge{})

	t.Run("pass on string-equal result", func(t *testing.T) {
		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindQueryMatch,
			Description:   "x changed to 2",
			Query:         `values_changed."root['x']".new_value`,
			ExpectedValue: 2,
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Passed)
		require.Equal(t, 0, s.Failed)
		require.True(t, s.Outcomes[0].Passed)
	})

	t.Run("fail carries expected and actual", func(t *testing.T) {
		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindQueryMatch,
			Query:         `values_changed."root['x']".new_value`,
			ExpectedValue: 3,
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Failed)
		require.Equal(t, "expected=3 got=2", s.Outcomes[0].Message)
	})

	t.Run("query error is caught, not raised", func(t *testing.T) {
		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:  models.AssertionKindQueryMatch,
			Query: "broken[",
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Failed)
		require.Contains(t, s.Outcomes[0].Message, "query error")
	})

	t.Run("no diff available", func(t *testing.T) {
		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:  models.AssertionKindQueryMatch,
			Query: "anything",
		}}, nil, "")

		require.Equal(t, 1, s.Failed)
		require.Equal(t, "no diff available", s.Outcomes[0].Message)
	})
}

func TestEvaluateTextJudge(t *testing.T) {
	t.Run("empty response fails without judge call", func(t *testing.T) {
		j := &stubJudge{verdict: "YES"}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindTextJudge,
			ExpectedValue: "order confirmed",
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Failed)
		require.Equal(t, "no response", s.Outcomes[0].Message)
		require.Equal(t, 0, j.calls)
	})

	t.Run("passes on YES verdict", func(t *testing.T) {
		j := &stubJudge{verdict: "YES - the answer mentions the order"}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindTextJudge,
			ExpectedValue: "order confirmed",
		}}, sampleDiff(), "I placed the order successfully.")

		require.Equal(t, 1, s.Passed)
		require.Equal(t, 1, j.calls)
		require.Contains(t, j.prompts[0], "order confirmed")
		require.Contains(t, j.prompts[0], "I placed the order successfully.")
	})

	t.Run("fails on NO verdict", func(t *testing.T) {
		j := &stubJudge{verdict: "NO - unrelated"}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindTextJudge,
			ExpectedValue: "order confirmed",
		}}, sampleDiff(), "something else entirely")

		require.Equal(t, 1, s.Failed)
	})

	t.Run("judge failure is fail-closed", func(t *testing.T) {
		j := &stubJudge{err: errors.New("network down")}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindTextJudge,
			ExpectedValue: "order confirmed",
		}}, sampleDiff(), "done")

		require.Equal(t, 1, s.Failed)
		require.Contains(t, s.Outcomes[0].Message, "network down")
	})
}

func TestEvaluateQueryJudge(t *testing.T) {
	t.Run("null query result fails without invoking judge", func(t *testing.T) {
		j := &stubJudge{verdict: "YES"}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindQueryJudge,
			Query:         "values_changed.missing",
			ExpectedValue: "anything",
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Failed)
		require.Equal(t, "query returned nothing", s.Outcomes[0].Message)
		require.Equal(t, 0, j.calls)
	})

	t.Run("result is JSON-serialized into the prompt", func(t *testing.T) {
		j := &stubJudge{verdict: "YES matches"}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindQueryJudge,
			Query:         `dictionary_item_added."root['order']"`,
			ExpectedValue: "an order in status complete",
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Passed)
		require.Equal(t, 1, j.calls)
		require.Contains(t, j.prompts[0], `{"status":"complete"}`)
	})

	t.Run("judge failure is fail-closed", func(t *testing.T) {
		j := &stubJudge{err: errors.New("timeout")}
		e := NewEvaluator(j)

		s := e.Evaluate(context.Background(), []models.Assertion{{
			Kind:          models.AssertionKindQueryJudge,
			Query:         `values_changed."root['x']"`,
			ExpectedValue: "x became 2",
		}}, sampleDiff(), "")

		require.Equal(t, 1, s.Failed)
		require.Contains(t, s.Outcomes[0].Message, "timeout")
	})
}

func TestEvaluateUnknownKind(t *testing.T) {
	e := NewEvaluator(&stubJudge{})

	s := e.Evaluate(context.Background(), []models.Assertion{{
		Kind:        models.AssertionKind("regex_match"),
		Description: "bogus",
	}}, sampleDiff(), "")

	require.Equal(t, 1, s.Failed)
	require.Equal(t, "unknown assertion kind: regex_match", s.Outcomes[0].Message)
}

func TestEvaluateOrderAndCounts(t *testing.T) {
	j := &stubJudge{verdict: "YES"}
	e := NewEvaluator(j)

	s := e.Evaluate(context.Background(), []models.Assertion{
		{Kind: models.AssertionKindQueryMatch, Query: `values_changed."root['x']".new_value`, ExpectedValue: 2},
		{Kind: models.AssertionKindQueryMatch, Query: `values_changed."root['x']".old_value`, ExpectedValue: 99},
		{Kind: models.AssertionKindTextJudge, ExpectedValue: "done"},
	}, sampleDiff(), "done")

	require.Equal(t, 2, s.Passed)
	require.Equal(t, 1, s.Failed)
	require.Len(t, s.Outcomes, 3)
	require.True(t, s.Outcomes[0].Passed)
	require.False(t, s.Outcomes[1].Passed)
	require.True(t, s.Outcomes[2].Passed)
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "null"},
		{"string", "hello", "hello"},
		{"whole float", 2.0, "2"},
		{"fractional float", 2.5, "2.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"list", []any{"a", 1.0}, `["a",1]`},
		{"map", map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, stringify(tt.value))
		})
	}
}
