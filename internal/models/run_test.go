package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlannedActions(t *testing.T) {
	events := []Event{
		{Type: "run_started"},
		{Type: EventTypeStepPlanned, Payload: map[string]any{"action": "click login"}},
		{Type: "dom_snapshot", Payload: map[string]any{"action": "should be ignored"}},
		{Type: EventTypeStepPlanned, Payload: map[string]any{"action": "type username"}},
		{Type: EventTypeStepPlanned},
	}

	require.Equal(t, []string{"click login", "type username", ""}, PlannedActions(events))
}

func TestPlannedActionsEmpty(t *testing.T) {
	require.Nil(t, PlannedActions(nil))
	require.Nil(t, PlannedActions([]Event{{Type: "run_started"}}))
}

func TestFinalResponse(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		expected string
	}{
		{
			name: "last assistant message wins",
			messages: []Message{
				{Role: "user", Content: "do the task"},
				{Role: "assistant", Content: "working on it"},
				{Role: "assistant", Content: "done, order placed"},
			},
			expected: "done, order placed",
		},
		{
			name: "agent role is accepted",
			messages: []Message{
				{Role: "agent", Content: "checkout complete"},
				{Role: "user", Content: "thanks"},
			},
			expected: "checkout complete",
		},
		{
			name:     "no messages",
			messages: nil,
			expected: "",
		},
		{
			name: "only user messages",
			messages: []Message{
				{Role: "user", Content: "hello"},
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FinalResponse(tt.messages))
		})
	}
}

func TestDecodeRunMetrics(t *testing.T) {
	m, err := DecodeRunMetrics(map[string]any{
		"success":      true,
		"final_url":    "https://www.saucedemo.com/checkout-complete.html",
		"num_steps":    12,
		"cache_hits":   3,
		"cache_misses": 1,
		"wall_time_ms": 45500,
	})
	require.NoError(t, err)
	require.True(t, m.Success)
	require.Equal(t, 12, m.NumSteps)
	require.Equal(t, 3, m.CacheHits)
	require.Equal(t, int64(45500), m.WallTimeMS)
}

func TestDecodeRunMetricsWeaklyTyped(t *testing.T) {
	// JSON-decoded documents carry numbers as float64.
	m, err := DecodeRunMetrics(map[string]any{
		"num_steps": float64(30),
		"success":   false,
	})
	require.NoError(t, err)
	require.Equal(t, 30, m.NumSteps)
	require.False(t, m.Success)
}
