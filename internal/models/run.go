package models

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// EventTypeStepPlanned marks trace events that carry a planned action in
// their payload. Only these events participate in behavioral analysis.
const EventTypeStepPlanned = "step_planned"

// Event is one entry in a run's action trace.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Message is one entry in a run's conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunMetrics holds the metrics the agent runtime recorded for a run.
type RunMetrics struct {
	Success     bool   `json:"success" mapstructure:"success"`
	FinalURL    string `json:"final_url" mapstructure:"final_url"`
	NumSteps    int    `json:"num_steps" mapstructure:"num_steps"`
	CacheHits   int    `json:"cache_hits" mapstructure:"cache_hits"`
	CacheMisses int    `json:"cache_misses" mapstructure:"cache_misses"`
	WallTimeMS  int64  `json:"wall_time_ms" mapstructure:"wall_time_ms"`
}

// RunRecord is one recorded agent run, as stored by the runtime.
type RunRecord struct {
	RunID    string     `json:"run_id"`
	TaskID   string     `json:"task_id"`
	Mode     string     `json:"mode"`
	Status   string     `json:"status"`
	Metrics  RunMetrics `json:"metrics"`
	Events   []Event    `json:"events,omitempty"`
	Messages []Message  `json:"messages,omitempty"`
}

// DecodeRunMetrics converts a loosely-typed metrics map (as found in stored
// run documents) into a RunMetrics value.
func DecodeRunMetrics(raw map[string]any) (RunMetrics, error) {
	var m RunMetrics
	cfg := &mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return m, err
	}
	if err := dec.Decode(raw); err != nil {
		return m, fmt.Errorf("failed to decode run metrics: %w", err)
	}
	return m, nil
}

// PlannedActions extracts the action string from every step_planned event,
// in trace order. Events without an action contribute an empty string.
func PlannedActions(events []Event) []string {
	var actions []string
	for _, e := range events {
		if e.Type != EventTypeStepPlanned {
			continue
		}
		action, _ := e.Payload["action"].(string)
		actions = append(actions, action)
	}
	return actions
}

// FinalResponse returns the content of the last message whose role is
// "assistant" or "agent", or "" when there is none.
func FinalResponse(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case "assistant", "agent":
			return messages[i].Content
		}
	}
	return ""
}
