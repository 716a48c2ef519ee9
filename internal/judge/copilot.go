package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// CopilotJudge asks a Copilot session for verdicts. A fresh session is
// created per prompt; verdicts carry no conversation state between calls.
type CopilotJudge struct {
	model string
}

// NewCopilotJudge creates a judge backed by the Copilot SDK.
func NewCopilotJudge(model string) (*CopilotJudge, error) {
	if model == "" {
		return nil, errors.New("missing judge model")
	}
	return &CopilotJudge{model: model}, nil
}

// Verdict implements [Judge].
func (j *CopilotJudge) Verdict(ctx context.Context, prompt string) (string, error) {
	client := copilot.NewClient(&copilot.ClientOptions{
		AutoStart:       ptr(true),
		AutoRestart:     ptr(true),
		UseLoggedInUser: ptr(true),
		LogLevel:        "error",
	})

	defer func() {
		if err := client.Stop(); err != nil {
			slog.ErrorContext(ctx, "error stopping client after judge verdict")
		}
	}()

	session, err := client.CreateSession(ctx, &copilot.SessionConfig{
		Model:     j.model,
		Streaming: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create judge session: %w", err)
	}

	resp, err := session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: prompt,
		Mode:   "enqueue",
	})
	if err != nil {
		return "", fmt.Errorf("failed to send judge prompt: %w", err)
	}

	if resp.Data.Content == nil {
		return "", errors.New("judge returned no content")
	}

	slog.DebugContext(ctx, "judge verdict received", "model", j.model, "verdict", *resp.Data.Content)
	return *resp.Data.Content, nil
}

func ptr[T any](v T) *T { return &v }
