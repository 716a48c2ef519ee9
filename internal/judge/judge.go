// Package judge abstracts the external LLM oracle behind a narrow capability
// interface: a prompt in, a YES/NO-prefixed verdict out. Model selection,
// retries, and rate limiting belong to the implementation, never to the
// callers in the scoring engine.
package judge

import (
	"context"
	"strings"
)

// Judge turns a natural-language prompt into a verdict string. The engine
// depends only on the verdict's leading YES/NO token.
type Judge interface {
	Verdict(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Judge interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Verdict implements [Judge].
func (f Func) Verdict(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// IsYes reports whether a verdict starts with "YES", case-insensitively.
func IsYes(verdict string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(verdict)), "YES")
}
