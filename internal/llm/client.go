// Package llm provides the generative backend client used across the
// orchestration engine. All consumers go through AskText, which degrades to
// a literal fallback-echo marker when no backend is reachable so that
// callers can branch to heuristic-only behavior instead of failing.
package llm

import (
	"context"
	"strings"
)

// Client defines the interface for LLM interactions.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// FallbackPrefix marks a response produced locally because the generative
// backend was unavailable or the call failed. Every caller must detect it.
const FallbackPrefix = "[fallback echo]\n"

// Result is the tagged outcome of a generative call. Consumers branch on OK
// instead of probing the raw string.
type Result struct {
	OK    bool
	Value string // response text, valid only when OK
	Raw   string // fallback echo (prompt included), valid only when !OK
}

// IsFallback reports whether a response string is a fallback echo.
func IsFallback(s string) bool {
	return strings.HasPrefix(s, FallbackPrefix)
}

// AskText sends a prompt and always returns usable text: the model's
// response on success, or FallbackPrefix+prompt when the client is nil or
// the call fails.
func AskText(ctx context.Context, c Client, prompt string) string {
	return Ask(ctx, c, prompt).Text()
}

// Ask sends a prompt and returns a tagged Result.
func Ask(ctx context.Context, c Client, prompt string) Result {
	if c == nil {
		return Result{Raw: FallbackPrefix + prompt}
	}
	resp, err := c.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(resp) == "" {
		return Result{Raw: FallbackPrefix + prompt}
	}
	return Result{OK: true, Value: resp}
}

// Text flattens a Result back into the string form callers render.
func (r Result) Text() string {
	if r.OK {
		return r.Value
	}
	return r.Raw
}
