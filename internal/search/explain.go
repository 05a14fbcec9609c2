package search

import (
	"context"
	"fmt"
	"strings"

	"interlinked/internal/llm"
)

// ExplainFunction answers "what does X do" phrasing directly: a narrow
// strict search, then a prose explanation of whatever matched.
func (e *Engine) ExplainFunction(ctx context.Context, funcQuery string) string {
	hits, err := e.Code.SearchCode(ctx, funcQuery, 5)
	if err != nil || len(hits) == 0 {
		return "No related function or snippet found in the codebase."
	}
	hits = RankHits(hits, funcQuery)

	var parts []string
	for i, h := range hits {
		params := extractParams(h.Content)
		called := extractCalledFunctions(h.Content, h.Name)
		parts = append(parts, fmt.Sprintf(
			"[Code #%d] %s @ %s\nrole: %s\nparams: %v\ncalled: %v\n\nSnippet:\n%s",
			i+1, h.Name, h.Location(), h.Role, params, called, clip(h.Content, 900)))
	}

	prompt := fmt.Sprintf(`Below are several code snippets and notes related to `+"`%s`"+`.
Please explain in concise English the function/interface responsibilities, key branches, and call flows,
and list typical failure scenarios and debugging suggestions:

%s`, funcQuery, strings.Join(parts, "\n\n"))

	res := llm.Ask(ctx, e.LLM, prompt)
	if !res.OK {
		return fallbackReportHeader + prompt
	}
	return res.Value
}
