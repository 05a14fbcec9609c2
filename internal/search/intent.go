package search

import (
	"context"
	"strings"

	"interlinked/internal/llm"
	"interlinked/internal/logging"
)

// Intent is the routing decision for a resolved query.
type Intent string

const (
	IntentIssue    Intent = "issue"
	IntentCode     Intent = "code"
	IntentMixed    Intent = "mixed"
	IntentScenario Intent = "scenario"
	IntentOther    Intent = "other"
)

// sceneKeywords short-circuit classification without a generative call.
var sceneKeywords = []string{
	"log", "trace", "stack", "cmd", "command", "repro", "reproduce", "steps to reproduce",
}

const intentPrompt = `You are a query intent classifier. Given a user input, decide the query type:
- If the query is looking for similar historical issue reports, return "issue"
- If the query is asking about code definitions, functions, or implementation details, return "code"
- If it requires both, return "mixed"
- If it contains logs/commands/reproduction steps, return "scenario"
- Otherwise, return "other"

Only output one of: issue / code / mixed / scenario / other.
User input: `

// ClassifyIntent decides how a query is routed. Queries carrying scene or
// log structure never reach the generative backend; everything else is
// classified by it, with unrecognized answers degrading to scenario when
// the heuristics fired and to other when they did not.
func ClassifyIntent(ctx context.Context, c llm.Client, query string) Intent {
	ql := strings.ToLower(query)
	sceneLike := containsAny(ql, sceneKeywords) || LooksLikeScenario(query) || LooksLikeLog(query)
	if sceneLike {
		logging.Get(logging.CategoryIntent).Debug("Scene short-circuit for %q", query)
		return IntentScenario
	}

	res := llm.Ask(ctx, c, intentPrompt+query)
	if res.OK {
		switch Intent(strings.ToLower(strings.TrimSpace(res.Value))) {
		case IntentIssue:
			return IntentIssue
		case IntentCode:
			return IntentCode
		case IntentMixed:
			return IntentMixed
		case IntentScenario:
			return IntentScenario
		}
	}
	return IntentOther
}
