package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"interlinked/internal/llm"
	"interlinked/internal/logging"
	"interlinked/internal/search"
)

// FailureMarker prefixes user-visible error strings returned when a
// resolution pass fails beyond local recovery.
const FailureMarker = "[error] "

// emptyInputReply is returned for a blank turn.
const emptyInputReply = "Please describe your problem or paste the relevant log."

// vagueMarkers are phrases that flag a query as too vague to search
// without clarification.
var vagueMarkers = []string{
	"broken", "doesn't work", "does not work", "not working",
	"how to fix", "some error", "it fails", "went wrong", "weird", "strange",
}

// menuTokens are reserved single-character replies that must not be
// consumed as clarification answers.
var menuTokens = map[string]bool{"1": true, "2": true}

// Resolver turns a resolved query into the final answer text. Both paths
// degrade internally; they never return an error.
type Resolver interface {
	HandleNaturalQuery(ctx context.Context, query string) string
	HandleLogOrScene(ctx context.Context, text string) string
}

// Router drives the clarification state machine in front of a Resolver.
type Router struct {
	Store    *SessionStore
	Resolver Resolver
	LLM      llm.Client

	// VagueMinLength is the length below which any input counts as vague.
	VagueMinLength int
	// FollowupCount caps the clarification questions per round.
	FollowupCount int
}

// New returns a router with the default thresholds.
func New(resolver Resolver, client llm.Client) *Router {
	return &Router{
		Store:          NewSessionStore(),
		Resolver:       resolver,
		LLM:            client,
		VagueMinLength: 8,
		FollowupCount:  3,
	}
}

// RouteUserInput processes one turn for a session: either a clarification
// question to relay to the user, or the final synthesized answer. The
// session always ends a resolution turn clean, on success and on failure.
func (r *Router) RouteUserInput(ctx context.Context, sessionID, input string, forceFollowups bool) string {
	s := r.Store.Get(sessionID)

	query := strings.TrimSpace(input)
	if query == "" {
		return emptyInputReply
	}

	// An in-flight clarification round consumes this input as the answer
	// to the head question, unless it is a reserved menu token.
	if len(s.pendingQuestions) > 0 && s.anchorQuery != "" && !menuTokens[query] {
		head := s.pendingQuestions[0]
		s.pendingQuestions = s.pendingQuestions[1:]
		s.answered = append(s.answered, qa{Question: head, Answer: query})
		if len(s.pendingQuestions) > 0 {
			return s.pendingQuestions[0]
		}
		query = r.resolvedQuery(s)
		logging.Router("Clarification complete, resolved query: %q", query)
	}

	if s.anchorQuery == "" {
		s.anchorQuery = query
		s.answered = nil
		if forceFollowups || r.needFollowups(query) {
			s.pendingQuestions = r.genFollowups(ctx, query)
			if len(s.pendingQuestions) > 0 {
				logging.Router("Asking %d clarification questions", len(s.pendingQuestions))
				return s.pendingQuestions[0]
			}
		}
	}

	return r.resolve(ctx, s, sessionID, query)
}

// resolve routes the query to the search engine and clears the session.
// A panic anywhere below surfaces as a marked error string, never as a
// dangling session.
func (r *Router) resolve(ctx context.Context, s *Session, sessionID, query string) (answer string) {
	defer func() {
		s.reset()
		if rec := recover(); rec != nil {
			logging.Router("Resolution failed for session %s: %v", sessionID, rec)
			answer = fmt.Sprintf("%sunified search failed: %v", FailureMarker, rec)
		}
	}()

	if r.Resolver == nil {
		return FailureMarker + "no search backend configured"
	}
	if search.LooksLikeLog(query) || search.LooksLikeScenario(query) {
		return r.Resolver.HandleLogOrScene(ctx, query)
	}
	return r.Resolver.HandleNaturalQuery(ctx, query)
}

// resolvedQuery folds the answered clarifications back into the anchor.
func (r *Router) resolvedQuery(s *Session) string {
	var b strings.Builder
	b.WriteString(s.anchorQuery)
	b.WriteString("\n\n")
	for i, a := range s.answered {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.Question)
		b.WriteString(": ")
		b.WriteString(a.Answer)
	}
	return b.String()
}

// Reset clears one session's dialogue state.
func (r *Router) Reset(sessionID string) {
	r.Store.Reset(sessionID)
}

// needFollowups decides whether the input warrants clarification. Inputs
// that already look like a log or a scenario carry enough structure to
// search directly, however short.
func (r *Router) needFollowups(input string) bool {
	if search.LooksLikeLog(input) || search.LooksLikeScenario(input) {
		return false
	}
	return r.tooVague(input)
}

func (r *Router) tooVague(input string) bool {
	t := strings.TrimSpace(input)
	minLen := r.VagueMinLength
	if minLen <= 0 {
		minLen = 8
	}
	if len(t) < minLen {
		return true
	}
	tl := strings.ToLower(t)
	for _, m := range vagueMarkers {
		if strings.Contains(tl, m) {
			return true
		}
	}
	return false
}

// genFollowups asks the generative backend for short clarification
// questions. Any parse failure means zero questions and the turn proceeds
// straight to resolution.
func (r *Router) genFollowups(ctx context.Context, initialQuery string) []string {
	count := r.FollowupCount
	if count <= 0 {
		count = 3
	}
	prompt := fmt.Sprintf(`You are a debugging assistant. The user's initial question is:
%q

Give %d short, specific follow-up questions that help narrow down the investigation.
Return only a JSON list of strings (e.g. ["Which device model?","Which build?","Does it reproduce after reboot?"]), no explanations.`,
		initialQuery, count)

	res := llm.Ask(ctx, r.LLM, prompt)
	if !res.OK {
		return nil
	}
	var questions []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Value)), &questions); err != nil {
		logging.RouterDebug("Follow-up parse failed: %v", err)
		return nil
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions
}
