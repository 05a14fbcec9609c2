package search

import (
	"context"
	"strings"

	"interlinked/internal/corpus"
	"interlinked/internal/llm"
	"interlinked/internal/logging"
)

// Limits bundles the tunable retrieval knobs.
type Limits struct {
	CodeLimit     int
	IssueTopK     int
	SceneCodeLim  int
	SceneIssueTop int
}

// DefaultLimits mirrors the defaults used throughout the engine.
func DefaultLimits() Limits {
	return Limits{CodeLimit: 8, IssueTopK: 8, SceneCodeLim: 8, SceneIssueTop: 6}
}

// Engine wires the corpora, the generative backend, and the retrieval
// escalation into the query entry points the router calls.
type Engine struct {
	Code   CodeSearcher
	Issues IssueSearcher
	LLM    llm.Client
	Limits Limits

	retriever *Retriever
}

// NewEngine builds an engine over the given collaborators. Synonyms may
// be nil to use the built-in table.
func NewEngine(code CodeSearcher, issues IssueSearcher, client llm.Client, synonyms SynonymTable, limits Limits) *Engine {
	if limits.CodeLimit <= 0 {
		limits = DefaultLimits()
	}
	return &Engine{
		Code:      code,
		Issues:    issues,
		LLM:       client,
		Limits:    limits,
		retriever: &Retriever{Searcher: code, Synonyms: synonyms},
	}
}

// NewEngineFromStore adapts a corpus store into both collaborators.
func NewEngineFromStore(store *corpus.Store, client llm.Client, synonyms SynonymTable, limits Limits) *Engine {
	adapter := &storeAdapter{store: store}
	return NewEngine(adapter, adapter, client, synonyms, limits)
}

// storeAdapter bridges the corpus store's record types into hit types.
type storeAdapter struct {
	store *corpus.Store
}

func (a *storeAdapter) SearchCode(ctx context.Context, query string, limit int) ([]CodeHit, error) {
	recs, err := a.store.HybridSearchCode(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]CodeHit, 0, len(recs))
	for _, r := range recs {
		hits = append(hits, CodeHit{
			Name:      r.Name,
			File:      r.File,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			Content:   r.Content,
		})
	}
	return hits, nil
}

func (a *storeAdapter) SearchIssues(ctx context.Context, query string, topK int, component, phrase string) ([]IssueHit, error) {
	recs, err := a.store.SimilaritySearchIssues(ctx, query, topK, corpus.IssueFilter{
		Component: component,
		Phrase:    phrase,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]IssueHit, 0, len(recs))
	for _, r := range recs {
		hits = append(hits, IssueHit{
			IssueID:     r.IssueID,
			Component:   r.Component,
			Score:       r.Score,
			Title:       r.Title,
			Description: ReconstructDescription(r.Description, r.Content),
		})
	}
	return hits, nil
}

// RunCodeOnly searches the code corpus with fuzzy escalation.
func (e *Engine) RunCodeOnly(ctx context.Context, query string, limit int) Bundle {
	if limit <= 0 {
		limit = e.Limits.CodeLimit
	}
	return Bundle{Query: query, Code: e.retriever.Retrieve(ctx, query, limit)}
}

// RunIssueOnly searches the issue corpus.
func (e *Engine) RunIssueOnly(ctx context.Context, query string, topK int) Bundle {
	if topK <= 0 {
		topK = e.Limits.IssueTopK
	}
	return Bundle{Query: query, Issues: RetrieveIssues(ctx, e.Issues, query, topK, "", "")}
}

// DualOptions narrows a dual search: an alternate code phrase and issue
// filters.
type DualOptions struct {
	CodePhrase     string
	IssueComponent string
	IssuePhrase    string
}

// RunDualSearch searches both corpora for a mixed-intent query.
func (e *Engine) RunDualSearch(ctx context.Context, query string, codeLimit, issueTopK int, opts DualOptions) Bundle {
	if codeLimit <= 0 {
		codeLimit = e.Limits.CodeLimit
	}
	if issueTopK <= 0 {
		issueTopK = e.Limits.IssueTopK
	}

	baseQ := opts.CodePhrase
	if baseQ == "" {
		baseQ = query
	}
	return Bundle{
		Query:  query,
		Code:   e.retriever.Retrieve(ctx, baseQ, codeLimit),
		Issues: RetrieveIssues(ctx, e.Issues, query, issueTopK, opts.IssueComponent, opts.IssuePhrase),
	}
}

// HandleNaturalQuery is the one-stop entry the dialogue router calls with
// a resolved query: classify, route, retrieve, synthesize.
func (e *Engine) HandleNaturalQuery(ctx context.Context, query string) string {
	intent := ClassifyIntent(ctx, e.LLM, query)
	logging.Get(logging.CategoryIntent).Info("Classified %q as %s", query, intent)

	switch intent {
	case IntentIssue:
		return e.synthesize(ctx, query, e.RunIssueOnly(ctx, query, e.Limits.IssueTopK), "")
	case IntentCode:
		if wantsExplanation(query) {
			return e.ExplainFunction(ctx, query)
		}
		return e.synthesize(ctx, query, e.RunCodeOnly(ctx, query, e.Limits.CodeLimit), "")
	case IntentMixed:
		return e.synthesize(ctx, query,
			e.RunDualSearch(ctx, query, e.Limits.CodeLimit, e.Limits.IssueTopK, DualOptions{}), "")
	case IntentScenario:
		return e.HandleLogOrScene(ctx, query)
	}

	// Unclassified queries still get a best-effort dual search, slightly
	// narrower than the mixed path.
	bundle := e.RunDualSearch(ctx, query, 6, 6, DualOptions{})
	return e.synthesize(ctx, query, bundle, "")
}

// synthesize runs the structured-analysis pass over the bundle's code
// hits and renders the unified report. Every retrieval path carries the
// role/call-chain sections, not just the scene path.
func (e *Engine) synthesize(ctx context.Context, phrase string, bundle Bundle, extra string) string {
	bundle.Code = e.annotateHits(ctx, phrase, bundle.Code, phrase)
	return MakeUnifiedReport(ctx, e.LLM, bundle, extra,
		naturalizeAnnotations(bundle.Code), annotatedOnly(bundle.Code))
}

// wantsExplanation detects explain-a-function phrasing.
func wantsExplanation(query string) bool {
	ql := strings.ToLower(query)
	return strings.Contains(ql, "what does") || strings.Contains(ql, "explain") ||
		strings.Contains(query, "(") || strings.Contains(query, "::") || strings.Contains(query, "_")
}

// HandleLogOrScene turns a scenario description or pasted log into a
// unified report: extract commands and terms, search code with fuzzy
// fallback, annotate, compare against historical issues, synthesize.
func (e *Engine) HandleLogOrScene(ctx context.Context, sceneText string) string {
	timer := logging.StartTimer(logging.CategoryScene, "HandleLogOrScene")
	defer timer.Stop()

	cmds, terms := ExtractCommandsAndTerms(ctx, e.LLM, sceneText)

	codeQuery := strings.TrimSpace(strings.Join(append(append([]string{}, cmds...), terms...), " "))
	if codeQuery == "" {
		codeQuery = clipRunes(sceneText, 160)
	}

	base := e.RunCodeOnly(ctx, codeQuery, e.Limits.SceneCodeLim)
	codeHits := base.Code

	annotated := e.annotateHits(ctx, codeQuery, codeHits, clipRunes(sceneText, 200))
	codeJSONSection := naturalizeAnnotations(annotated)
	structured := annotatedOnly(annotated)

	issueHits := RetrieveIssues(ctx, e.Issues, codeQuery, e.Limits.SceneIssueTop, "", "")

	bundle := Bundle{
		Query:  "[Scene/Log] " + clipRunes(sceneText, 240),
		Code:   annotated,
		Issues: issueHits,
	}

	extra := ""
	if len(cmds) > 0 || len(terms) > 0 {
		extra = "[Scene extraction]\n- Commands: " + joinOrNone(cmds) + "\n- Keywords: " + joinOrNone(terms) + "\n"
	}

	return MakeUnifiedReport(ctx, e.LLM, bundle, extra, codeJSONSection, structured)
}

// annotateHits runs the structured-analysis pass over hits that carry
// content. When the backend is unreachable or returns unusable JSON the
// hits fall back to regex-extracted parameter and callee guesses.
func (e *Engine) annotateHits(ctx context.Context, phrase string, hits []CodeHit, question string) []CodeHit {
	if len(annotatedOnly(hits)) > 0 {
		return hits
	}
	var withContent []CodeHit
	for _, h := range hits {
		if strings.TrimSpace(h.Content) != "" {
			withContent = append(withContent, h)
		}
	}
	if len(withContent) == 0 {
		return hits
	}

	prompt := buildAnnotationPrompt(phrase, withContent, question)
	res := llm.Ask(ctx, e.LLM, prompt)
	if !res.OK {
		return guessAnnotations(hits)
	}
	anns, err := parseAnnotationJSON(res.Value)
	if err != nil {
		logging.Get(logging.CategoryReport).Debug("Annotation parse failed: %v", err)
		return guessAnnotations(hits)
	}
	return applyAnnotations(hits, anns)
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return strings.Join(s, ", ")
}

// clipRunes truncates without splitting a multibyte character.
func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
