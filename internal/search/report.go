package search

import (
	"context"
	"fmt"
	"strings"

	"interlinked/internal/llm"
	"interlinked/internal/logging"
)

// fallbackReportHeader prefixes the degraded artifact rendered when the
// generative backend is unreachable: the assembled prompt itself, so the
// caller still sees everything retrieval found.
const fallbackReportHeader = "## Unified Report (Fallback)\n\n"

// formatCodeHits renders code hits for the report prompt body.
func formatCodeHits(hits []CodeHit) string {
	if len(hits) == 0 {
		return "(no code hits)"
	}
	var lines []string
	for i, h := range hits {
		name := h.Name
		if name == "" {
			name = "(unknown)"
		}
		called := h.CalledFunctions
		if len(called) > 6 {
			called = called[:6]
		}
		fuzzyTag := ""
		if h.IsFuzzy() || strings.Contains(h.Role, FuzzyReviewNote) {
			fuzzyTag = "  " + FuzzyReviewNote
		}
		lines = append(lines, fmt.Sprintf(
			"- [Code #%d] %s @ %s%s\n  role: %s\n  called: %s",
			i+1, name, h.Location(), fuzzyTag, h.Role, strings.Join(called, ", ")))
	}
	return strings.Join(lines, "\n")
}

// formatIssueHits renders issue hits for the report prompt body.
func formatIssueHits(hits []IssueHit) string {
	if len(hits) == 0 {
		return "(no issue hits)"
	}
	var lines []string
	for i, h := range hits {
		desc := clip(strings.TrimSpace(h.Description), 500)
		lines = append(lines, fmt.Sprintf(
			"- [Issue #%d] %s (comp %s, score %.3f)\n  Title: %s\n  Desc : %s",
			i+1, h.IssueID, h.Component, h.Score, h.Title, desc))
	}
	return strings.Join(lines, "\n")
}

// naturalizeAnnotations converts annotated hits into readable paragraphs
// for the unified report.
func naturalizeAnnotations(hits []CodeHit) string {
	annotated := annotatedOnly(hits)
	if len(annotated) == 0 {
		return "(no structured code analysis)"
	}
	var out []string
	for i, h := range annotated {
		lines := []string{fmt.Sprintf("- [Code #%d] %s @ %s", i+1, h.Name, h.Location())}
		if h.Role != "" {
			lines = append(lines, "  Responsibility: "+h.Role)
		} else {
			lines = append(lines, "  Responsibility: (missing)")
		}
		if len(h.Parameters) > 0 {
			lines = append(lines, "  Parameters:")
			for _, p := range capParams(h.Parameters, 6) {
				lines = append(lines, fmt.Sprintf("    - %s (%s): %s", p.Name, p.Type, p.Meaning))
			}
		}
		if len(h.CalledFunctions) > 0 {
			lines = append(lines, "  Possible call chain: "+strings.Join(capStrings(h.CalledFunctions, 8), ", "))
		}
		if len(h.LogicFlow) > 0 {
			lines = append(lines, "  Execution flow:")
			for _, step := range capStrings(h.LogicFlow, 8) {
				lines = append(lines, "    - "+step)
			}
		}
		if len(h.PossibleCauses) > 0 {
			lines = append(lines, "  Possible causes: "+strings.Join(capStrings(h.PossibleCauses, 5), "; "))
		}
		if len(h.Diagnostics) > 0 {
			lines = append(lines, "  Diagnostics:")
			for _, d := range capStrings(h.Diagnostics, 6) {
				lines = append(lines, "    - "+d)
			}
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return strings.Join(out, "\n")
}

// annotatedOnly keeps the hits the annotation pass actually filled in.
// A role holding only the fuzzy review note does not count; that tag is
// set by retrieval, not by analysis.
func annotatedOnly(hits []CodeHit) []CodeHit {
	var out []CodeHit
	for _, h := range hits {
		role := strings.TrimSpace(strings.ReplaceAll(h.Role, FuzzyReviewNote, ""))
		if role != "" || len(h.Parameters) > 0 || len(h.CalledFunctions) > 0 ||
			len(h.LogicFlow) > 0 || len(h.Diagnostics) > 0 {
			out = append(out, h)
		}
	}
	return out
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func capParams(s []Param, n int) []Param {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// BuildReportPrompt assembles the synthesis prompt: query, formatted hits
// from both corpora, the naturalized structured analysis, and any scene
// extraction context.
func BuildReportPrompt(bundle Bundle, extraSection, codeJSONSection string, structured []CodeHit) string {
	codeBlock := formatCodeHits(bundle.Code)
	issueBlock := formatIssueHits(bundle.Issues)
	if codeJSONSection == "" {
		codeJSONSection = "(no structured code analysis)"
	}

	structText := "(no structured items)"
	if len(structured) > 0 {
		var rows []string
		for i, h := range structured {
			name := h.Name
			if name == "" {
				name = "(unknown)"
			}
			rows = append(rows, fmt.Sprintf(
				"- [%d] %s @ %s\n  role: %s\n  params: %v\n  called_functions: %v",
				i+1, name, h.Location(), h.Role, h.Parameters, h.CalledFunctions))
		}
		structText = strings.Join(rows, "\n")
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are a senior embedded systems troubleshooting assistant. User query:
%s
%s

We searched in two sources:
[Code] Matches:
%s

[Code] Structured analysis (natural language):
%s

[Issues] Similar historical issues:
%s

Please generate a unified technical report in English that is understandable to people without deep firmware knowledge.
Write in clear, plain English while preserving technical accuracy.

The report should include:
1) Summary conclusions (4-7 clear bullet points)
2) Observed symptoms and scope (confirmed facts only)
3) Possible root causes from the code side (reference [Code #] items; if marked "(fuzzy match)", mention that manual review is required)
4) Code structure (array):
%s
5) Historical issue comparison (identify the 2-3 most similar, describe the fix/solution back then, and note similarities/differences with the current issue)
6) Reproduction scenario and observable signals (specific commands, key log values, registers/status flags, tracing options)
7) Suggested step-by-step investigation plan (in priority order)
8) Temporary workarounds (if any)
9) Next actions (modules to modify, risks, stakeholders to involve)

Requirements:
- When referencing specific functions or issues, include "[Code #n] / [Issue #n]".
- Explain technical terms briefly in plain English to aid non-firmware readers.
- If information is missing, include a "Questions to clarify" list.
`, bundle.Query, extraSection, codeBlock, codeJSONSection, issueBlock, structText))
}

// MakeUnifiedReport synthesizes the final artifact. When the backend is
// unreachable the artifact is a literal rendering of the assembled prompt
// so the work already done stays visible.
func MakeUnifiedReport(ctx context.Context, c llm.Client, bundle Bundle, extraSection, codeJSONSection string, structured []CodeHit) string {
	timer := logging.StartTimer(logging.CategoryReport, "MakeUnifiedReport")
	defer timer.Stop()

	prompt := BuildReportPrompt(bundle, extraSection, codeJSONSection, structured)
	res := llm.Ask(ctx, c, prompt)
	if !res.OK {
		return fallbackReportHeader + prompt
	}
	return res.Value
}
