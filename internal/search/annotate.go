package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const clipMarker = "\n/*...clip...*/"

// clip truncates s to n characters, marking the cut.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + clipMarker
}

var (
	fenceOpenPat     = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClosePat    = regexp.MustCompile("\\s*```$")
	trailingCommaPat = regexp.MustCompile(`,(\s*[}\]])`)

	paramListPat = regexp.MustCompile(`\(([^)]*)\)`)
	paramNamePat = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*(?:\[[^\]]*\])?\s*$`)
	callPat      = regexp.MustCompile(`\b([a-z_][a-z0-9_]{2,})\s*\(`)
)

// callNoise are tokens the call extractor must not report as callees.
var callNoise = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"return": true, "sizeof": true, "defined": true,
}

// extractParams guesses parameter names from the first argument list in a
// C snippet. Best effort; the annotation pass treats these as hints only.
func extractParams(content string) []string {
	m := paramListPat.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	inner := strings.TrimSpace(m[1])
	if inner == "" || inner == "void" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(strings.Trim(part, "*"))
		if nm := paramNamePat.FindStringSubmatch(part); nm != nil {
			out = append(out, nm[1])
		}
	}
	return out
}

// extractCalledFunctions guesses callee names appearing in a C snippet.
func extractCalledFunctions(content, self string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range callPat.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if name == self || callNoise[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// SnippetAround returns a window of content centered on the first
// occurrence of phrase, or the head of the content when absent.
func SnippetAround(content, phrase string, window int) string {
	if window <= 0 {
		window = 900
	}
	idx := -1
	if phrase != "" {
		idx = strings.Index(strings.ToLower(content), strings.ToLower(phrase))
	}
	if idx < 0 {
		return clip(content, window)
	}
	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(content) {
		end = len(content)
	}
	out := content[start:end]
	if start > 0 {
		out = "/*...*/ " + out
	}
	if end < len(content) {
		out += clipMarker
	}
	return out
}

// buildAnnotationPrompt assembles the structured-analysis request for a
// set of matched code hits.
func buildAnnotationPrompt(phrase string, hits []CodeHit, question string) string {
	var entries []string
	for _, h := range hits {
		params, _ := json.Marshal(extractParams(h.Content))
		calls, _ := json.Marshal(extractCalledFunctions(h.Content, h.Name))
		entries = append(entries, fmt.Sprintf(`### ITEM
Function: %s
File: %s:%d-%d

ParamsGuess: %s
CallsGuess: %s

Snippet:
%s
`, h.Name, h.File, h.StartLine, h.EndLine, params, calls, SnippetAround(h.Content, phrase, 1200)))
	}

	qline := ""
	if question != "" {
		qline = "Scenario: " + question + "\n"
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are an experienced embedded/C code analysis assistant. The following are code snippets that exactly or fuzzily match the phrase "%s" (found via semantic search, server-side filtering, and client validation). %s
For each item, analyze the function's responsibility and flow, and output strict JSON only (no Markdown).

Make the explanations understandable for readers who are not firmware engineers:
- Use plain English.
- Briefly explain hardware terms, acronyms, or uncommon APIs when they appear.

Context items:
%s

Required JSON structure (array), for example:
[
  {
    "function_name": "",
    "location": "{file}:{start_line}-{end_line}",
    "role": "1-2 sentence responsibility in plain English",
    "parameters": [{"name":"","type":"","meaning":"plain-English explanation"}],
    "called_functions": [],
    "logic_flow": ["Step-by-step execution (conditions/calls where possible)"],
    "possible_causes": ["Likely reasons for 'no output' or failures related to this phrase"],
    "diagnostics": ["Verifiable checks (logs, registers/status bits, conditions, tracing, etc.)"]
  }
]

Strict rules:
- Output only valid JSON, as an array of objects (one per matched item).
- If details are insufficient, infer from the snippet when reasonable; do NOT invent APIs or hardware register names that do not exist.
- You may use ParamsGuess/CallsGuess to fill in missing parameters/callees.
`, phrase, qline, strings.Join(entries, "\n\n")))
}

// annotation is the wire shape the annotation prompt asks the model for.
type annotation struct {
	FunctionName    string   `json:"function_name"`
	Location        string   `json:"location"`
	Role            string   `json:"role"`
	Parameters      []Param  `json:"parameters"`
	CalledFunctions []string `json:"called_functions"`
	LogicFlow       []string `json:"logic_flow"`
	PossibleCauses  []string `json:"possible_causes"`
	Diagnostics     []string `json:"diagnostics"`
}

// parseAnnotationJSON recovers a JSON array from model output that may be
// wrapped in code fences, preceded by prose, or carry trailing commas.
func parseAnnotationJSON(text string) ([]annotation, error) {
	text = strings.TrimSpace(text)
	text = fenceOpenPat.ReplaceAllString(text, "")
	text = fenceClosePat.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	raw := ""
	if start := strings.Index(text, "["); start >= 0 && strings.HasSuffix(text, "]") {
		raw = text[start:]
	} else if start := strings.Index(text, "{"); start >= 0 {
		end := strings.LastIndex(text, "}")
		if end <= start {
			return nil, fmt.Errorf("no JSON found in response")
		}
		raw = "[" + text[start:end+1] + "]"
	} else {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var out []annotation
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}
	raw = trailingCommaPat.ReplaceAllString(raw, "$1")
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse annotation JSON: %w", err)
	}
	return out, nil
}

// guessAnnotations fills parameter and callee fields from the regex
// extractors when the structured pass yields no usable JSON.
func guessAnnotations(hits []CodeHit) []CodeHit {
	out := make([]CodeHit, len(hits))
	copy(out, hits)
	for i := range out {
		if strings.TrimSpace(out[i].Content) == "" {
			continue
		}
		if len(out[i].Parameters) == 0 {
			for _, name := range extractParams(out[i].Content) {
				out[i].Parameters = append(out[i].Parameters, Param{Name: name})
			}
		}
		if len(out[i].CalledFunctions) == 0 {
			out[i].CalledFunctions = extractCalledFunctions(out[i].Content, out[i].Name)
		}
	}
	return out
}

// applyAnnotations copies structured fields back onto the hits, matching
// by function name first and falling back to positional order.
func applyAnnotations(hits []CodeHit, anns []annotation) []CodeHit {
	byName := make(map[string]annotation, len(anns))
	for _, a := range anns {
		if a.FunctionName != "" {
			byName[a.FunctionName] = a
		}
	}
	for i := range hits {
		a, ok := byName[hits[i].Name]
		if !ok {
			if i >= len(anns) {
				continue
			}
			a = anns[i]
		}
		if a.Role != "" {
			if hits[i].Role != "" && strings.Contains(hits[i].Role, FuzzyReviewNote) {
				hits[i].Role = a.Role + "  " + FuzzyReviewNote
			} else {
				hits[i].Role = a.Role
			}
		}
		hits[i].Parameters = a.Parameters
		hits[i].CalledFunctions = a.CalledFunctions
		hits[i].LogicFlow = a.LogicFlow
		hits[i].PossibleCauses = a.PossibleCauses
		hits[i].Diagnostics = a.Diagnostics
	}
	return hits
}
