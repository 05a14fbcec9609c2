package search

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"interlinked/internal/llm"
)

const (
	maxSceneCommands = 4
	maxSceneTerms    = 10
)

var (
	cmdPattern       = regexp.MustCompile(`(?:^|[\s` + "`" + `>])([a-zA-Z0-9_\-./]+(?:\s+-[-a-zA-Z0-9_]+|\s+--[-a-zA-Z0-9_]+|\s+[^\n\r]+)?)$`)
	termPattern      = regexp.MustCompile(`[A-Za-z0-9_./+\-]{3,}`)
	timestampPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T _]\d{2}:\d{2}`)
	failureWordsPat  = regexp.MustCompile(`(?i)\b(ERROR|FAIL|FAILED|Exception|timeout)\b`)
	scenarioPattern  = regexp.MustCompile(`(?i)(run|running|ran|invoke|call|execute|enable|input|send).+(error|fail|fails|failed|timeout|crash)`)
)

var failureSubstrings = []string{"error", "fail", "failed", "timeout", "crash", "panic"}

// domainModules are hardware/firmware module names worth surfacing from a
// log even when no failure word is attached.
var domainModules = []string{"kis", "pmu", "gpadc", "laguna", "aop", "imu", "batt", "readbatt"}

// LooksLikeLog reports whether the text reads like a pasted terminal log:
// multi-line with either timestamps or failure keywords.
func LooksLikeLog(text string) bool {
	if !strings.Contains(text, "\n") || len(strings.Split(text, "\n")) < 3 {
		return false
	}
	return timestampPattern.MatchString(text) || failureWordsPat.MatchString(text)
}

// LooksLikeScenario reports whether the text describes an action followed
// by a failure, the shape of a reproduction description.
func LooksLikeScenario(text string) bool {
	return scenarioPattern.MatchString(text)
}

// ExtractCommandsAndTerms pulls shell-like command fragments and
// failure/module keywords out of a scene description or pasted log.
// When a generative client is supplied its refinement is merged ahead of
// the heuristic output; refinement failures are ignored since the
// heuristics alone remain valid.
func ExtractCommandsAndTerms(ctx context.Context, c llm.Client, sceneOrLog string) (commands, terms []string) {
	text := strings.TrimSpace(sceneOrLog)
	if text == "" {
		return nil, nil
	}

	var cmds []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "$") || strings.HasPrefix(line, ">") || strings.HasPrefix(line, "=>") {
			line = strings.TrimLeft(line, "#$>= ")
		}
		m := cmdPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		cmd := strings.TrimSpace(m[1])
		if strings.Contains(cmd, " ") || strings.Contains(cmd, "/") ||
			strings.HasSuffix(cmd, ".sh") || strings.HasSuffix(cmd, ".py") {
			cmds = append(cmds, cmd)
		}
	}

	var heurTerms []string
	termSeen := make(map[string]bool)
	for _, w := range termPattern.FindAllString(text, -1) {
		wl := strings.ToLower(w)
		keep := containsAny(wl, failureSubstrings) || containsAny(wl, domainModules)
		if keep && !termSeen[w] {
			termSeen[w] = true
			heurTerms = append(heurTerms, w)
		}
	}

	cmds, heurTerms = refineSceneExtraction(ctx, c, text, cmds, heurTerms)

	if len(cmds) > maxSceneCommands {
		cmds = cmds[:maxSceneCommands]
	}
	if len(heurTerms) > maxSceneTerms {
		heurTerms = heurTerms[:maxSceneTerms]
	}
	return cmds, heurTerms
}

// refineSceneExtraction asks the generative backend for a structured
// refinement and merges it ahead of the heuristic results.
func refineSceneExtraction(ctx context.Context, c llm.Client, text string, cmds, terms []string) ([]string, []string) {
	prompt := "From the following scene/log text, extract the most critical commands (1-3) and terms/modules (2-6) for troubleshooting.\n" +
		`Output JSON only: {"commands":[], "terms":[]}. Do not add explanations.` + "\nText:\n" + text

	res := llm.Ask(ctx, c, prompt)
	if !res.OK {
		return cmds, terms
	}

	var parsed struct {
		Commands []string `json:"commands"`
		Terms    []string `json:"terms"`
	}
	if err := json.Unmarshal([]byte(res.Value), &parsed); err != nil {
		return cmds, terms
	}
	return dedupeStrings(append(parsed.Commands, cmds...)),
		dedupeStrings(append(parsed.Terms, terms...))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
