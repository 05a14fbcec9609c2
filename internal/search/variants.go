package search

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Breadth caps for variant expansion. Tunable, not load-bearing; they
// exist to bound cost, not to hit exact counts.
const (
	maxTokens          = 5
	maxVariantsPerTok  = 5
	maxChoicesPerLevel = 4
	maxPrefixSet       = 12
	maxTotalVariants   = 40
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-./]+`)

// defaultSynonyms maps lowercase domain tokens to their expansions.
var defaultSynonyms = map[string][]string{
	"enable":  {"turn on", "start", "set", "enable"},
	"disable": {"turn off", "stop", "clear", "disable"},
	"kis":     {"KIS", "kis", "kernel integrity", "security"},
	"pmu":     {"PMU", "power", "power manager", "power reset"},
	"batt":    {"battery", "batt", "fuelgauge", "gpadc"},
	"aop":     {"AOP", "aop", "always-on processor"},
	"reset":   {"reset", "reboot", "restart"},
	"health":  {"health", "status", "capacity", "soh", "cycle"},
}

// SynonymTable maps domain tokens to alternate phrasings used during
// fuzzy query relaxation.
type SynonymTable map[string][]string

// DefaultSynonyms returns the built-in firmware-domain synonym table.
func DefaultSynonyms() SynonymTable {
	t := make(SynonymTable, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		t[k] = append([]string(nil), v...)
	}
	return t
}

// LoadSynonyms reads a YAML synonym table and merges it over the built-in
// defaults. File entries win on key collision.
func LoadSynonyms(path string) (SynonymTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonym table: %w", err)
	}
	var loaded map[string][]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse synonym table: %w", err)
	}
	t := DefaultSynonyms()
	for k, v := range loaded {
		t[strings.ToLower(k)] = v
	}
	return t, nil
}

// variantsForToken produces case, separator, and synonym variants of a
// single token, capped at maxVariantsPerTok.
func (t SynonymTable) variantsForToken(tok string) []string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(tok)
	add(strings.ToLower(tok))
	add(strings.ToUpper(tok))
	if strings.Contains(tok, "_") {
		add(strings.ReplaceAll(tok, "_", " "))
	}
	if strings.Contains(tok, "-") {
		add(strings.ReplaceAll(tok, "-", " "))
	}
	for _, syn := range t[strings.ToLower(tok)] {
		add(syn)
	}

	if len(out) > maxVariantsPerTok {
		out = out[:maxVariantsPerTok]
	}
	return out
}

// Expand derives an ordered, deduplicated ladder of query relaxations:
// exact forms first, then case/separator variants, then synonym
// substitutions, then prefixes. The original query is always included.
func (t SynonymTable) Expand(query string) []string {
	toks := tokenPattern.FindAllString(query, -1)
	if len(toks) == 0 {
		return []string{query}
	}

	limit := len(toks)
	if limit > maxTokens {
		limit = maxTokens
	}
	buckets := make([][]string, 0, limit)
	for _, tok := range toks[:limit] {
		vs := t.variantsForToken(tok)
		if len(vs) == 0 {
			vs = []string{tok}
		}
		buckets = append(buckets, vs)
	}

	var out []string
	prefix := []string{""}
	for _, choices := range buckets {
		if len(choices) > maxChoicesPerLevel {
			choices = choices[:maxChoicesPerLevel]
		}
		var next []string
		nextSeen := make(map[string]bool)
		for _, p := range prefix {
			for _, c := range choices {
				s := strings.TrimSpace(p + " " + c)
				if !nextSeen[s] {
					nextSeen[s] = true
					next = append(next, s)
				}
			}
		}
		if len(next) > maxPrefixSet {
			next = next[:maxPrefixSet]
		}
		prefix = next
		out = append(out, prefix...)
		if len(out) >= maxTotalVariants {
			out = out[:maxTotalVariants]
			break
		}
	}

	out = append(out, query)
	if len(toks) >= 2 {
		out = append(out, strings.Join(toks[:2], " "))
	}
	if len(toks) >= 3 {
		out = append(out, strings.Join(toks[:3], " "))
	}

	seen := make(map[string]bool)
	var dedup []string
	for _, q := range out {
		if strings.TrimSpace(q) == "" || seen[q] {
			continue
		}
		seen[q] = true
		dedup = append(dedup, q)
	}
	return dedup
}
