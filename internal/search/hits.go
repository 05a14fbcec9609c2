// Package search implements the unified query orchestration engine: intent
// classification, query variant expansion, hybrid retrieval with fuzzy
// fallback over the code corpus, issue similarity lookup, scene/log term
// extraction, and synthesis of the final report.
package search

import "fmt"

// Provenance records which retrieval phase produced a hit.
const (
	ProvenanceStrict = "strict"
	ProvenanceFuzzy  = "fuzzy"
)

// FuzzyReviewNote is appended to the role text of hits found only through
// relaxed query variants.
const FuzzyReviewNote = "[fuzzy match — please review manually]"

// Param is one annotated function parameter.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Meaning string `json:"meaning"`
}

// CodeHit is one retrieved code entity plus whatever structured analysis
// the annotation pass has filled in.
type CodeHit struct {
	Name      string
	File      string
	StartLine int
	EndLine   int
	Content   string

	// Structured fields, absent until the annotation pass runs.
	Role            string
	Parameters      []Param
	CalledFunctions []string
	LogicFlow       []string
	PossibleCauses  []string
	Diagnostics     []string

	Provenance string
	Score      int
}

// Location renders the file:start-end span.
func (h CodeHit) Location() string {
	return fmt.Sprintf("%s:%d-%d", h.File, h.StartLine, h.EndLine)
}

// Key is the deduplication identity.
func (h CodeHit) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s", h.File, h.StartLine, h.EndLine, h.Name)
}

// IsFuzzy reports whether the hit came only from the fuzzy phase.
func (h CodeHit) IsFuzzy() bool {
	return h.Provenance == ProvenanceFuzzy
}

// IssueHit is one retrieved historical issue report.
type IssueHit struct {
	IssueID     string
	Component   string
	Score       float64
	Title       string
	Description string
}

// Bundle is the unit passed into report synthesis.
type Bundle struct {
	Query  string
	Code   []CodeHit
	Issues []IssueHit
}
