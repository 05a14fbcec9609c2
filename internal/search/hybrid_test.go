package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubSearcher returns canned hits per query and records every call.
type stubSearcher struct {
	byQuery map[string][]CodeHit
	deflt   []CodeHit
	err     error
	calls   []string
}

func (s *stubSearcher) SearchCode(ctx context.Context, query string, limit int) ([]CodeHit, error) {
	s.calls = append(s.calls, query)
	if s.err != nil {
		return nil, s.err
	}
	if hits, ok := s.byQuery[query]; ok {
		return hits, nil
	}
	return s.deflt, nil
}

func TestRetrieveStrictSufficient(t *testing.T) {
	stub := &stubSearcher{deflt: []CodeHit{
		hit("kis_enable", "kis.c", 1),
		hit("kis_check", "kis.c", 40),
		hit("kis_init", "kis.c", 80),
	}}
	r := &Retriever{Searcher: stub}

	got := r.Retrieve(context.Background(), "kis", 6)
	if len(got) != 3 {
		t.Fatalf("got %d hits", len(got))
	}
	for _, h := range got {
		if h.Provenance != ProvenanceStrict {
			t.Errorf("%s tagged %q, want strict", h.Name, h.Provenance)
		}
	}
	if len(stub.calls) != 1 {
		t.Errorf("fuzzy phase ran despite sufficient strict hits: %d calls", len(stub.calls))
	}
}

func TestRetrieveFuzzyEscalation(t *testing.T) {
	// Strict returns 2 hits for limit=8: 2 < max(3, 8/2) so fuzzy must run.
	stub := &stubSearcher{
		byQuery: map[string][]CodeHit{
			"kis enable": {hit("kis_enable", "kis.c", 1), hit("kis_check", "kis.c", 40)},
			"kernel integrity enable": {hit("ki_verify", "integ.c", 5)},
		},
	}
	r := &Retriever{Searcher: stub}

	got := r.Retrieve(context.Background(), "kis enable", 8)
	if len(stub.calls) < 2 {
		t.Fatalf("fuzzy phase did not run: calls=%v", stub.calls)
	}

	var strictN, fuzzyN int
	for _, h := range got {
		switch h.Provenance {
		case ProvenanceStrict:
			strictN++
		case ProvenanceFuzzy:
			fuzzyN++
			if !strings.Contains(h.Role, FuzzyReviewNote) {
				t.Errorf("fuzzy hit %s missing review note in role %q", h.Name, h.Role)
			}
		default:
			t.Errorf("hit %s has no provenance", h.Name)
		}
	}
	if strictN != 2 {
		t.Errorf("strict hits = %d, want 2", strictN)
	}
	if fuzzyN == 0 {
		t.Error("no fuzzy-tagged hits in merged output")
	}
}

func TestRetrieveStrictWinsDedup(t *testing.T) {
	// The same entity found by both phases keeps its strict tag.
	shared := hit("pmu_reset", "pmu.c", 10)
	stub := &stubSearcher{
		byQuery: map[string][]CodeHit{"pmu reset": {shared}},
		deflt:   []CodeHit{shared},
	}
	r := &Retriever{Searcher: stub}

	got := r.Retrieve(context.Background(), "pmu reset", 8)
	count := 0
	for _, h := range got {
		if h.Name == "pmu_reset" {
			count++
			if h.Provenance != ProvenanceStrict {
				t.Errorf("shared hit tagged %q, want strict", h.Provenance)
			}
		}
	}
	if count != 1 {
		t.Errorf("shared hit appears %d times", count)
	}
}

func TestRetrieveSwallowsVariantErrors(t *testing.T) {
	stub := &stubSearcher{err: errors.New("backend down")}
	r := &Retriever{Searcher: stub}

	got := r.Retrieve(context.Background(), "kis enable", 8)
	if got != nil && len(got) != 0 {
		t.Errorf("expected no hits, got %d", len(got))
	}
	// Every variant was still attempted, nothing aborted early.
	if len(stub.calls) < 2 {
		t.Errorf("escalation aborted after error: calls=%v", stub.calls)
	}
}

func TestRetrieveOutputCap(t *testing.T) {
	var many []CodeHit
	for i := 0; i < 40; i++ {
		many = append(many, hit("fn", "f.c", i*10))
	}
	stub := &stubSearcher{deflt: many[:2], byQuery: map[string][]CodeHit{
		"kis": many,
	}}
	r := &Retriever{Searcher: stub}

	got := r.Retrieve(context.Background(), "kis enable fails", 4)
	if len(got) > 8 {
		t.Errorf("output %d exceeds max(limit, 8) = 8", len(got))
	}
}

func TestFuzzyTrigger(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 8, want: 4},
		{limit: 4, want: 3},
		{limit: 1, want: 3},
		{limit: 20, want: 10},
	}
	for _, tt := range tests {
		if got := fuzzyTrigger(tt.limit); got != tt.want {
			t.Errorf("fuzzyTrigger(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}
