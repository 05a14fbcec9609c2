package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndFilteredScanCode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs := []CodeRecord{
		{Name: "kis_enable", File: "drivers/kis/kis_main.c", StartLine: 10, EndLine: 30,
			Content: "int kis_enable(void) { return pmu_power_on(); }"},
		{Name: "kis_disable", File: "drivers/kis/kis_main.c", StartLine: 32, EndLine: 50,
			Content: "int kis_disable(void) { return pmu_power_off(); }"},
		{Name: "batt_health_read", File: "drivers/batt/health.c", StartLine: 5, EndLine: 40,
			Content: "static int batt_health_read(struct batt_dev *dev) { ... }"},
	}
	for _, r := range recs {
		if err := s.InsertCode(ctx, r); err != nil {
			t.Fatalf("InsertCode(%s): %v", r.Name, err)
		}
	}

	page, next, err := s.FilteredScanCode(ctx, "kis", 200, 0)
	if err != nil {
		t.Fatalf("FilteredScanCode: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d rows, want 2", len(page))
	}
	if next != 0 {
		t.Errorf("expected exhausted scan, next=%d", next)
	}
}

func TestInsertCodeReplacesDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := CodeRecord{Name: "pmu_reset", File: "pmu.c", StartLine: 1, EndLine: 5, Content: "v1"}
	if err := s.InsertCode(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Content = "v2"
	if err := s.InsertCode(ctx, rec); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["code_entities"] != 1 {
		t.Errorf("code_entities = %d, want 1", stats["code_entities"])
	}
}

func TestFilteredScanCodePagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		rec := CodeRecord{
			Name:      fmt.Sprintf("aop_handler_%d", i),
			File:      "aop/handlers.c",
			StartLine: i * 10,
			EndLine:   i*10 + 5,
			Content:   "void aop_handler(void) {}",
		}
		if err := s.InsertCode(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	var total int
	var afterID int64
	for {
		page, next, err := s.FilteredScanCode(ctx, "aop", 3, afterID)
		if err != nil {
			t.Fatal(err)
		}
		total += len(page)
		if next == 0 {
			break
		}
		afterID = next
	}
	if total != 7 {
		t.Errorf("paginated scan returned %d rows, want 7", total)
	}
}

func TestHybridSearchCodeWordBoundary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// "reset" as a whole word vs embedded in a longer identifier.
	if err := s.InsertCode(ctx, CodeRecord{
		Name: "do_reset", File: "reset.c", StartLine: 1, EndLine: 3,
		Content: "void do_reset(void) { hw reset now }",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCode(ctx, CodeRecord{
		Name: "presets_load", File: "ui.c", StartLine: 1, EndLine: 3,
		Content: "void presets_load(void) { load presets }",
	}); err != nil {
		t.Fatal(err)
	}

	hits, err := s.HybridSearchCode(ctx, "reset", 10)
	if err != nil {
		t.Fatalf("HybridSearchCode: %v", err)
	}
	for _, h := range hits {
		if h.Name == "presets_load" {
			t.Errorf("word-boundary recheck let through %q", h.Name)
		}
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit for whole-word match")
	}
}

func TestVectorSearchCodeKeywordFallback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertCode(ctx, CodeRecord{
		Name: "pmu_power_on", File: "pmu.c", StartLine: 1, EndLine: 9,
		Content: "int pmu_power_on(void) { enable the power rail }",
	}); err != nil {
		t.Fatal(err)
	}

	// No embedding engine set: keyword fallback.
	hits, err := s.VectorSearchCode(ctx, "power rail", 5)
	if err != nil {
		t.Fatalf("VectorSearchCode: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "pmu_power_on" {
		t.Fatalf("keyword fallback hits = %+v", hits)
	}
}

func TestSimilaritySearchIssuesFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issues := []IssueRecord{
		{IssueID: "FW-101", Component: "pmu", Title: "PMU reset timeout",
			Content: "Issue: PMU reset timeout\nDescription: reset times out after enable"},
		{IssueID: "FW-102", Component: "batt", Title: "Battery gauge stuck",
			Content: "Issue: Battery gauge stuck\nDescription: gauge never updates"},
	}
	for _, is := range issues {
		if err := s.InsertIssue(ctx, is); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := s.SimilaritySearchIssues(ctx, "reset timeout", 8, IssueFilter{Component: "pmu"})
	if err != nil {
		t.Fatalf("SimilaritySearchIssues: %v", err)
	}
	if len(hits) != 1 || hits[0].IssueID != "FW-101" {
		t.Fatalf("component filter hits = %+v", hits)
	}

	hits, err = s.SimilaritySearchIssues(ctx, "gauge", 8, IssueFilter{Phrase: "gauge"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].IssueID != "FW-102" {
		t.Fatalf("phrase filter hits = %+v", hits)
	}
}

func TestExtractFunctions(t *testing.T) {
	source := []byte(`#include <stdio.h>

/* prototype, not a definition */
int kis_enable(void);

static int kis_enable(void)
{
	if (pmu_ready()) {
		return do_enable();
	}
	return -1;
}

void batt_poll(struct batt_dev *dev) {
	dev->tick++;
}
`)
	fns := ExtractFunctions("kis_main.c", source)
	if len(fns) != 2 {
		t.Fatalf("got %d functions, want 2: %+v", len(fns), fns)
	}
	if fns[0].Name != "kis_enable" || fns[1].Name != "batt_poll" {
		t.Errorf("names = %q, %q", fns[0].Name, fns[1].Name)
	}
	if fns[0].StartLine != 6 || fns[0].EndLine != 12 {
		t.Errorf("kis_enable span = %d-%d", fns[0].StartLine, fns[0].EndLine)
	}
}

func TestIndexCodeTree(t *testing.T) {
	dir := t.TempDir()
	src := `int aop_wake(void) {
	return 0;
}
`
	if err := os.WriteFile(filepath.Join(dir, "aop.c"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	s := openTestStore(t)
	n, err := s.IndexCodeTree(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexCodeTree: %v", err)
	}
	if n != 1 {
		t.Errorf("indexed %d entities, want 1", n)
	}
}

func TestIndexIssuesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issues.jsonl")
	data := `{"issue_id":"FW-1","component":"pmu","title":"reset hang","description":"hangs on warm reset"}
not json
{"issue_id":"FW-2","component":"kis","title":"enable fails","description":"kis enable returns -EIO","content":"full report text"}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s := openTestStore(t)
	n, err := s.IndexIssuesJSONL(context.Background(), path)
	if err != nil {
		t.Fatalf("IndexIssuesJSONL: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d issues, want 2", n)
	}

	hits, err := s.SimilaritySearchIssues(context.Background(), "reset", 8, IssueFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].IssueID != "FW-1" {
		t.Fatalf("hits = %+v", hits)
	}
	// Missing content is reconstructed from title and description.
	if hits[0].Content == "" {
		t.Error("reconstructed content is empty")
	}
}
