package search

import (
	"strings"
	"testing"
)

func TestParseAnnotationJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantN   int
		wantErr bool
	}{
		{
			name:  "PlainArray",
			input: `[{"function_name":"kis_enable","role":"enables KIS"}]`,
			wantN: 1,
		},
		{
			name:  "FencedArray",
			input: "```json\n[{\"function_name\":\"a\"},{\"function_name\":\"b\"}]\n```",
			wantN: 2,
		},
		{
			name:  "ProseBeforeArray",
			input: "Here is the analysis:\n[{\"function_name\":\"x\"}]",
			wantN: 1,
		},
		{
			name:  "BareObjectWrapped",
			input: `{"function_name":"solo","role":"only one"}`,
			wantN: 1,
		},
		{
			name:  "TrailingCommas",
			input: `[{"function_name":"a","called_functions":["b","c",],},]`,
			wantN: 1,
		},
		{name: "NoJSON", input: "sorry, I cannot help", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotationJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantN {
				t.Errorf("parsed %d annotations, want %d", len(got), tt.wantN)
			}
		})
	}
}

func TestExtractParams(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "TwoParams",
			content: "int kis_enable(struct kis_dev *dev, bool force) {",
			want:    []string{"dev", "force"},
		},
		{name: "Void", content: "int pmu_reset(void) {", want: nil},
		{name: "NoParens", content: "just a comment", want: nil},
		{
			name:    "ArrayParam",
			content: "void fill(uint8_t buf[32]) {",
			want:    []string{"buf"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractParams(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractCalledFunctions(t *testing.T) {
	content := `int kis_enable(void) {
	if (pmu_ready()) {
		return do_enable(dev);
	}
	kis_log("failed");
	return kis_enable_retry();
}`
	got := extractCalledFunctions(content, "kis_enable")
	joined := strings.Join(got, "|")
	for _, want := range []string{"pmu_ready", "do_enable", "kis_log"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing callee %s in %v", want, got)
		}
	}
	for _, bad := range []string{"if", "return", "kis_enable"} {
		if strings.Contains("|"+joined+"|", "|"+bad+"|") {
			t.Errorf("noise token %s reported as callee", bad)
		}
	}
}

func TestSnippetAround(t *testing.T) {
	long := strings.Repeat("x", 500) + " pmu_reset " + strings.Repeat("y", 500)

	got := SnippetAround(long, "pmu_reset", 200)
	if !strings.Contains(got, "pmu_reset") {
		t.Error("window does not contain the phrase")
	}
	if len(got) > 250 {
		t.Errorf("window length %d, want about 200", len(got))
	}

	head := SnippetAround(long, "absent_phrase", 100)
	if !strings.HasPrefix(head, "xxxx") {
		t.Error("missing phrase should fall back to the head")
	}
}

func TestApplyAnnotationsPreservesFuzzyNote(t *testing.T) {
	hits := []CodeHit{{Name: "kis_enable", Role: FuzzyReviewNote, Provenance: ProvenanceFuzzy}}
	anns := []annotation{{FunctionName: "kis_enable", Role: "enables kernel integrity"}}

	got := applyAnnotations(hits, anns)
	if !strings.Contains(got[0].Role, "enables kernel integrity") {
		t.Errorf("role not applied: %q", got[0].Role)
	}
	if !strings.Contains(got[0].Role, FuzzyReviewNote) {
		t.Errorf("fuzzy review note dropped: %q", got[0].Role)
	}
}

func TestBuildAnnotationPromptIncludesGuesses(t *testing.T) {
	hits := []CodeHit{{
		Name: "batt_read", File: "batt.c", StartLine: 1, EndLine: 9,
		Content: "int batt_read(struct batt_dev *dev) { return gpadc_sample(dev); }",
	}}
	prompt := buildAnnotationPrompt("batt", hits, "readbatt fails")
	for _, want := range []string{"### ITEM", "batt_read", "ParamsGuess", "gpadc_sample", "Scenario: readbatt fails"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
