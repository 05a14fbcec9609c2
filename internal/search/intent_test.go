package search

import (
	"context"
	"testing"
)

func TestClassifyIntentScenarioShortCircuit(t *testing.T) {
	llm := &stubLLM{response: "code"}

	got := ClassifyIntent(context.Background(), llm, "kis enable fails with PMU reset timeout")
	if got != IntentScenario {
		t.Fatalf("intent = %s, want scenario", got)
	}
	if llm.calls != 0 {
		t.Errorf("generative backend called %d times for heuristic match", llm.calls)
	}
}

func TestClassifyIntentKeywordShortCircuit(t *testing.T) {
	llm := &stubLLM{response: "code"}
	got := ClassifyIntent(context.Background(), llm, "here are the repro steps")
	if got != IntentScenario {
		t.Errorf("intent = %s, want scenario", got)
	}
	if llm.calls != 0 {
		t.Errorf("generative backend called for keyword match")
	}
}

func TestClassifyIntentDelegates(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Intent
	}{
		{name: "Issue", response: "issue", want: IntentIssue},
		{name: "Code", response: "code", want: IntentCode},
		{name: "Mixed", response: " Mixed \n", want: IntentMixed},
		{name: "Unrecognized", response: "banana", want: IntentOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{response: tt.response}
			got := ClassifyIntent(context.Background(), llm, "how is the battery gauge implemented")
			if got != tt.want {
				t.Errorf("intent = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyIntentNoBackend(t *testing.T) {
	got := ClassifyIntent(context.Background(), nil, "how is the battery gauge implemented")
	if got != IntentOther {
		t.Errorf("intent = %s, want other", got)
	}
}
