package router

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// go.opencensus.io starts a worker goroutine in package init that can
	// never be stopped; ignore it per goleak's documented guidance.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// stubResolver records which path ran and echoes a canned answer.
type stubResolver struct {
	natural []string
	scenes  []string
	panicOn string
}

func (s *stubResolver) HandleNaturalQuery(ctx context.Context, query string) string {
	if s.panicOn != "" && strings.Contains(query, s.panicOn) {
		panic("store unavailable")
	}
	s.natural = append(s.natural, query)
	return "answer for: " + query
}

func (s *stubResolver) HandleLogOrScene(ctx context.Context, text string) string {
	s.scenes = append(s.scenes, text)
	return "scene report"
}

// stubLLM answers every generative call with a fixed string.
type stubLLM struct {
	response string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}

func (s *stubLLM) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return s.response, nil
}

func TestRouteDirectQuery(t *testing.T) {
	res := &stubResolver{}
	r := New(res, nil)

	got := r.RouteUserInput(context.Background(), "", "how does the battery gauge compute capacity", false)
	if got != "answer for: how does the battery gauge compute capacity" {
		t.Fatalf("got %q", got)
	}
	if !r.Store.Get("").Empty() {
		t.Error("session not clean after resolution")
	}
}

func TestRouteEmptyInput(t *testing.T) {
	r := New(&stubResolver{}, nil)
	got := r.RouteUserInput(context.Background(), "s1", "   ", false)
	if got != emptyInputReply {
		t.Errorf("got %q", got)
	}
}

func TestRouteClarificationRound(t *testing.T) {
	res := &stubResolver{}
	llm := &stubLLM{response: `["Which device?","Which build?"]`}
	r := New(res, llm)

	q1 := r.RouteUserInput(context.Background(), "s1", "it's broken", false)
	if q1 != "Which device?" {
		t.Fatalf("first follow-up = %q", q1)
	}

	q2 := r.RouteUserInput(context.Background(), "s1", "B788", false)
	if q2 != "Which build?" {
		t.Fatalf("second follow-up = %q", q2)
	}

	got := r.RouteUserInput(context.Background(), "s1", "build 21E5", false)
	if !strings.HasPrefix(got, "answer for: ") {
		t.Fatalf("got %q", got)
	}

	// The resolved query folds anchor and all answers together, in order.
	resolved := res.natural[len(res.natural)-1]
	for _, want := range []string{"it's broken", "Which device?: B788", "Which build?: build 21E5"} {
		if !strings.Contains(resolved, want) {
			t.Errorf("resolved query missing %q:\n%s", want, resolved)
		}
	}
	if strings.Index(resolved, "B788") > strings.Index(resolved, "21E5") {
		t.Error("answers out of insertion order")
	}

	if !r.Store.Get("s1").Empty() {
		t.Error("session not clean after resolution")
	}
}

func TestRouteVagueWithoutBackend(t *testing.T) {
	// Generation of follow-ups fails (no backend): the vague input falls
	// through directly to resolution with the raw text.
	res := &stubResolver{}
	r := New(res, nil)

	got := r.RouteUserInput(context.Background(), "s1", "it's broken", false)
	if got != "answer for: it's broken" {
		t.Fatalf("got %q", got)
	}
	if !r.Store.Get("s1").Empty() {
		t.Error("session not clean")
	}
}

func TestRouteForceFollowups(t *testing.T) {
	res := &stubResolver{}
	llm := &stubLLM{response: `["One question?"]`}
	r := New(res, llm)

	got := r.RouteUserInput(context.Background(), "s1", "a perfectly detailed question about pmu registers", true)
	if got != "One question?" {
		t.Fatalf("got %q", got)
	}
}

func TestRouteLogBypassesClarification(t *testing.T) {
	res := &stubResolver{}
	llm := &stubLLM{response: `["should not be asked"]`}
	r := New(res, llm)

	log := "2024-03-01 12:00 boot\n2024-03-01 12:01 kis FAILED\n2024-03-01 12:02 halt"
	got := r.RouteUserInput(context.Background(), "s1", log, false)
	if got != "scene report" {
		t.Fatalf("got %q", got)
	}
	if len(res.scenes) != 1 {
		t.Error("scene path not taken")
	}
}

func TestRouteMenuTokenNotConsumedAsAnswer(t *testing.T) {
	res := &stubResolver{}
	llm := &stubLLM{response: `["Which device?"]`}
	r := New(res, llm)

	r.RouteUserInput(context.Background(), "s1", "it's broken", false)
	got := r.RouteUserInput(context.Background(), "s1", "1", false)
	// "1" resolves as its own query instead of answering the question.
	if strings.Contains(got, "Which device?: 1") {
		t.Errorf("menu token consumed as clarification answer: %q", got)
	}
	s := r.Store.Get("s1")
	if len(s.answered) != 0 {
		t.Errorf("answered = %v", s.answered)
	}
}

func TestRouteErrorResetsSession(t *testing.T) {
	res := &stubResolver{panicOn: "pmu"}
	r := New(res, nil)

	got := r.RouteUserInput(context.Background(), "s1", "pmu register dump question", false)
	if !strings.HasPrefix(got, FailureMarker) {
		t.Fatalf("got %q, want failure marker prefix", got)
	}
	if !r.Store.Get("s1").Empty() {
		t.Error("session left dangling after error")
	}
}

func TestRouteNoResolver(t *testing.T) {
	r := New(nil, nil)
	got := r.RouteUserInput(context.Background(), "s1", "anything detailed enough here", false)
	if !strings.HasPrefix(got, FailureMarker) {
		t.Errorf("got %q", got)
	}
	if !r.Store.Get("s1").Empty() {
		t.Error("session not reset")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	res := &stubResolver{}
	llm := &stubLLM{response: `["Which device?"]`}
	r := New(res, llm)

	r.RouteUserInput(context.Background(), "a", "it's broken", false)
	got := r.RouteUserInput(context.Background(), "b", "how does kis_enable verify signatures", false)
	if !strings.HasPrefix(got, "answer for: ") {
		t.Fatalf("session b affected by session a: %q", got)
	}
	if r.Store.Get("a").Empty() {
		t.Error("session a should still be awaiting an answer")
	}
}

func TestTooVague(t *testing.T) {
	r := New(nil, nil)
	tests := []struct {
		input string
		want  bool
	}{
		{input: "short", want: true},
		{input: "it's broken", want: true},
		{input: "the gauge readings are not working on B788", want: true},
		{input: "how does kis_enable verify signatures", want: false},
	}
	for _, tt := range tests {
		if got := r.tooVague(tt.input); got != tt.want {
			t.Errorf("tooVague(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
