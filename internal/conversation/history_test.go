package conversation

import (
	"errors"
	"testing"

	"github.com/spigell/linkedai/internal/jobs"
)

func TestHistoryClosure(t *testing.T) {
	h := NewHistory("be helpful")

	if err := h.Append(UserMessage("find jobs")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := []ToolCall{
		{ID: "1", Name: "search_jobs", Arguments: `{"query":"go","n_results":3}`},
		{ID: "2", Name: "suggest_resume_tweaks", Arguments: `{"job_description":"go"}`},
	}
	if err := h.Append(AssistantMessage("", calls...)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := h.Append(AssistantMessage("early")); !errors.Is(err, ErrDanglingToolCalls) {
		t.Fatalf("expected dangling calls error, got %v", err)
	}

	if err := h.Append(ToolResultMessage(ToolCall{ID: "3"}, "{}")); !errors.Is(err, ErrUnexpectedToolMessage) {
		t.Fatalf("expected unexpected tool message error, got %v", err)
	}

	if err := h.Append(ToolResultMessage(calls[1], "{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Append(ToolErrorMessage(calls[0], errors.New("boom"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := h.Append(ToolResultMessage(calls[0], "{}")); !errors.Is(err, ErrUnexpectedToolMessage) {
		t.Fatalf("expected closed call to be rejected, got %v", err)
	}

	if len(h.PendingCalls()) != 0 {
		t.Fatalf("expected no pending calls, got %v", h.PendingCalls())
	}

	last := h.Last()
	if !last.IsError || last.Content != "Error: boom" || last.Name != "search_jobs" {
		t.Fatalf("unexpected error message: %+v", last)
	}

	if err := h.Append(AssistantMessage("done")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 6 {
		t.Fatalf("expected 6 messages, got %d", h.Len())
	}
}

func TestHistoryRejectsSystemMessage(t *testing.T) {
	h := NewHistory("prompt")
	if err := h.Append(SystemMessage("other")); !errors.Is(err, ErrSystemMessage) {
		t.Fatalf("expected system message error, got %v", err)
	}
}

func TestHistoryResetIsIdempotent(t *testing.T) {
	h := NewHistory("prompt")
	_ = h.Append(UserMessage("hi"))
	_ = h.Append(AssistantMessage("", ToolCall{ID: "1", Name: "search_jobs"}))

	h.Reset()
	first := h.Messages()
	h.Reset()
	second := h.Messages()

	for _, msgs := range [][]Message{first, second} {
		if len(msgs) != 1 {
			t.Fatalf("expected single message, got %d", len(msgs))
		}
		if msgs[0].Role != RoleSystem || msgs[0].Content != "prompt" {
			t.Fatalf("unexpected system message: %+v", msgs[0])
		}
	}

	if len(h.PendingCalls()) != 0 {
		t.Fatalf("expected reset to drop pending calls")
	}

	if err := h.Append(UserMessage("again")); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestHistoryMessagesIsCopy(t *testing.T) {
	h := NewHistory("prompt")
	msgs := h.Messages()
	msgs[0].Content = "changed"

	if h.Messages()[0].Content != "prompt" {
		t.Fatalf("expected history to be unaffected by caller mutation")
	}
}

func TestSessionRecord(t *testing.T) {
	s := NewSession(0)
	if s.MaxIterations != 1 {
		t.Fatalf("expected max iterations to be clamped to 1, got %d", s.MaxIterations)
	}

	results := jobs.NewSearchResults(&jobs.Posting{Title: "Test Job"})
	s.Record(LastSearch, results)
	s.Record(LastTweaks, "tweaks")

	if s.LastSearch != results {
		t.Fatalf("expected last search to keep identity")
	}
	if s.Results[LastTweaks] != "tweaks" {
		t.Fatalf("unexpected tweaks result: %v", s.Results[LastTweaks])
	}

	s.Iterations = 1
	if !s.Exhausted() {
		t.Fatalf("expected session to be exhausted")
	}
}
