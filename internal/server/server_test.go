package server

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spigell/linkedai/internal/orchestrator"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeConversation struct {
	fragments []orchestrator.Fragment
	err       error
	inputs    []string
	resets    int
}

func (f *fakeConversation) Chat(_ context.Context, text string) iter.Seq2[orchestrator.Fragment, error] {
	f.inputs = append(f.inputs, text)
	return func(yield func(orchestrator.Fragment, error) bool) {
		for _, fragment := range f.fragments {
			if !yield(fragment, nil) {
				return
			}
		}
		if f.err != nil {
			yield(orchestrator.Fragment{}, f.err)
		}
	}
}

func (f *fakeConversation) Reset() { f.resets++ }

type fakeIndex struct {
	err error
}

func (f fakeIndex) VerifyCollection(context.Context) error { return f.err }

func newTestServer(conv *fakeConversation, opts Options) (*Server, http.Handler) {
	srv := New(func(string) Conversation { return conv }, opts, zap.NewNop())
	return srv, srv.Handler()
}

func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["session_id"] == "" {
		t.Fatalf("expected session id, got %s", rec.Body.String())
	}
	return body["session_id"]
}

func postChat(handler http.Handler, id, message string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(chatRequest{Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/chat", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatStreamsFragments(t *testing.T) {
	conv := &fakeConversation{fragments: []orchestrator.Fragment{
		{Kind: orchestrator.ProgressFragment, Text: "Searching for jobs..."},
		{Kind: orchestrator.ContentFragment, Text: "Found 1 job(s)"},
		{Kind: orchestrator.AnswerFragment, Text: "Here you go"},
	}}
	_, handler := newTestServer(conv, Options{})

	id := createSession(t, handler)
	rec := postChat(handler, id, "find go jobs")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	body := rec.Body.String()
	order := []string{"event:progress", "Searching for jobs...", "event:content", "event:answer", "Here you go", "event:done"}
	pos := 0
	for _, want := range order {
		idx := strings.Index(body[pos:], want)
		if idx < 0 {
			t.Fatalf("expected %q after position %d in %q", want, pos, body)
		}
		pos += idx + len(want)
	}

	if len(conv.inputs) != 1 || conv.inputs[0] != "find go jobs" {
		t.Fatalf("unexpected inputs: %v", conv.inputs)
	}
}

func TestChatReportsError(t *testing.T) {
	conv := &fakeConversation{err: errors.New("model unavailable")}
	_, handler := newTestServer(conv, Options{})

	id := createSession(t, handler)
	body := postChat(handler, id, "hello").Body.String()

	if !strings.Contains(body, "event:error") || !strings.Contains(body, "**Error**: model unavailable") {
		t.Fatalf("expected error event, got %q", body)
	}
	if !strings.Contains(body, "event:done") {
		t.Fatalf("expected done event, got %q", body)
	}
}

func TestChatIgnoresEmptyInput(t *testing.T) {
	conv := &fakeConversation{}
	_, handler := newTestServer(conv, Options{})

	id := createSession(t, handler)
	postChat(handler, id, "   ")

	if len(conv.inputs) != 0 {
		t.Fatalf("expected empty input to be ignored, got %v", conv.inputs)
	}
}

func TestUnknownSession(t *testing.T) {
	_, handler := newTestServer(&fakeConversation{}, Options{})

	if rec := postChat(handler, "missing", "hi"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResetAndDelete(t *testing.T) {
	conv := &fakeConversation{}
	srv, handler := newTestServer(conv, Options{})

	id := createSession(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/reset", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "CONVERSATION RESET") {
		t.Fatalf("unexpected reset response: %d %s", rec.Code, rec.Body.String())
	}
	if conv.resets != 1 {
		t.Fatalf("expected one reset, got %d", conv.resets)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected delete status: %d", rec.Code)
	}
	if srv.Sessions() != 0 {
		t.Fatalf("expected no sessions left, got %d", srv.Sessions())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		status int
	}{
		{name: "healthy", opts: Options{Index: fakeIndex{}, ResumeLoaded: true}, status: http.StatusOK},
		{name: "without resume", opts: Options{Index: fakeIndex{}}, status: http.StatusOK},
		{name: "index unreachable", opts: Options{Index: fakeIndex{err: errors.New("connection refused")}, ResumeLoaded: true}, status: http.StatusServiceUnavailable},
		{name: "no index", opts: Options{ResumeLoaded: true}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, handler := newTestServer(&fakeConversation{}, tt.opts)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["resume_loaded"] != tt.opts.ResumeLoaded {
				t.Fatalf("unexpected resume_loaded: %v", body["resume_loaded"])
			}
		})
	}
}
