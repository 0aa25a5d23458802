package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lexiqai/alfred/internal/artifact"
	"github.com/lexiqai/alfred/internal/observability"
	"github.com/lexiqai/alfred/internal/pipeline"
)

type fakeGestures struct {
	pressErr  error
	result    pipeline.Result
	replayErr error
	typed     string
}

func (f *fakeGestures) Press(ctx context.Context) error { return f.pressErr }
func (f *fakeGestures) Release(ctx context.Context) pipeline.Result { return f.result }
func (f *fakeGestures) Listen(ctx context.Context) pipeline.Result { return f.result }
func (f *fakeGestures) Replay(ctx context.Context) error { return f.replayErr }
func (f *fakeGestures) Type(ctx context.Context, text string) pipeline.Result {
	f.typed = text
	return f.result
}

func newTestServer(g *fakeGestures, checks ...observability.Check) http.Handler {
	return NewServer(context.Background(), g, NewHub(), true, checks...).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, TurnResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp TurnResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRelease_ReturnsTurn(t *testing.T) {
	g := &fakeGestures{result: pipeline.Result{
		ID:        "turn-1",
		Outcome:   pipeline.OutcomeCompleted,
		InputText: "What is the weather",
		ReplyText: "It is currently cloudy.",
		Artifact:  &artifact.Artifact{ID: "art-1"},
	}}

	w, resp := do(t, newTestServer(g), http.MethodPost, "/release", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if resp.Outcome != "completed" || resp.Reply != "It is currently cloudy." || resp.Artifact != "art-1" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestOutcomeStatusCodes(t *testing.T) {
	tests := []struct {
		outcome pipeline.Outcome
		err     error
		code    int
	}{
		{pipeline.OutcomeCompleted, nil, http.StatusOK},
		{pipeline.OutcomeNoInput, pipeline.ErrNoSpeechDetected, http.StatusOK},
		{pipeline.OutcomeRejected, pipeline.ErrTurnInFlight, http.StatusConflict},
		{pipeline.OutcomeEngineFailure, pipeline.ErrEngineFailure, http.StatusBadGateway},
		{pipeline.OutcomeDeviceUnavailable, pipeline.ErrDeviceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			g := &fakeGestures{result: pipeline.Result{Outcome: tt.outcome, Err: tt.err}}
			w, resp := do(t, newTestServer(g), http.MethodPost, "/listen", "")
			if w.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, w.Code)
			}
			if tt.err != nil && resp.Kind != pipeline.Classify(tt.err).String() {
				t.Errorf("Expected kind %s, got %s", pipeline.Classify(tt.err), resp.Kind)
			}
		})
	}
}

func TestPress(t *testing.T) {
	w, _ := do(t, newTestServer(&fakeGestures{}), http.MethodPost, "/press", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}

	w, resp := do(t, newTestServer(&fakeGestures{pressErr: pipeline.ErrTurnInFlight}), http.MethodPost, "/press", "")
	if w.Code != http.StatusConflict || resp.Kind != "turn_in_flight" {
		t.Errorf("Expected 409 turn_in_flight, got %d %+v", w.Code, resp)
	}
}

func TestSay(t *testing.T) {
	g := &fakeGestures{result: pipeline.Result{Outcome: pipeline.OutcomeCompleted}}
	h := newTestServer(g)

	w, _ := do(t, h, http.MethodPost, "/say", `{"text":"good evening"}`)
	if w.Code != http.StatusOK || g.typed != "good evening" {
		t.Errorf("Expected typed turn, got %d %q", w.Code, g.typed)
	}

	for _, body := range []string{`{"text":"  "}`, `not json`} {
		if w, _ := do(t, h, http.MethodPost, "/say", body); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", body, w.Code)
		}
	}
}

func TestReplay(t *testing.T) {
	w, _ := do(t, newTestServer(&fakeGestures{}), http.MethodPost, "/replay", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w, resp := do(t, newTestServer(&fakeGestures{replayErr: pipeline.ErrNoAudioAvailable}), http.MethodPost, "/replay", "")
	if w.Code != http.StatusNotFound || resp.Kind != "no_audio_available" {
		t.Errorf("Expected 404 no_audio_available, got %d %+v", w.Code, resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w, _ := do(t, newTestServer(&fakeGestures{}), http.MethodGet, "/press", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	failing := observability.Check{Name: "gemini", Fn: func(ctx context.Context) error { return context.DeadlineExceeded }}
	h := newTestServer(&fakeGestures{}, failing)

	if w, _ := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("Expected healthy, got %d", w.Code)
	}
	if w, _ := do(t, h, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected not ready, got %d", w.Code)
	}
	if w, _ := do(t, h, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("Expected metrics, got %d", w.Code)
	}
}
