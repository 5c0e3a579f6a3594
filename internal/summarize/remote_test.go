package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/room"
)

func TestRemoteAnalyzeParsesChatCompletion(t *testing.T) {
	var capturedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		capturedAuth = r.Header.Get("Authorization")

		var request chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if request.Model != "test-model" {
			t.Errorf("unexpected model %q", request.Model)
		}
		if len(request.Messages) != 2 || request.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", request.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"action_items\":[\"Follow up\"],\"summary\":\"Short recap\"}"}}]}`))
	}))
	defer server.Close()

	remote := &Remote{BaseURL: server.URL, APIKey: "secret", Model: "test-model"}
	analysis, err := remote.Analyze(context.Background(), []room.TranscriptEntry{{Sender: "Ada", Text: "hello"}})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Summary != "Short recap" {
		t.Fatalf("unexpected summary %q", analysis.Summary)
	}
	if len(analysis.ActionItems) != 1 || analysis.ActionItems[0] != "Follow up" {
		t.Fatalf("unexpected action items %v", analysis.ActionItems)
	}
	if capturedAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", capturedAuth)
	}
}

func TestRemoteAnalyzeSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	remote := &Remote{BaseURL: server.URL, Model: "test-model"}
	if _, err := remote.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error from 503 response")
	}
}

func TestRemoteAnalyzeRejectsMissingConfiguration(t *testing.T) {
	remote := &Remote{}
	if _, err := remote.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error when base URL is empty")
	}
}
