package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerline/internal/models"
)

func testMessages() []models.CompletionMessage {
	return []models.CompletionMessage{
		{Role: models.RoleSystem, Content: "You are a consultant."},
		{Role: models.RoleUser, Content: "Hello"},
	}
}

func newTestClient(baseURL string, timeout time.Duration) *CompletionClient {
	return NewCompletionClient(CompletionClientConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "test-model",
		Timeout:     timeout,
		RequestRate: 1000,
	})
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Missing bearer auth, got %q", got)
		}

		var req models.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("Unexpected request: model=%q messages=%d", req.Model, len(req.Messages))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "test-model-0613",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Hi there"}},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, 5*time.Second).Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Content != "Hi there" {
		t.Errorf("Expected content %q, got %q", "Hi there", result.Content)
	}
	if result.Model != "test-model-0613" {
		t.Errorf("Expected provider-reported model, got %q", result.Model)
	}
	if result.TotalTokens != 42 {
		t.Errorf("Expected 42 tokens, got %d", result.TotalTokens)
	}
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 50*time.Millisecond).Complete(context.Background(), testMessages())
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("Expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	cases := []interface{}{
		map[string]interface{}{"choices": []interface{}{}},
		map[string]interface{}{"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": "   "}},
		}},
	}

	for i, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(body)
		}))

		_, err := newTestClient(srv.URL, 5*time.Second).Complete(context.Background(), testMessages())
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("Case %d: expected ErrEmptyResponse, got %v", i, err)
		}
		srv.Close()
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5*time.Second).Complete(context.Background(), testMessages())
	if err == nil {
		t.Fatal("Expected error on 500")
	}
	if errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrEmptyResponse) {
		t.Errorf("A 500 is neither a timeout nor an empty response, got %v", err)
	}
	if classifyProviderError(err) != errorKindUpstreamError {
		t.Errorf("Expected kind %q, got %q", errorKindUpstreamError, classifyProviderError(err))
	}
}

func TestCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"Hello"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{"content":" world"}}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	var chunks []string
	result, err := newTestClient(srv.URL, 5*time.Second).CompleteStream(context.Background(), testMessages(), func(delta string) {
		chunks = append(chunks, delta)
	})
	if err != nil {
		t.Fatalf("CompleteStream failed: %v", err)
	}
	if result.Content != "Hello world" {
		t.Errorf("Expected assembled content %q, got %q", "Hello world", result.Content)
	}
	if len(chunks) != 2 {
		t.Errorf("Expected 2 chunks, got %d", len(chunks))
	}
}
