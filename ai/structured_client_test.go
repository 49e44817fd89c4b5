package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanJSONContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading chatter", "Here is the result:\n{\"a\": 1}", `{"a": 1}`},
		{"array with chatter", "The output follows.\n[1, 2]", `[1, 2]`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := cleanJSONContent(test.input); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestGetJSONResponseParsesTypedResult(t *testing.T) {
	type verdict struct {
		Category string `json:"category"`
		Skip     bool   `json:"skip"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		content := `{\"category\": \"pass\", \"skip\": false}`
		fmt.Fprintf(w, `{"choices": [{"message": {"content": "%s"}}]}`, content)
	}))
	defer server.Close()

	client := NewStructuredClient[verdict](Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4.1",
	})

	result, err := client.GetJSONResponse(context.Background(), "Respond in JSON.", "evaluate")
	if err != nil {
		t.Fatalf("GetJSONResponse failed: %v", err)
	}
	if result.Category != "pass" || result.Skip {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestGetJSONResponseAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewStructuredClient[map[string]any](Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4.1"})
	if _, err := client.GetJSONResponse(context.Background(), "JSON", "prompt"); err == nil {
		t.Error("Expected error on non-200 response")
	}
}
