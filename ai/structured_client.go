package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Config holds the LLM connection settings shared by the extractor and judge.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// StructuredClient provides typed JSON responses from LLM calls
type StructuredClient[T any] struct {
	config Config
	http   *http.Client
}

// NewStructuredClient creates a new structured client
func NewStructuredClient[T any](config Config) *StructuredClient[T] {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 180 * time.Second
	}
	return &StructuredClient[T]{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	Temperature         float64         `json:"temperature,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GetJSONResponse makes a typed LLM call and parses the JSON response.
// The system message must mention JSON for OpenAI's json_object mode.
func (client *StructuredClient[T]) GetJSONResponse(ctx context.Context, systemMessage, prompt string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, client.config.Timeout)
	defer cancel()

	if !strings.Contains(strings.ToLower(systemMessage), "json") {
		systemMessage += "\n\nIMPORTANT: Respond with valid JSON output."
	}

	reqBody := chatRequest{
		Model: client.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		Temperature:         client.config.Temperature,
		MaxCompletionTokens: client.config.MaxTokens,
		ResponseFormat:      &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Printf("[StructuredClient] Sending request - model=%s, promptLength=%d", client.config.Model, len(prompt))

	req, err := http.NewRequestWithContext(ctx, "POST", client.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+client.config.APIKey)

	resp, err := client.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request timeout after %v: %w", client.config.Timeout, err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM API error (status %d): %s", resp.StatusCode, string(body))
	}

	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("no choices in LLM response")
	}

	content := cleanJSONContent(envelope.Choices[0].Message.Content)

	var result T
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[StructuredClient] ERROR: unparsable JSON content: %s", content)
		return nil, fmt.Errorf("failed to parse JSON content into result type: %w", err)
	}
	return &result, nil
}

// cleanJSONContent strips markdown fences and leading chatter before the
// JSON payload. Models occasionally wrap or preface structured output even
// when json_object mode is requested.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(strings.TrimPrefix(content, "```json"), "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
		content = strings.TrimSpace(content)
	}

	for _, opener := range []string{"{", "["} {
		if strings.HasPrefix(content, opener) {
			return content
		}
		if idx := strings.Index(content, "\n"+opener); idx >= 0 {
			prefix := content[:idx]
			if !strings.ContainsAny(prefix, "{[") {
				return strings.TrimSpace(content[idx+1:])
			}
		}
	}
	return content
}
