// Package llm encapsulates outbound calls to the local text-generation
// service. The model is treated as an opaque text generator; prompt building
// and output parsing live with the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client generates a completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaClient talks to an Ollama server's /api/generate endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ Client = (*OllamaClient)(nil)

// NewOllamaClient constructs a client. A nil http.Client gets a 60s timeout;
// small local models can take a while on first load.
func NewOllamaClient(baseURL, model string, client *http.Client) *OllamaClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OllamaClient{baseURL: baseURL, model: model, httpClient: client}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate performs a single non-streaming completion request.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate failed: status=%d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return decoded.Response, nil
}
