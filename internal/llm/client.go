package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// #region inferencer-interface

// Inferencer abstracts the LLM backend so gates and the reporter can be
// tested without a live model.
type Inferencer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// #endregion inferencer-interface

// #region ollama-client

// OllamaClient talks to an Ollama-compatible /api/generate endpoint.
type OllamaClient struct {
	url   string
	model string
	http  *http.Client
}

// NewOllamaClient creates a client for the given inference URL and model.
func NewOllamaClient(url, model string) *OllamaClient {
	if model == "" {
		model = "llama3.1:8b"
	}
	return &OllamaClient{
		url:   url,
		model: model,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
}

// NewOllamaClientWithHTTP creates an OllamaClient with an injected
// *http.Client, for testing against httptest servers.
func NewOllamaClientWithHTTP(url, model string, hc *http.Client) *OllamaClient {
	c := NewOllamaClient(url, model)
	c.http = hc
	return c
}

// #endregion ollama-client

// #region wire-types
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}
// #endregion wire-types

// #region infer
// Infer sends the prompt and returns the raw response text.
func (c *OllamaClient) Infer(ctx context.Context, prompt string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("llm: no inference URL configured")
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference: status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return decoded.Response, nil
}
// #endregion infer
