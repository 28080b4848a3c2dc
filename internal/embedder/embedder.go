package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts chunk content to the embedding service, which computes
// and stores a vector keyed by chunk_id. The client never sees the
// vector itself; it only learns whether the hand-off succeeded.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	// Stats tracks recent call latencies for the stats endpoint.
	Stats *CallStats
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Stats: NewCallStats(time.Hour),
	}
}

// Model returns the configured embedding model identifier.
func (c *Client) Model() string { return c.model }

type embedRequest struct {
	ChunkID string `json:"chunk_id"`
	Model   string `json:"model,omitempty"`
	Input   string `json:"input"`
}

type embedResponse struct {
	ChunkID    string `json:"chunk_id"`
	Dimensions int    `json:"dimensions"`
	Error      string `json:"error,omitempty"`
}

// EmbedChunk submits one chunk for embedding. 429 and 5xx responses
// surface as RetryableError so the pipeline can back off and retry.
func (c *Client) EmbedChunk(ctx context.Context, chunkID, content string) error {
	body, err := json.Marshal(embedRequest{ChunkID: chunkID, Model: c.model, Input: content})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", chunkID, err)
	}
	defer resp.Body.Close()
	c.Stats.Record(time.Since(start).Milliseconds())

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("embed chunk %s: status %d: %s", chunkID, resp.StatusCode, truncate(string(respBody), 200))
	}

	var er embedResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if er.Error != "" {
		return fmt.Errorf("embedder error for chunk %s: %s", chunkID, er.Error)
	}
	return nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
