package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ledgerline/internal/models"
)

var (
	// ErrUpstreamTimeout means the provider call exceeded the time budget
	ErrUpstreamTimeout = errors.New("completion provider timed out")

	// ErrEmptyResponse means the provider answered but with no usable content
	ErrEmptyResponse = errors.New("completion provider returned no usable content")
)

// CompletionClientConfig configures the provider adapter
type CompletionClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // 30s default; the call fails with ErrUpstreamTimeout past this
	RequestRate float64       // upstream requests per second
}

// CompletionClient is a thin adapter around an OpenAI-compatible
// /chat/completions endpoint. It owns the timeout race and response shape
// validation; conversation state is not its business.
type CompletionClient struct {
	cfg        CompletionClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCompletionClient creates a provider client
func NewCompletionClient(cfg CompletionClientConfig) *CompletionClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestRate <= 0 {
		cfg.RequestRate = 5
	}
	return &CompletionClient{
		cfg: cfg,
		// No client-level timeout: the per-call context deadline governs
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestRate), int(cfg.RequestRate*2)),
	}
}

// Model returns the configured model name
func (c *CompletionClient) Model() string {
	return c.cfg.Model
}

// Complete performs a non-streaming completion. The user message must already
// be part of messages; the client does not touch conversation state.
func (c *CompletionClient) Complete(ctx context.Context, messages []models.CompletionMessage) (*models.CompletionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqJSON, err := json.Marshal(models.CompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, reqJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
	}

	var result models.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	latency := time.Since(start)
	GetMetrics().RecordUpstreamLatency(latency.Seconds())

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	model := result.Model
	if model == "" {
		model = c.cfg.Model
	}

	log.Printf("📡 [COMPLETION] %s replied in %v (%d tokens)", model, latency.Round(time.Millisecond), result.Usage.TotalTokens)

	return &models.CompletionResult{
		Content:     result.Choices[0].Message.Content,
		Model:       model,
		TotalTokens: result.Usage.TotalTokens,
		Latency:     latency,
	}, nil
}

// CompleteStream performs a streaming completion, invoking onChunk for each
// incremental content delta, and returns the assembled result. onChunk may be
// nil when the caller only wants the final text.
func (c *CompletionClient) CompleteStream(ctx context.Context, messages []models.CompletionMessage, onChunk func(string)) (*models.CompletionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqJSON, err := json.Marshal(models.CompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, reqJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
	}

	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk models.CompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Malformed frames are skipped, not fatal
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			content.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrUpstreamTimeout, c.cfg.Timeout)
		}
		return nil, fmt.Errorf("stream read failed: %w", err)
	}

	latency := time.Since(start)
	GetMetrics().RecordUpstreamLatency(latency.Seconds())

	if strings.TrimSpace(content.String()) == "" {
		return nil, ErrEmptyResponse
	}

	return &models.CompletionResult{
		Content: content.String(),
		Model:   c.cfg.Model,
		Latency: latency,
	}, nil
}

func (c *CompletionClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrUpstreamTimeout, c.cfg.Timeout)
		}
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	return resp, nil
}
