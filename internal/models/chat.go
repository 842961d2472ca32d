package models

import "time"

// ChatRequest is the submit-message payload
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Persona   string `json:"persona,omitempty"`
	Context   string `json:"context,omitempty"`
}

// ChatMetadata describes how the assistant reply was produced
type ChatMetadata struct {
	Model       string `json:"model,omitempty"`
	TotalTokens int    `json:"totalTokens,omitempty"`
	LatencyMs   int64  `json:"latencyMs"`
	Persona     string `json:"persona"`
	Phase       string `json:"phase"`
	Error       bool   `json:"error,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
}

// ChatResponse is always 200-shaped; upstream failures surface as a degraded
// reply with Metadata.Error set rather than an HTTP error.
type ChatResponse struct {
	SessionID   string       `json:"sessionId"`
	Content     string       `json:"content"`
	Metadata    ChatMetadata `json:"metadata"`
	Suggestions []string     `json:"suggestions"`
}

// CompletionMessage is one provider-wire message
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the OpenAI-compatible request body
type CompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []CompletionMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// CompletionResponse is the non-streaming provider response shape
type CompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message CompletionMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// CompletionChunk is one streaming delta frame
type CompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// CompletionResult is what the client hands back to the orchestrator
type CompletionResult struct {
	Content     string
	Model       string
	TotalTokens int
	Latency     time.Duration
}
