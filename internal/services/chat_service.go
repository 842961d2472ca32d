package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"ledgerline/internal/logging"
	"ledgerline/internal/models"
	"ledgerline/internal/utils"
)

const (
	apologyContent = "I apologize, but I was unable to produce a response just now. Your conversation is intact, please try again."

	errorKindUpstreamTimeout = "upstream_timeout"
	errorKindEmptyResponse   = "empty_response"
	errorKindUpstreamError   = "upstream_error"

	// Upper bound on a single user message, matches the request body cap
	maxMessageLength = 32000

	// Per-document cap on uploaded text injected into the system prompt
	maxAttachedDocChars = 4000
)

// ErrMessageTooLong is returned for user messages past the length cap
var ErrMessageTooLong = errors.New("message exceeds maximum length")

// ChatService wires the session store, prompt builder, upload cache and
// provider client into the single conversational operation the API exposes.
type ChatService struct {
	store   *SessionStore
	prompts *PromptBuilder
	client  *CompletionClient
	files   *FileCache
}

// NewChatService creates the chat orchestrator
func NewChatService(store *SessionStore, prompts *PromptBuilder, client *CompletionClient, files *FileCache) *ChatService {
	return &ChatService{
		store:   store,
		prompts: prompts,
		client:  client,
		files:   files,
	}
}

// Chat handles one user turn. It appends the user message, asks the provider
// for a reply with the session's extracted context in the system prompt, and
// appends the assistant reply. On provider failure it returns a degraded
// response with Metadata.Error set; the apology is never written to history,
// so the user message survives for a retry.
func (s *ChatService) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	if len(req.Message) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	persona := req.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	s.store.SetPersona(sessionID, persona)
	if project := strings.TrimSpace(req.Context); project != "" {
		s.store.SetProject(sessionID, project)
	}

	logger := logging.WithSession(sessionID, persona)
	start := time.Now()
	GetMetrics().RecordChatRequest()

	// The user turn is recorded before the provider call so context
	// extraction sees it and a provider failure cannot lose it.
	s.store.AppendMessage(sessionID, models.RoleUser, req.Message)

	systemPrompt := s.prompts.BuildSystemPrompt(s.store.Snapshot(sessionID), s.attachedDocuments(sessionID))
	history := s.store.History(sessionID, 0)

	messages := make([]models.CompletionMessage, 0, len(history)+1)
	messages = append(messages, models.CompletionMessage{Role: models.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, models.CompletionMessage{Role: m.Role, Content: m.Content})
	}

	result, err := s.client.Complete(ctx, messages)
	if err != nil {
		kind := classifyProviderError(err)
		logger.Warn("provider call degraded", "error", err, "kind", kind)
		GetMetrics().RecordDegradedResponse(kind)
		return &models.ChatResponse{
			SessionID: sessionID,
			Content:   apologyContent,
			Metadata: models.ChatMetadata{
				Model:     s.client.Model(),
				LatencyMs: time.Since(start).Milliseconds(),
				Persona:   persona,
				Phase:     s.store.Phase(sessionID),
				Error:     true,
				ErrorKind: kind,
			},
			Suggestions: s.prompts.Suggestions(persona),
		}, nil
	}

	assistant := s.store.AppendMessage(sessionID, models.RoleAssistant, result.Content)

	latency := time.Since(start)
	GetMetrics().RecordChatLatency(latency.Seconds())
	log.Printf("✅ [CHAT] session=%s persona=%s tokens=%d latency=%v", sessionID, persona, result.TotalTokens, latency.Round(time.Millisecond))

	return &models.ChatResponse{
		SessionID: sessionID,
		Content:   result.Content,
		Metadata: models.ChatMetadata{
			Model:       result.Model,
			TotalTokens: result.TotalTokens,
			LatencyMs:   latency.Milliseconds(),
			Persona:     persona,
			Phase:       assistant.Metadata.Phase,
		},
		Suggestions: s.prompts.Suggestions(persona),
	}, nil
}

// attachedDocuments renders the session's live upload extractions as a
// context block for the system prompt, oldest upload first. Long documents
// are previewed rather than inlined whole.
func (s *ChatService) attachedDocuments(sessionID string) string {
	files := s.files.FilesForSession(sessionID)
	if len(files) == 0 {
		return ""
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.Before(files[j].UploadedAt)
	})

	var sb strings.Builder
	sb.WriteString("The user uploaded the following documents. Refer to them when relevant.\n")
	for _, f := range files {
		sb.WriteString(fmt.Sprintf("\n### %s\n", f.Filename))
		sb.WriteString(utils.Preview(f.Text, maxAttachedDocChars))
		sb.WriteString("\n")
		if f.Truncated || len(f.Text) > maxAttachedDocChars {
			sb.WriteString("[document truncated]\n")
		}
	}
	return sb.String()
}

// classifyProviderError maps a provider failure to its degraded-response
// kind. Every provider error degrades; the caller still gets a reply.
func classifyProviderError(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		return errorKindUpstreamTimeout
	case errors.Is(err, ErrEmptyResponse):
		return errorKindEmptyResponse
	default:
		return errorKindUpstreamError
	}
}
