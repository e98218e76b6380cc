package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultLLMAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	DefaultLLMModel  = "llama-3.1-70b-versatile"
)

// LLMConfig configures the chat-completions backend
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// LLMService talks to an OpenAI-compatible chat-completions endpoint
type LLMService struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
	logger *zap.Logger
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg LLMConfig, logger *zap.Logger) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY or GROQ_API_KEY must be set")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultLLMAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LLMService{
		apiKey: cfg.APIKey,
		apiURL: cfg.APIURL,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// Request represents a request to the chat-completions API
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat forwards messages to the backend and returns the raw response body
func (s *LLMService) Chat(ctx context.Context, messages []Message) ([]byte, error) {
	jsonData, err := json.Marshal(Request{Model: s.model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("generation backend request failed", zap.Error(err))
		return nil, &BackendError{Status: http.StatusInternalServerError, Detail: GenericBackendDetail}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error("failed to read generation backend response", zap.Error(err))
		return nil, &BackendError{Status: http.StatusInternalServerError, Detail: GenericBackendDetail}
	}

	s.logger.Debug("generation backend responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("generation backend returned an error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, &BackendError{Status: resp.StatusCode, Detail: backendDetail(body), Body: body}
	}

	return body, nil
}

// Synthesize sends one recipe request and parses the reply into a draft.
// There is no retry.
func (s *LLMService) Synthesize(ctx context.Context, system, user string) (*model.RecipeDraft, error) {
	body, err := s.Chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return nil, err
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		s.logger.Warn("undecodable generation backend response", zap.ByteString("payload", body), zap.Error(err))
		return nil, ErrEmptyResponse
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		s.logger.Warn("empty generation backend response", zap.ByteString("payload", body))
		return nil, ErrEmptyResponse
	}

	content := result.Choices[0].Message.Content
	draft, err := ParseRecipe(content)
	if err != nil {
		s.logger.Warn("malformed recipe payload", zap.String("payload", content), zap.Error(err))
		return nil, err
	}
	return draft, nil
}

// backendDetail extracts the upstream "error" object verbatim, falling back to
// the raw body and then to a generic message.
func backendDetail(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		var msg string
		if err := json.Unmarshal(envelope.Error, &msg); err == nil {
			return msg
		}
		return string(envelope.Error)
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return GenericBackendDetail
}

// ParseRecipe strictly decodes a recipe payload. Shape violations are rejected,
// never coerced.
func ParseRecipe(payload string) (*model.RecipeDraft, error) {
	malformed := func(reason string) error {
		return &MalformedRecipeError{Reason: reason, Payload: payload}
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, malformed("payload is not a JSON object")
	}
	if fields == nil {
		return nil, malformed("payload is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("unexpected data after recipe object")
	}

	draft := &model.RecipeDraft{}

	rawTitle, ok := fields["title"]
	if !ok {
		return nil, malformed("missing title")
	}
	if !isJSONString(rawTitle) || json.Unmarshal(rawTitle, &draft.Title) != nil {
		return nil, malformed("title must be a string")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, malformed("title must not be empty")
	}

	var err error
	if draft.Ingredients, err = stringList(fields, "ingredients"); err != nil {
		return nil, malformed(err.Error())
	}
	if draft.Instructions, err = stringList(fields, "instructions"); err != nil {
		return nil, malformed(err.Error())
	}

	if rawNotes, ok := fields["notes"]; ok && string(rawNotes) != "null" {
		if !isJSONString(rawNotes) || json.Unmarshal(rawNotes, &draft.Notes) != nil {
			return nil, malformed("notes must be a string")
		}
	}

	return draft, nil
}

func stringList(fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		var s string
		if !isJSONString(elem) || json.Unmarshal(elem, &s) != nil {
			return nil, fmt.Errorf("%s must be an array of strings", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
