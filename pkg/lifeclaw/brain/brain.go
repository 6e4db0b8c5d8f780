// Package brain implements the LLM client used for reasoning, intent
// classification, structured extraction, and summarization.
// Uses the OpenAI-compatible chat completions format, which works with
// OpenAI, Anthropic proxies, and any compatible endpoint.
package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Turn is one role/content entry in a conversation sent to the model.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Intent is the result of classifying a user message.
type Intent struct {
	Primary         string   `json:"primary_intent"`
	ActionType      string   `json:"action_type"` // query, create, update, delete, general
	Entities        []string `json:"entities"`
	Urgency         string   `json:"urgency"` // low, medium, high
	RequiresContext bool     `json:"requires_context"`
}

// DefaultIntent is the neutral classification used when extraction fails.
func DefaultIntent() Intent {
	return Intent{
		Primary:    "general",
		ActionType: "query",
		Entities:   []string{},
		Urgency:    "medium",
	}
}

// Config holds LLM client configuration.
type Config struct {
	// BaseURL is the OpenAI-compatible API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Usually resolved from keyring/env.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `yaml:"model"`

	// MaxTokens caps the response length for free-form chat.
	MaxTokens int `yaml:"max_tokens"`

	// TimeoutSeconds bounds each API call (default: 60).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// systemPrompt defines the assistant persona for free-form conversation.
const systemPrompt = `You are a personal life assistant. Your role is to:

1. Help the user manage their daily life through natural conversation
2. Remember important information about the user and their preferences
3. Be proactive in offering helpful suggestions and reminders
4. Maintain context across conversations
5. Be concise but friendly - avoid over-explaining

Always be helpful, proactive, and natural in your communication.`

// Client talks to the LLM provider API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an LLM client from config.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		httpClient: &http.Client{
			// No global timeout; each call uses context.WithTimeout.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     120 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With("component", "brain"),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Think generates a free-form response to the message given the recent
// conversation history. pluginNames are appended to the system prompt so
// the model knows which capabilities are loaded.
func (c *Client) Think(ctx context.Context, message string, history []Turn, pluginNames []string) (string, error) {
	system := systemPrompt
	if len(pluginNames) > 0 {
		names := append([]string(nil), pluginNames...)
		sort.Strings(names)
		system += "\n\nAvailable plugins: " + strings.Join(names, ", ")
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, t := range history {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	return c.complete(ctx, messages, c.maxTokens)
}

// AnalyzeIntent classifies the user message. Callers should substitute
// DefaultIntent on error rather than aborting.
func (c *Client) AnalyzeIntent(ctx context.Context, message string) (Intent, error) {
	prompt := fmt.Sprintf(`Analyze this message and determine the user's intent:

Message: %q

Respond with JSON only:
{
    "primary_intent": "category of intent (memory, reminder, calendar, financial, etc.)",
    "action_type": "query, create, update, delete, or general",
    "entities": ["list", "of", "key", "entities"],
    "urgency": "low, medium, or high",
    "requires_context": true/false
}`, message)

	raw, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}}, 500)
	if err != nil {
		return Intent{}, err
	}

	var intent Intent
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &intent); err != nil {
		return Intent{}, fmt.Errorf("parse intent response: %w", err)
	}
	if intent.Entities == nil {
		intent.Entities = []string{}
	}
	return intent, nil
}

// ExtractStructured extracts fields described by the schema
// (field name → description) from free text. Malformed model output is an
// error; callers degrade to an empty map.
func (c *Client) ExtractStructured(ctx context.Context, text string, schema map[string]string) (map[string]any, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	prompt := fmt.Sprintf(`Extract structured data from this text according to the schema:

Text: %q

Schema: %s

Respond with JSON only, matching the schema structure. Use null for fields
that cannot be determined.`, text, schemaJSON)

	raw, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}}, 1000)
	if err != nil {
		return nil, err
	}

	result := map[string]any{}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return result, nil
}

// Summarize condenses a short exchange into the key information worth
// remembering long-term.
func (c *Client) Summarize(ctx context.Context, turns []Turn) (string, error) {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Summarize this conversation, extracting key information that should be remembered:

%s
Focus on:
- Important facts about the user
- Decisions made
- Commitments or plans
- Preferences stated
- Any actionable items

Provide a concise summary (2-3 sentences).`, sb.String())

	return c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}}, 300)
}

// ---------- Wire types (OpenAI-compatible) ----------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete issues one chat completions call and returns the text of the
// first choice.
func (c *Client) complete(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode llm response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("llm API error (status %d): %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response has no choices")
	}

	c.logger.Debug("llm call complete",
		"model", c.model,
		"messages", len(messages),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// stripCodeFences removes markdown code fences that some models wrap
// around JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
