package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"echolot/internal/config"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Client wraps the chat-completion API used for semantic splitting.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a client from the LLM configuration. The base URL may
// point at any OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(apiConfig),
		model: cfg.Model,
	}, nil
}

const splitSystemPrompt = "You are a helpful assistant that splits text into subtitles."

func splitPrompt(text string, maxLength int) string {
	return fmt.Sprintf(`Split the following German text into smaller, meaningful segments for subtitle generation.

Rules:
1. **Sentence Flow Completeness**: Ensure each segment is a complete thought or a fluent phrase. Do not break the flow abruptly.
2. **Maximum Chunk Size**: A single complete sentence is the MAXIMUM size for a chunk. Never combine multiple sentences into one chunk.
3. **Splitting Long Sentences**: If a sentence is too long (>%d chars), split it at natural pauses (commas, conjunctions) to maintain fluency.
4. **No Grammar Correction**: Do NOT correct grammar errors.
5. **Spelling Correction**: Correct obvious spelling mistakes from ASR.
6. **Output Format**: Return a JSON list of strings. When joined, they should match the original text content.

Text: %q`, maxLength, text)
}

// SplitByMeaning asks the model to split text into subtitle-sized segments.
// The model answers with a JSON array of strings, possibly inside a code
// fence.
func (c *Client) SplitByMeaning(ctx context.Context, text string, maxLength int) ([]string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: splitSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: splitPrompt(text, maxLength)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm: empty response")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var segments []string
	if err := json.Unmarshal([]byte(content), &segments); err != nil {
		return nil, fmt.Errorf("llm: parse response: %w", err)
	}
	if len(segments) == 0 {
		return nil, errors.New("llm: response contained no segments")
	}
	return segments, nil
}

// Probe issues a minimal completion to verify the configured endpoint and
// key work.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 8,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Reply with OK."},
		},
	})
	if err != nil {
		return fmt.Errorf("llm: probe: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("llm: probe returned no choices")
	}
	return nil
}

// stripCodeFence unwraps a ```json ... ``` or ``` ... ``` block.
func stripCodeFence(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
