package ai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	breakdownSystemPrompt = "You are a task planning assistant. Break down tasks into actionable steps."
)

// ErrNotConfigured is returned when no API key is available; callers surface
// it as a structured error response instead of failing the process.
var ErrNotConfigured = errors.New("ai: no API key configured")

// Client is a thin call-through to an OpenAI-compatible completion service
// (Groq by default).
type Client struct {
	api   *openai.Client
	model string
}

// NewClientFromEnv builds a client from GROQ_API_KEY / GROQ_BASE_URL /
// GROQ_MODEL. A missing key yields a nil client, which is legal: calls on a
// nil client return ErrNotConfigured.
func NewClientFromEnv() *Client {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil
	}
	return NewClient(apiKey, os.Getenv("GROQ_BASE_URL"), os.Getenv("GROQ_MODEL"))
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Configured reports whether the client can make calls.
func (c *Client) Configured() bool { return c != nil }

// Chat sends one user message and returns the model's reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: message},
	}, 0.7, 1024)
}

// BreakdownTask asks the model to decompose a task description into steps.
func (c *Client) BreakdownTask(ctx context.Context, description string) (string, error) {
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: breakdownSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Break down this task: " + description},
	}, 0.5, 512)
}

func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
