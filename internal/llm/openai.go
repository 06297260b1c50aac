package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// placeholderKey is the value example .env files ship with.
const placeholderKey = "FAKE_KEY"

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	Model  string
	apiKey string
	client *openai.Client
}

// NewOpenAIProvider creates an OpenAI provider. baseURL may be empty.
func NewOpenAIProvider(model, apiKey, baseURL string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		Model:  model,
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// IsConfigured reports whether a real API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.apiKey != "" && o.apiKey != placeholderKey
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !o.IsConfigured() {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
