package llm

import (
	"context"
	"log"
	"strings"
)

// Provider is a chat model that can answer a single prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Options selects and configures a provider.
type Options struct {
	Provider    string // "openai" or "ollama"
	Model       string // Ollama model
	OllamaURL   string
	OpenAIModel string
	APIKey      string
	BaseURL     string // OpenAI-compatible endpoint override
}

// CreateProvider picks a provider from the options. It returns nil when
// none is usable, which makes the detector answer with a mock reply.
func CreateProvider(opts Options) Provider {
	if strings.EqualFold(opts.Provider, "ollama") {
		p := NewOllamaProvider(opts.Model, opts.OllamaURL)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", p.Model)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	}

	p := NewOpenAIProvider(opts.OpenAIModel, opts.APIKey, opts.BaseURL)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", p.Model)
		return p
	}

	log.Println("No LLM provider available, /api/detect will return mock responses. Set OPENAI_API_KEY or run Ollama.")
	return nil
}
