package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
)

// MockResult is returned when no provider is configured.
const MockResult = "This is a mock AI response (local dev)"

const systemPrompt = `You are a fact-checking assistant. Judge whether a news claim is likely real or fake.
Reply with JSON only: {"verdict": "real" | "fake" | "unverified", "confidence": 0.0-1.0, "explanation": "one or two sentences"}`

const defaultMaxTokens = 300

// Detection is a model's opinion on a claim.
type Detection struct {
	Result     string           `json:"result"`
	Verdict    analysis.Verdict `json:"verdict,omitempty"`
	Confidence *float64         `json:"confidence,omitempty"`
	Mock       bool             `json:"mock,omitempty"`
}

// Detector asks an LLM whether a claim looks like fake news.
type Detector struct {
	provider  Provider
	maxTokens int
}

// NewDetector wraps provider. A nil provider yields mock detections.
func NewDetector(provider Provider, maxTokens int) *Detector {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Detector{provider: provider, maxTokens: maxTokens}
}

// ProviderName returns the backing provider's name, or "mock".
func (d *Detector) ProviderName() string {
	if d.provider == nil {
		return "mock"
	}
	return d.provider.Name()
}

// Detect asks the model about text. Structured fields are filled in when the
// reply is the JSON the prompt asks for; otherwise Result holds the raw reply.
func (d *Detector) Detect(ctx context.Context, text string) (*Detection, error) {
	if d.provider == nil {
		return &Detection{Result: MockResult, Mock: true}, nil
	}

	reply, err := d.provider.Generate(ctx, "Detect fake news: "+text, d.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("%s detect: %w", d.provider.Name(), err)
	}

	det := &Detection{Result: strings.TrimSpace(reply)}

	parsed, ok := parseReply(reply)
	if !ok {
		return det, nil
	}
	if s := parsed.explanation(); s != "" {
		det.Result = s
	}
	if v, err := analysis.ParseVerdict(parsed.verdict()); err == nil {
		det.Verdict = v
	}
	if f, ok := parsed.confidence(); ok {
		c := analysis.Round2(f)
		det.Confidence = &c
	}
	return det, nil
}
