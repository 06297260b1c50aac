package analysis

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Verdict is the outcome of classifying a claim.
type Verdict string

const (
	VerdictReal       Verdict = "real"
	VerdictFake       Verdict = "fake"
	VerdictUnverified Verdict = "unverified"
)

// ParseVerdict validates a verdict string.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(s))); v {
	case VerdictReal, VerdictFake, VerdictUnverified:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// Scoring thresholds. These are tuned by hand and must stay in step with
// the stored verdicts of existing claims.
const (
	minTextLength       = 10
	confidencePerMatch  = 0.2
	maxIndicatorConf    = 0.8
	sentimentCutoff     = 0.3
	sentimentConfidence = 0.3
	exclamationTrigger  = 3
	capsRatioTrigger    = 0.3
	styleConfidence     = 0.4
)

// Result is the classification of a single text.
type Result struct {
	Verdict          Verdict  `json:"verdict"`
	Confidence       float64  `json:"confidence"`
	FakeIndicators   []string `json:"fakeIndicators"`
	RealIndicators   []string `json:"realIndicators"`
	Sentiment        float64  `json:"sentiment"`
	ExclamationCount int      `json:"exclamationCount"`
	CapsRatio        float64  `json:"capsRatio"`
	WordCount        int      `json:"wordCount"`
	Reason           string   `json:"reason"`
}

// Classifier applies the keyword and style heuristics. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	sentiment SentimentScorer
}

// NewClassifier creates a classifier. A nil scorer treats every text as neutral.
func NewClassifier(sentiment SentimentScorer) *Classifier {
	if sentiment == nil {
		sentiment = SentimentFunc(func(string) float64 { return 0 })
	}
	return &Classifier{sentiment: sentiment}
}

// Classify scores text and returns a verdict with its supporting signals.
func (c *Classifier) Classify(text string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength {
		return Result{
			Verdict:        VerdictUnverified,
			Confidence:     0,
			FakeIndicators: []string{},
			RealIndicators: []string{},
			Reason:         reasonInsufficientText,
		}
	}

	normalized := Normalize(text)
	fakeHits := Scan(text, normalized, FakeIndicators)
	realHits := Scan(text, normalized, RealIndicators)
	sentiment := c.sentiment.Polarity(text)

	verdict := VerdictUnverified
	confidence := 0.0

	switch {
	case len(fakeHits) > 0:
		verdict = VerdictFake
		confidence = math.Min(maxIndicatorConf, confidencePerMatch*float64(len(fakeHits)))
	case len(realHits) > 0:
		verdict = VerdictReal
		confidence = math.Min(maxIndicatorConf, confidencePerMatch*float64(len(realHits)))
	case sentiment < -sentimentCutoff:
		verdict = VerdictFake
		confidence = sentimentConfidence
	case sentiment > sentimentCutoff:
		verdict = VerdictReal
		confidence = sentimentConfidence
	}

	exclamations := strings.Count(text, "!")
	caps := capsRatio(text)

	// Style signals only decide texts nothing else could.
	if (exclamations > exclamationTrigger || caps > capsRatioTrigger) && verdict == VerdictUnverified {
		verdict = VerdictFake
		confidence = math.Max(confidence, styleConfidence)
	}

	return Result{
		Verdict:          verdict,
		Confidence:       Round2(confidence),
		FakeIndicators:   fakeHits,
		RealIndicators:   realHits,
		Sentiment:        sentiment,
		ExclamationCount: exclamations,
		CapsRatio:        caps,
		WordCount:        len(strings.Fields(normalized)),
		Reason:           explain(verdict, fakeHits, realHits),
	}
}

// capsRatio is the share of uppercase letters among all runes of text.
func capsRatio(text string) float64 {
	total := 0
	upper := 0
	for _, r := range text {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}

// Round2 rounds to two decimal places, the precision confidences are reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
