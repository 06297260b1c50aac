package analysis

import "github.com/jonreiter/govader"

// SentimentScorer returns a polarity score for text, roughly in [-1, 1].
// Implementations must be deterministic for the same input.
type SentimentScorer interface {
	Polarity(text string) float64
}

// VaderSentiment scores text with the VADER lexicon. The compound score is
// used as the polarity.
type VaderSentiment struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderSentiment loads the VADER lexicon.
func NewVaderSentiment() *VaderSentiment {
	return &VaderSentiment{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the VADER compound score.
func (v *VaderSentiment) Polarity(text string) float64 {
	if text == "" {
		return 0
	}
	return v.analyzer.PolarityScores(text).Compound
}

// SentimentFunc adapts a plain function to SentimentScorer.
type SentimentFunc func(text string) float64

// Polarity calls f(text).
func (f SentimentFunc) Polarity(text string) float64 {
	return f(text)
}
