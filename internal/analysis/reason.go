package analysis

import "strings"

const (
	reasonInsufficientText       = "Insufficient text for analysis"
	reasonInsufficientIndicators = "Insufficient indicators for classification"
	reasonUnreliableStyle        = "Text characteristics suggest unreliable content"
	reasonReliableStyle          = "Text characteristics suggest reliable content"
)

// explain builds the human-readable reason for a verdict.
func explain(verdict Verdict, fakeHits, realHits []string) string {
	switch verdict {
	case VerdictFake:
		if len(fakeHits) > 0 {
			return "Contains suspicious language: " + strings.Join(fakeHits, ", ")
		}
		return reasonUnreliableStyle
	case VerdictReal:
		if len(realHits) > 0 {
			return "Contains credible language: " + strings.Join(realHits, ", ")
		}
		return reasonReliableStyle
	}
	return reasonInsufficientIndicators
}
