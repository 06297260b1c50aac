package analysis

import "strings"

// FakeIndicators are phrases associated with sensational or unreliable framing.
var FakeIndicators = []string{
	"breaking", "shocking", "you won't believe", "doctors hate", "one weird trick",
	"miracle cure", "instant results", "guaranteed", "secret", "exposed",
	"they don't want you to know", "click here", "urgent", "alert",
	"warning", "dangerous", "banned", "forbidden", "conspiracy",
}

// RealIndicators are phrases associated with sourced, attributable reporting.
var RealIndicators = []string{
	"according to", "study shows", "research indicates", "official statement",
	"government report", "peer-reviewed", "journal", "university", "institution",
	"expert says", "data shows", "statistics", "survey", "analysis",
}

// Scan returns the indicators found in the text, in the order they are declared.
//
// An indicator matches when its lowercase form is a substring of the
// lowercased raw text or of the normalized text. Matching ignores word
// boundaries, so "journal" also matches "journalist".
func Scan(raw, normalized string, indicators []string) []string {
	lowered := strings.ToLower(raw)
	matched := []string{}
	for _, ind := range indicators {
		phrase := strings.ToLower(ind)
		if strings.Contains(lowered, phrase) || strings.Contains(normalized, phrase) {
			matched = append(matched, ind)
		}
	}
	return matched
}
