package database

import (
	"time"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
)

// Claim is a submitted piece of content together with its classification
// and review flag.
type Claim struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	Link       string           `json:"link"`
	MediaURL   string           `json:"mediaUrl"`
	MediaType  string           `json:"mediaType"`
	Source     string           `json:"source,omitempty"`
	Verdict    analysis.Verdict `json:"verdict"`
	Confidence float64          `json:"confidence"`
	Analysis   analysis.Result  `json:"nlpAnalysis"`
	IsFlagged  bool             `json:"isFlagged"`
	FlagNotes  string           `json:"flagNotes"`
	FlaggedBy  string           `json:"flaggedBy"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Filter values accepted by ClaimFilter.Status.
const (
	FilterAll        = "all"
	FilterReal       = "real"
	FilterFake       = "fake"
	FilterUnverified = "unverified"
	FilterFlagged    = "flagged"
)

// ClaimFilter narrows ListClaims. Zero value lists everything.
type ClaimFilter struct {
	Status string // one of the Filter* values, "" means all
	Query  string // case-insensitive match on text or link
	Limit  int    // 0 means no limit
}

// ClaimStats contains aggregate claim counts.
type ClaimStats struct {
	Total             int     `json:"total"`
	Fake              int     `json:"fake"`
	Real              int     `json:"real"`
	Unverified        int     `json:"unverified"`
	Flagged           int     `json:"flagged"`
	AverageConfidence float64 `json:"averageConfidence"`
}
