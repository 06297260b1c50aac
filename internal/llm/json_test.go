package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyPlain(t *testing.T) {
	r, ok := parseReply(`{"verdict": "real", "confidence": 0.7, "explanation": "Cites a named agency."}`)
	require.True(t, ok)

	assert.Equal(t, "real", r.verdict())
	assert.Equal(t, "Cites a named agency.", r.explanation())
	c, valid := r.confidence()
	assert.True(t, valid)
	assert.Equal(t, 0.7, c)
}

func TestParseReplyCodeFence(t *testing.T) {
	for _, text := range []string{
		"```json\n{\"verdict\": \"fake\"}\n```",
		"```\n{\"verdict\": \"fake\"}\n```",
		"```json\n{\"verdict\": \"fake\"}",
	} {
		r, ok := parseReply(text)
		require.True(t, ok, text)
		assert.Equal(t, "fake", r.verdict(), text)
	}
}

func TestParseReplyWithProse(t *testing.T) {
	r, ok := parseReply("Sure, here is my assessment:\n{\"verdict\": \"unverified\", \"explanation\": \"No sources.\"}\nHope this helps.")
	require.True(t, ok)
	assert.Equal(t, "unverified", r.verdict())
	assert.Equal(t, "No sources.", r.explanation())
}

func TestParseReplyWrongTypes(t *testing.T) {
	r, ok := parseReply(`{"verdict": 1, "confidence": "high", "explanation": ["a"]}`)
	require.True(t, ok)

	assert.Empty(t, r.verdict())
	assert.Empty(t, r.explanation())
	_, valid := r.confidence()
	assert.False(t, valid)
}

func TestParseReplyConfidenceRange(t *testing.T) {
	r, _ := parseReply(`{"confidence": 1.5}`)
	_, valid := r.confidence()
	assert.False(t, valid)

	r, _ = parseReply(`{"confidence": 0}`)
	c, valid := r.confidence()
	assert.True(t, valid)
	assert.Zero(t, c)
}

func TestParseReplyInvalid(t *testing.T) {
	for _, text := range []string{"", "   \n ", "not json at all", "} backwards {", "{broken"} {
		_, ok := parseReply(text)
		assert.False(t, ok, text)
	}
}
