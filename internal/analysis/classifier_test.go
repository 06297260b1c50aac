package analysis

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neutral() SentimentScorer {
	return SentimentFunc(func(string) float64 { return 0 })
}

func fixedSentiment(v float64) SentimentScorer {
	return SentimentFunc(func(string) float64 { return v })
}

func TestClassifyInsufficientText(t *testing.T) {
	c := NewClassifier(neutral())

	for _, text := range []string{"", "ok", "   short   ", "123456789", "\n\t\n"} {
		t.Run(text, func(t *testing.T) {
			r := c.Classify(text)
			assert.Equal(t, VerdictUnverified, r.Verdict)
			assert.Zero(t, r.Confidence)
			assert.Equal(t, "Insufficient text for analysis", r.Reason)
			assert.Empty(t, r.FakeIndicators)
			assert.Empty(t, r.RealIndicators)
			assert.NotNil(t, r.FakeIndicators)
		})
	}
}

func TestClassifySensationalHeadline(t *testing.T) {
	c := NewClassifier(neutral())

	r := c.Classify("BREAKING!!!! Doctors hate this secret cure!!!!")

	assert.Equal(t, VerdictFake, r.Verdict)
	assert.Equal(t, 0.6, r.Confidence)
	assert.Equal(t, []string{"breaking", "doctors hate", "secret"}, r.FakeIndicators)
	assert.Empty(t, r.RealIndicators)
	assert.Equal(t, 8, r.ExclamationCount)
	assert.Equal(t, "Contains suspicious language: breaking, doctors hate, secret", r.Reason)
}

func TestClassifySourcedReporting(t *testing.T) {
	c := NewClassifier(neutral())

	r := c.Classify("According to a peer-reviewed study published in a university journal, researchers found...")

	assert.Equal(t, VerdictReal, r.Verdict)
	assert.Equal(t, 0.8, r.Confidence)
	assert.Equal(t, []string{"according to", "peer-reviewed", "journal", "university"}, r.RealIndicators)
	assert.Empty(t, r.FakeIndicators)
	assert.Equal(t, "Contains credible language: according to, peer-reviewed, journal, university", r.Reason)
}

func TestClassifyNeutralText(t *testing.T) {
	c := NewClassifier(neutral())

	r := c.Classify("The committee met on Tuesday to discuss the schedule for next month.")

	assert.Equal(t, VerdictUnverified, r.Verdict)
	assert.Zero(t, r.Confidence)
	assert.Equal(t, "Insufficient indicators for classification", r.Reason)
	assert.Equal(t, 12, r.WordCount)
}

func TestClassifyConfidenceCap(t *testing.T) {
	c := NewClassifier(neutral())

	r := c.Classify("Shocking secret exposed: urgent warning about banned cure")

	assert.Equal(t, VerdictFake, r.Verdict)
	assert.Equal(t, []string{"shocking", "secret", "exposed", "urgent", "warning", "banned"}, r.FakeIndicators)
	assert.Equal(t, 0.8, r.Confidence)
}

func TestClassifyFakeTakesPrecedence(t *testing.T) {
	c := NewClassifier(neutral())

	r := c.Classify("Breaking: according to the university")

	assert.Equal(t, VerdictFake, r.Verdict)
	assert.Equal(t, 0.2, r.Confidence)
	assert.Equal(t, []string{"breaking"}, r.FakeIndicators)
	assert.Equal(t, []string{"according to", "university"}, r.RealIndicators)
}

func TestClassifySentimentFallback(t *testing.T) {
	text := "The committee met on Tuesday to discuss the schedule for next month."

	neg := NewClassifier(fixedSentiment(-0.5)).Classify(text)
	assert.Equal(t, VerdictFake, neg.Verdict)
	assert.Equal(t, 0.3, neg.Confidence)
	assert.Equal(t, "Text characteristics suggest unreliable content", neg.Reason)

	pos := NewClassifier(fixedSentiment(0.5)).Classify(text)
	assert.Equal(t, VerdictReal, pos.Verdict)
	assert.Equal(t, 0.3, pos.Confidence)
	assert.Equal(t, "Text characteristics suggest reliable content", pos.Reason)

	edge := NewClassifier(fixedSentiment(0.3)).Classify(text)
	assert.Equal(t, VerdictUnverified, edge.Verdict)
	assert.Equal(t, 0.3, edge.Sentiment)
}

func TestClassifyStyleEscalation(t *testing.T) {
	c := NewClassifier(neutral())

	t.Run("exclamations", func(t *testing.T) {
		r := c.Classify("this is so so bad!!!! what now")
		assert.Equal(t, VerdictFake, r.Verdict)
		assert.Equal(t, 0.4, r.Confidence)
		assert.Equal(t, 4, r.ExclamationCount)
	})

	t.Run("capitals", func(t *testing.T) {
		r := c.Classify("WHAT IS GOING ON WITH THE PRICES TODAY")
		assert.Equal(t, VerdictFake, r.Verdict)
		assert.Equal(t, 0.4, r.Confidence)
		assert.Greater(t, r.CapsRatio, 0.3)
	})

	t.Run("three exclamations do not trigger", func(t *testing.T) {
		r := c.Classify("this is so so bad!!! what now")
		assert.Equal(t, VerdictUnverified, r.Verdict)
	})

	t.Run("decided real is kept", func(t *testing.T) {
		r := c.Classify("According to officials the plan is fine!!!!!")
		assert.Equal(t, VerdictReal, r.Verdict)
		assert.Equal(t, 0.2, r.Confidence)
	})

	t.Run("sentiment fake is not raised", func(t *testing.T) {
		r := NewClassifier(fixedSentiment(-0.9)).Classify("this is so so bad!!!! what now")
		assert.Equal(t, VerdictFake, r.Verdict)
		assert.Equal(t, 0.3, r.Confidence)
	})
}

func TestClassifySubstringQuirk(t *testing.T) {
	c := NewClassifier(neutral())

	// Matching ignores word boundaries.
	r := c.Classify("The journalist covered the city council meeting")

	assert.Equal(t, VerdictReal, r.Verdict)
	assert.Equal(t, 0.2, r.Confidence)
	assert.Equal(t, []string{"journal"}, r.RealIndicators)
}

func TestClassifyIgnoresSharedWordStems(t *testing.T) {
	c := NewClassifier(neutral())

	for _, text := range []string{
		"The bank of England raised interest rates today.",
		"Breakfast is served in the school cafeteria at eight.",
		"The universe is expanding at a steady rate, they said.",
		"Warner Bros released a new film this weekend.",
	} {
		r := c.Classify(text)
		assert.Equal(t, VerdictUnverified, r.Verdict, text)
		assert.Zero(t, r.Confidence, text)
		assert.Empty(t, r.FakeIndicators, text)
		assert.Empty(t, r.RealIndicators, text)
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := NewClassifier(NewVaderSentiment())
	texts := []string{
		"BREAKING!!!! Doctors hate this secret cure!!!!",
		"According to a peer-reviewed study published in a university journal, researchers found...",
		"Shocking secret exposed: urgent warning about banned cure, click here for the conspiracy",
		"I hate this awful terrible product, it is horrible and sad.",
		"WHAT IS GOING ON WITH THE PRICES TODAY",
		"ok",
	}

	for _, text := range texts {
		r := c.Classify(text)
		assert.GreaterOrEqual(t, r.Confidence, 0.0, text)
		assert.LessOrEqual(t, r.Confidence, 1.0, text)
		assert.Equal(t, math.Round(r.Confidence*100)/100, r.Confidence, text)
	}
}

func TestClassifyWithVader(t *testing.T) {
	c := NewClassifier(NewVaderSentiment())

	neg := c.Classify("I hate this awful terrible product, it is horrible and sad.")
	assert.Less(t, neg.Sentiment, -0.3)
	assert.Equal(t, VerdictFake, neg.Verdict)
	assert.Equal(t, 0.3, neg.Confidence)

	pos := c.Classify("What a wonderful, lovely and happy day with great friends.")
	assert.Greater(t, pos.Sentiment, 0.3)
	assert.Equal(t, VerdictReal, pos.Verdict)
	assert.Equal(t, 0.3, pos.Confidence)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(NewVaderSentiment())
	text := "Shocking report: according to the survey, results are guaranteed!!!!"

	first := c.Classify(text)
	second := c.Classify(text)
	require.Equal(t, first, second)

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Classify(text)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func TestNilSentimentIsNeutral(t *testing.T) {
	r := NewClassifier(nil).Classify("The committee met on Tuesday to discuss the schedule for next month.")
	assert.Equal(t, VerdictUnverified, r.Verdict)
	assert.Zero(t, r.Sentiment)
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict(" Fake ")
	require.NoError(t, err)
	assert.Equal(t, VerdictFake, v)

	_, err = ParseVerdict("maybe")
	assert.Error(t, err)
}
