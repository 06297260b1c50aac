package claims

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
	"github.com/TobiSchelling/claimcheck/internal/database"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	claims    []*database.Claim
	insertErr error
}

func (m *memStore) InsertClaim(c *database.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if c.ID == "" {
		c.ID = "claim-" + string(rune('a'+len(m.claims)))
	}
	cp := *c
	m.claims = append(m.claims, &cp)
	return nil
}

func (m *memStore) GetClaim(id string) (*database.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListClaims(f database.ClaimFilter) ([]database.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Claim{}
	for i := len(m.claims) - 1; i >= 0; i-- {
		out = append(out, *m.claims[i])
	}
	return out, nil
}

func (m *memStore) SetClaimFlag(id, notes, flaggedBy string) (*database.Claim, error) {
	m.mu.Lock()
	for _, c := range m.claims {
		if c.ID == id {
			c.IsFlagged, c.FlagNotes, c.FlaggedBy = true, notes, flaggedBy
		}
	}
	m.mu.Unlock()
	return m.GetClaim(id)
}

func (m *memStore) ClearClaimFlag(id string) (*database.Claim, error) {
	m.mu.Lock()
	for _, c := range m.claims {
		if c.ID == id {
			c.IsFlagged, c.FlagNotes, c.FlaggedBy = false, "", ""
		}
	}
	m.mu.Unlock()
	return m.GetClaim(id)
}

func (m *memStore) HasClaimForLink(link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.Link == link {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetClaimStats() (*database.ClaimStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &database.ClaimStats{Total: len(m.claims)}, nil
}

type stubExtractor struct {
	text  string
	calls []string
}

func (s *stubExtractor) Extract(_ context.Context, url string) string {
	s.calls = append(s.calls, url)
	return s.text
}

type recorder struct {
	events []Event
}

func (r *recorder) Publish(e Event) { r.events = append(r.events, e) }

func newTestService(t *testing.T, ext TextExtractor) (*Service, *memStore, *recorder) {
	t.Helper()
	store := &memStore{}
	rec := &recorder{}
	svc := NewService(store, analysis.NewClassifier(nil), Options{
		Extractor: ext,
		Publisher: rec,
		UploadDir: t.TempDir(),
	})
	return svc, store, rec
}

func TestSubmitRequiresContent(t *testing.T) {
	svc, store, rec := newTestService(t, nil)

	_, err := svc.Submit(context.Background(), Submission{MediaType: "image/png"})

	assert.ErrorIs(t, err, ErrNoContent)
	assert.Empty(t, store.claims)
	assert.Empty(t, rec.events)
}

func TestSubmitText(t *testing.T) {
	ext := &stubExtractor{text: "unused"}
	svc, store, rec := newTestService(t, ext)

	c, err := svc.Submit(context.Background(), Submission{
		Text: "BREAKING!!!! Doctors hate this secret cure!!!!",
		Link: "https://example.com/story",
	})
	require.NoError(t, err)

	assert.Equal(t, analysis.VerdictFake, c.Verdict)
	assert.Equal(t, 0.6, c.Confidence)
	assert.Equal(t, c.Verdict, c.Analysis.Verdict)
	assert.Equal(t, "https://example.com/story", c.Link)
	assert.Empty(t, ext.calls, "text present, link must not be fetched")
	require.Len(t, store.claims, 1)
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventClaimCreated, rec.events[0].Type)
	assert.Equal(t, c.ID, rec.events[0].Claim.ID)
}

func TestSubmitLinkUsesExtractedText(t *testing.T) {
	ext := &stubExtractor{text: "According to a peer-reviewed study published in a university journal, researchers found..."}
	svc, _, _ := newTestService(t, ext)

	c, err := svc.Submit(context.Background(), Submission{Link: "  https://example.com/study  "})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/study"}, ext.calls)
	assert.Equal(t, ext.text, c.Text)
	assert.Equal(t, analysis.VerdictReal, c.Verdict)
	assert.Equal(t, 0.8, c.Confidence)
}

func TestSubmitLinkExtractionFailure(t *testing.T) {
	svc, _, _ := newTestService(t, &stubExtractor{})

	c, err := svc.Submit(context.Background(), Submission{Link: "https://example.com/down"})
	require.NoError(t, err)

	assert.Equal(t, analysis.VerdictUnverified, c.Verdict)
	assert.Zero(t, c.Confidence)
	assert.Equal(t, "Insufficient text for analysis", c.Analysis.Reason)
	assert.Empty(t, c.Text)
}

func TestSubmitMedia(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	c, err := svc.Submit(context.Background(), Submission{
		Media: &Media{Filename: "Photo.PNG", ContentType: "image/png", Body: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.MediaURL, "/uploads/media-"), c.MediaURL)
	assert.True(t, strings.HasSuffix(c.MediaURL, ".png"), c.MediaURL)
	assert.Equal(t, "image/png", c.MediaType)
	assert.Equal(t, analysis.VerdictUnverified, c.Verdict)

	data, err := os.ReadFile(filepath.Join(svc.media.dir, filepath.Base(c.MediaURL)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSubmitMediaTypeOverride(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	c, err := svc.Submit(context.Background(), Submission{
		MediaType: "video",
		Media:     &Media{Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, "video", c.MediaType)
}

func TestSubmitRejectsMedia(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	svc.media.maxBytes = 8

	_, err := svc.Submit(context.Background(), Submission{
		Media: &Media{Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hello")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.Submit(context.Background(), Submission{
		Media: &Media{Filename: "big.gif", ContentType: "image/gif", Body: bytes.NewReader(make([]byte, 9))},
	})
	assert.ErrorIs(t, err, ErrMediaTooLarge)

	entries, _ := os.ReadDir(svc.media.dir)
	assert.Empty(t, entries, "rejected uploads must not be kept")
	assert.Empty(t, store.claims)
}

func TestSubmitStoreFailureRemovesMedia(t *testing.T) {
	svc, store, rec := newTestService(t, nil)
	store.insertErr = errors.New("disk full")

	_, err := svc.Submit(context.Background(), Submission{
		Text:  "Some caption for the photo",
		Media: &Media{Filename: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpg")},
	})
	require.Error(t, err)

	entries, _ := os.ReadDir(svc.media.dir)
	assert.Empty(t, entries)
	assert.Empty(t, rec.events)
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name, ct string
		want     bool
	}{
		{"a.jpg", "image/jpeg", true},
		{"a.jpeg", "image/jpeg", true},
		{"a.webm", "video/webm", true},
		{"a.mov", "video/mov", true},
		{"a.mov", "video/quicktime", false},
		{"a.png", "application/octet-stream", false},
		{"a.exe", "image/png", false},
		{"noext", "image/png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(tt.name, tt.ct), "%s %s", tt.name, tt.ct)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Flag("missing", "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Unflag("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFlagLifecycle(t *testing.T) {
	svc, _, rec := newTestService(t, nil)

	c, err := svc.Submit(context.Background(), Submission{Text: "Shocking secret exposed today"})
	require.NoError(t, err)

	flagged, err := svc.Flag(c.ID, "needs a source", "")
	require.NoError(t, err)
	assert.True(t, flagged.IsFlagged)
	assert.Equal(t, "needs a source", flagged.FlagNotes)
	assert.Equal(t, "anonymous", flagged.FlaggedBy)
	assert.Equal(t, c.Verdict, flagged.Verdict)
	assert.Equal(t, c.Confidence, flagged.Confidence)

	unflagged, err := svc.Unflag(c.ID)
	require.NoError(t, err)
	assert.False(t, unflagged.IsFlagged)
	assert.Empty(t, unflagged.FlagNotes)
	assert.Empty(t, unflagged.FlaggedBy)

	var types []string
	for _, e := range rec.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{EventClaimCreated, EventClaimFlagged, EventClaimUnflagged}, types)
}

func TestServiceWithDatabase(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, nil, Options{})

	first, err := svc.Submit(context.Background(), Submission{Text: "According to officials, the bridge reopens Monday."})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), Submission{Text: "ok", Link: "https://example.com/x"})
	require.NoError(t, err)

	list, err := svc.List(database.ClaimFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	got, err := svc.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Analysis, got.Analysis)

	has, err := svc.HasLink("https://example.com/x")
	require.NoError(t, err)
	assert.True(t, has)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Real)
	assert.Equal(t, 1, stats.Unverified)
	assert.Equal(t, 0.1, stats.AverageConfidence)
}

func TestClassifyDoesNotStore(t *testing.T) {
	ext := &stubExtractor{text: "Breaking: shocking claims"}
	svc, store, _ := newTestService(t, ext)

	r := svc.Classify(context.Background(), "", "https://example.com/a")

	assert.Equal(t, analysis.VerdictFake, r.Verdict)
	assert.Empty(t, store.claims)
}
