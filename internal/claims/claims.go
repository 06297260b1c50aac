package claims

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
	"github.com/TobiSchelling/claimcheck/internal/database"
)

var (
	ErrNoContent        = errors.New("at least one of text, link, or media must be provided")
	ErrNotFound         = errors.New("claim not found")
	ErrUnsupportedMedia = errors.New("only image and video files are allowed")
	ErrMediaTooLarge    = errors.New("media file too large")
)

const defaultFlaggedBy = "anonymous"

// Store is the persistence the service needs. *database.DB satisfies it.
type Store interface {
	InsertClaim(c *database.Claim) error
	GetClaim(id string) (*database.Claim, error)
	ListClaims(f database.ClaimFilter) ([]database.Claim, error)
	SetClaimFlag(id, notes, flaggedBy string) (*database.Claim, error)
	ClearClaimFlag(id string) (*database.Claim, error)
	HasClaimForLink(link string) (bool, error)
	GetClaimStats() (*database.ClaimStats, error)
}

// TextExtractor returns the main text of a web page, or "" on failure.
type TextExtractor interface {
	Extract(ctx context.Context, url string) string
}

// Submission is the raw input for a new claim.
type Submission struct {
	Text      string
	Link      string
	MediaType string
	Source    string
	Media     *Media
}

// Options configures a Service.
type Options struct {
	Extractor     TextExtractor // nil disables link extraction
	Publisher     Publisher     // nil drops events
	UploadDir     string
	MaxMediaBytes int64
}

// Service classifies and stores claims.
type Service struct {
	store      Store
	classifier *analysis.Classifier
	extractor  TextExtractor
	publisher  Publisher
	media      *mediaStore
}

// NewService wires a claims service around store.
func NewService(store Store, classifier *analysis.Classifier, opts Options) *Service {
	if classifier == nil {
		classifier = analysis.NewClassifier(nil)
	}
	return &Service{
		store:      store,
		classifier: classifier,
		extractor:  opts.Extractor,
		publisher:  opts.Publisher,
		media:      newMediaStore(opts.UploadDir, opts.MaxMediaBytes),
	}
}

// Submit validates, classifies and stores a new claim.
func (s *Service) Submit(ctx context.Context, sub Submission) (*database.Claim, error) {
	link := strings.TrimSpace(sub.Link)
	if sub.Text == "" && link == "" && sub.Media == nil {
		return nil, ErrNoContent
	}

	var mediaURL, mediaType string
	if sub.Media != nil {
		saved, err := s.media.Save(sub.Media)
		if err != nil {
			return nil, err
		}
		mediaURL = saved.URL
		mediaType = sub.Media.ContentType
	}
	if sub.MediaType != "" {
		mediaType = sub.MediaType
	}

	analysisText := sub.Text
	if link != "" && sub.Text == "" && s.extractor != nil {
		if extracted := s.extractor.Extract(ctx, link); extracted != "" {
			analysisText = extracted
		}
	}

	result := s.classifier.Classify(analysisText)

	claim := &database.Claim{
		Text:       analysisText,
		Link:       link,
		MediaURL:   mediaURL,
		MediaType:  mediaType,
		Source:     sub.Source,
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		Analysis:   result,
	}
	if err := s.store.InsertClaim(claim); err != nil {
		s.media.Remove(mediaURL)
		return nil, fmt.Errorf("saving claim: %w", err)
	}

	log.Printf("Claim %s classified %s (%.2f)", claim.ID, claim.Verdict, claim.Confidence)
	s.publish(EventClaimCreated, claim)
	return claim, nil
}

// List returns stored claims, most recent first.
func (s *Service) List(f database.ClaimFilter) ([]database.Claim, error) {
	claims, err := s.store.ListClaims(f)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	return claims, nil
}

// Get returns one claim or ErrNotFound.
func (s *Service) Get(id string) (*database.Claim, error) {
	c, err := s.store.GetClaim(id)
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Flag marks a claim for human review. The classification is left as is.
func (s *Service) Flag(id, notes, flaggedBy string) (*database.Claim, error) {
	if strings.TrimSpace(flaggedBy) == "" {
		flaggedBy = defaultFlaggedBy
	}
	c, err := s.store.SetClaimFlag(id, notes, flaggedBy)
	if err != nil {
		return nil, fmt.Errorf("flagging claim: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	s.publish(EventClaimFlagged, c)
	return c, nil
}

// Unflag clears the review flag and its notes.
func (s *Service) Unflag(id string) (*database.Claim, error) {
	c, err := s.store.ClearClaimFlag(id)
	if err != nil {
		return nil, fmt.Errorf("unflagging claim: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	s.publish(EventClaimUnflagged, c)
	return c, nil
}

// Stats returns aggregate counts over all claims.
func (s *Service) Stats() (*database.ClaimStats, error) {
	st, err := s.store.GetClaimStats()
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	return st, nil
}

// HasLink reports whether a claim for link was already submitted.
func (s *Service) HasLink(link string) (bool, error) {
	return s.store.HasClaimForLink(link)
}

// Classify runs the heuristic classifier without storing anything.
func (s *Service) Classify(ctx context.Context, text, link string) analysis.Result {
	if text == "" && link != "" && s.extractor != nil {
		text = s.extractor.Extract(ctx, link)
	}
	return s.classifier.Classify(text)
}

func (s *Service) publish(typ string, c *database.Claim) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Type: typ, Claim: c})
}
