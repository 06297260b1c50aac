package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html/charset"
)

const (
	DefaultMaxChars  = 2000
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// Pages larger than this are cut before parsing.
	maxBodyBytes = 5 << 20
	// Readability output shorter than this is treated as a miss.
	minReadableChars = 100
)

// Tried in order; the first element with text wins, then body.
var contentSelectors = []string{
	"article", ".article", ".content", ".post", ".entry",
	"main", ".main", `[role="main"]`, ".story", ".news",
}

// Options configures an Extractor. Zero values fall back to defaults.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	MaxChars          int
	RespectRobots     bool
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
}

// Extractor fetches a page and returns its main text.
type Extractor struct {
	client   *http.Client
	opts     Options
	robots   *RobotsChecker
	limiter  *Limiter
	cache    *gocache.Cache
	timeout  time.Duration
	maxChars int
}

// NewExtractor creates an extractor with the given options.
func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	e := &Extractor{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		opts:     opts,
		timeout:  opts.Timeout,
		maxChars: opts.MaxChars,
	}
	if opts.RespectRobots {
		e.robots = NewRobotsChecker(opts.UserAgent, opts.Timeout)
	}
	if opts.RequestsPerSecond > 0 {
		e.limiter = NewLimiter(opts.RequestsPerSecond, opts.Burst)
	}
	if opts.CacheTTL > 0 {
		e.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return e
}

// Extract returns the main text of the page at rawURL, truncated to the
// configured character limit. Any failure yields an empty string.
func (e *Extractor) Extract(ctx context.Context, rawURL string) string {
	if e.cache != nil {
		if v, ok := e.cache.Get(rawURL); ok {
			return v.(string)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.extract(ctx, rawURL)
	if err != nil {
		log.Printf("Error extracting text from %s: %v", rawURL, err)
		return ""
	}

	text = truncate(text, e.maxChars)
	if e.cache != nil && text != "" {
		e.cache.SetDefault(rawURL, text)
	}
	return text
}

func (e *Extractor) extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
	}

	if e.robots != nil {
		allowed, delay, _ := e.robots.CanFetch(ctx, rawURL)
		if !allowed {
			return "", fmt.Errorf("disallowed by robots.txt")
		}
		if e.limiter != nil {
			if err := e.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
				return "", fmt.Errorf("rate limit: %w", err)
			}
		}
	} else if e.limiter != nil {
		if err := e.limiter.Wait(ctx, rawURL); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	body, contentType, err := e.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	data, err := decode(body, contentType)
	if err != nil {
		return "", fmt.Errorf("decoding body: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil {
		if text := collapse(article.TextContent); utf8.RuneCountInString(text) > minReadableChars {
			return text, nil
		}
	}

	return selectText(data)
}

func (e *Extractor) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// decode converts the page to UTF-8 using the header and meta charset hints.
func decode(data []byte, contentType string) ([]byte, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, err
		}
		return data, nil
	}
	return out, nil
}

// selectText returns the text of the first element matched by the first
// content selector that matches anything. An empty match, or no match at
// all, falls back to the whole body.
func selectText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if text := collapse(s.Text()); text != "" {
			return text, nil
		}
		break
	}
	return collapse(doc.Find("body").Text()), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, http.StatusText(e.code))
}
