package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path != "/robots.txt" {
			atomic.AddInt32(&hits, 1)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestExtractContentSelector(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/page": `<html><head><style>.x{}</style></head><body>
			<nav>Menu</nav>
			<div class="content">Officials   confirmed the report. <script>var a=1;</script></div>
			<footer>Footer</footer></body></html>`,
	})

	e := NewExtractor(Options{})
	text := e.Extract(context.Background(), srv.URL+"/page")

	assert.Equal(t, "Officials confirmed the report.", text)
}

func TestExtractSelectorOrder(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/page": `<html><body><main>Main text</main><article>Article text</article></body></html>`,
	})

	text := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/page")
	assert.Equal(t, "Article text", text)
}

func TestExtractEmptyMatchFallsBackToBody(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/page": "<html><body><nav>Menu</nav>\n<article> </article>\n<main>Main text</main></body></html>",
	})

	text := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/page")
	assert.Equal(t, "Menu Main text", text)
}

func TestExtractBodyFallback(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/page": "<html><body><p>Just a paragraph</p>\n<div>and a div</div></body></html>",
	})

	text := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/page")
	assert.Equal(t, "Just a paragraph and a div", text)
}

func TestExtractReadableArticle(t *testing.T) {
	para := strings.Repeat("Researchers at the university published a detailed study on regional rainfall. ", 8)
	srv, _ := newTestServer(t, map[string]string{
		"/page": `<html><head><title>Study</title></head><body>
			<div id="sidebar"><a href="/a">Link</a></div>
			<article><h1>Rainfall study</h1><p>` + para + `</p><p>` + para + `</p></article>
			</body></html>`,
	})

	text := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/page")
	assert.Contains(t, text, "Researchers at the university published")
}

func TestExtractTruncates(t *testing.T) {
	long := strings.Repeat("é", 3000)
	srv, _ := newTestServer(t, map[string]string{
		"/page": `<html><body><div class="post">` + long + `</div></body></html>`,
	})

	text := NewExtractor(Options{}).Extract(context.Background(), srv.URL+"/page")
	assert.Equal(t, DefaultMaxChars, utf8.RuneCountInString(text))
}

func TestExtractFailuresYieldEmpty(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{})
	e := NewExtractor(Options{Timeout: time.Second})

	assert.Empty(t, e.Extract(context.Background(), srv.URL+"/missing"), "404")
	assert.Empty(t, e.Extract(context.Background(), "ftp://example.com/file"), "scheme")
	assert.Empty(t, e.Extract(context.Background(), "://bad"), "parse")
	assert.Empty(t, e.Extract(context.Background(), "http://127.0.0.1:1/"), "connect")
}

func TestExtractTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewExtractor(Options{Timeout: 100 * time.Millisecond})
	start := time.Now()
	assert.Empty(t, e.Extract(context.Background(), srv.URL))
	assert.Less(t, time.Since(start), time.Second)
}

func TestExtractCancelledContext(t *testing.T) {
	srv, hits := newTestServer(t, map[string]string{"/page": `<body><article>Text</article></body>`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, NewExtractor(Options{}).Extract(ctx, srv.URL+"/page"))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestExtractRespectsRobots(t *testing.T) {
	srv, hits := newTestServer(t, map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /private\n",
		"/private":    `<body><article>Secret text</article></body>`,
		"/public":     `<body><article>Public text</article></body>`,
	})

	e := NewExtractor(Options{RespectRobots: true})

	assert.Empty(t, e.Extract(context.Background(), srv.URL+"/private"))
	assert.Equal(t, "Public text", e.Extract(context.Background(), srv.URL+"/public"))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestExtractMissingRobotsAllows(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/page": `<body><article>Allowed text</article></body>`,
	})

	e := NewExtractor(Options{RespectRobots: true})
	assert.Equal(t, "Allowed text", e.Extract(context.Background(), srv.URL+"/page"))
}

func TestExtractCaches(t *testing.T) {
	srv, hits := newTestServer(t, map[string]string{
		"/page": `<body><article>Cached text</article></body>`,
	})

	e := NewExtractor(Options{CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		assert.Equal(t, "Cached text", e.Extract(context.Background(), srv.URL+"/page"))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestDecodeLatin1(t *testing.T) {
	// "café" in ISO-8859-1
	data := []byte("<html><body><article>caf\xe9</article></body></html>")

	out, err := decode(data, "text/html; charset=iso-8859-1")
	require.NoError(t, err)

	text, err := selectText(out)
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "http://example.com/a"))

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "http://example.com/b"))

	// Other hosts have their own budget.
	assert.NoError(t, l.Wait(context.Background(), "http://other.example.com/"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "äö", truncate("äöü", 2))
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "Mozilla", productToken(DefaultUserAgent))
	assert.Equal(t, "claimcheck", productToken("claimcheck/1.0"))
	assert.Equal(t, "", productToken(""))
}
