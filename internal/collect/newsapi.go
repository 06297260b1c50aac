package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIClient searches NewsAPI for articles worth checking.
type NewsAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewNewsAPIClient creates a client reading its key from apiKeyEnv.
func NewNewsAPIClient(apiKeyEnv string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:  os.Getenv(apiKeyEnv),
		baseURL: newsAPIBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Search returns articles matching query published after from.
func (c *NewsAPIClient) Search(ctx context.Context, query string, from time.Time, pageSize int) ([]Entry, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {query},
		"from":     {from.Format("2006-01-02")},
		"language": {"en"},
		"pageSize": {fmt.Sprintf("%d", pageSize)},
		"sortBy":   {"publishedAt"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NewsAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NewsAPI returned %d", resp.StatusCode)
	}

	var result struct {
		Status   string `json:"status"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
			Content     string `json:"content"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding NewsAPI response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI status %q", result.Status)
	}

	var entries []Entry
	for _, a := range result.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}

		var published time.Time
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			published = t
		}

		content := strings.TrimSpace(a.Description)
		if content == "" {
			content = strings.TrimSpace(a.Content)
		}

		source := "NewsAPI"
		if a.Source.Name != "" {
			source = a.Source.Name
		}

		entries = append(entries, Entry{
			URL:         a.URL,
			Title:       strings.TrimSpace(a.Title),
			PublishedAt: published,
			Content:     content,
			Source:      source,
		})
	}
	return entries, nil
}

// SearchAll runs every query and merges the results, dropping repeated URLs.
func (c *NewsAPIClient) SearchAll(ctx context.Context, queries []string, from time.Time, pageSize int) []Entry {
	seen := make(map[string]struct{})
	var all []Entry
	for _, q := range queries {
		entries, err := c.Search(ctx, q, from, pageSize)
		if err != nil {
			log.Printf("NewsAPI search %q failed: %v", q, err)
			continue
		}
		for _, e := range entries {
			if _, ok := seen[e.URL]; ok {
				continue
			}
			seen[e.URL] = struct{}{}
			all = append(all, e)
		}
		log.Printf("Fetched %d articles from NewsAPI for query: %s", len(entries), q)
	}
	return all
}
