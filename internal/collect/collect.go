package collect

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
	"github.com/TobiSchelling/claimcheck/internal/claims"
	"github.com/TobiSchelling/claimcheck/internal/config"
	"github.com/TobiSchelling/claimcheck/internal/database"
)

// Submitter is the part of the claims service the collector uses.
type Submitter interface {
	Submit(ctx context.Context, sub claims.Submission) (*database.Claim, error)
	HasLink(link string) (bool, error)
}

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	NewClaims  int
	Duplicates int
	Failed     int
	Sources    map[string]int
	Verdicts   map[analysis.Verdict]int
}

// Collector turns feed and NewsAPI items into classified claims.
type Collector struct {
	svc        Submitter
	feedParser *FeedParser
	newsClient *NewsAPIClient
	queries    []string
	pageSize   int
	daysBack   int
}

// NewCollector creates a collector for the sources in cfg.
func NewCollector(cfg *config.Config, svc Submitter) *Collector {
	c := &Collector{
		svc:      svc,
		daysBack: cfg.Sources.DaysBack,
	}
	if c.daysBack <= 0 {
		c.daysBack = 2
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds)
	}

	apiCfg := cfg.Sources.NewsAPI
	if apiCfg.Enabled && len(apiCfg.Queries) > 0 {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKeyEnv)
		c.queries = apiCfg.Queries
		c.pageSize = apiCfg.PageSize
	}

	return c
}

// Collect fetches every source once and submits items not seen before.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{
		Sources:  make(map[string]int),
		Verdicts: make(map[analysis.Verdict]int),
	}
	cutoff := time.Now().AddDate(0, 0, -c.daysBack)

	var entries []Entry
	if c.feedParser != nil {
		log.Println("Collecting from RSS feeds...")
		entries = append(entries, c.feedParser.ParseAll(ctx, cutoff)...)
	}
	if c.newsClient != nil {
		if c.newsClient.IsConfigured() {
			log.Println("Collecting from NewsAPI...")
			entries = append(entries, c.newsClient.SearchAll(ctx, c.queries, cutoff, c.pageSize)...)
		} else {
			log.Println("NewsAPI enabled but no API key set, skipping")
		}
	}
	r.TotalFound = len(entries)

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		c.submit(ctx, e, r)
	}

	log.Printf("Collection complete: %d found, %d new, %d duplicates, %d failed",
		r.TotalFound, r.NewClaims, r.Duplicates, r.Failed)
	return r
}

func (c *Collector) submit(ctx context.Context, e Entry, r *Result) {
	seen, err := c.svc.HasLink(e.URL)
	if err != nil {
		log.Printf("Error checking %s: %v", e.URL, err)
		r.Failed++
		return
	}
	if seen {
		r.Duplicates++
		return
	}

	claim, err := c.svc.Submit(ctx, claims.Submission{
		Text:   e.Text(),
		Link:   e.URL,
		Source: e.Source,
	})
	if err != nil {
		log.Printf("Error submitting %s: %v", e.URL, err)
		r.Failed++
		return
	}
	r.NewClaims++
	r.Sources[e.Source]++
	r.Verdicts[claim.Verdict]++
}

// Schedule runs Collect on the given cron spec until the returned cron is
// stopped. Runs never overlap and are cancelled with ctx. Callers should
// wait on the context returned by Stop before closing the store.
func Schedule(ctx context.Context, spec string, c *Collector) (*cron.Cron, error) {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := sched.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		c.Collect(ctx)
	}); err != nil {
		return nil, err
	}
	sched.Start()
	log.Printf("Scheduled feed collection: %s", spec)
	return sched, nil
}
