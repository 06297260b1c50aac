package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
	"github.com/TobiSchelling/claimcheck/internal/claims"
	"github.com/TobiSchelling/claimcheck/internal/collect"
	"github.com/TobiSchelling/claimcheck/internal/config"
	"github.com/TobiSchelling/claimcheck/internal/database"
	"github.com/TobiSchelling/claimcheck/internal/fetch"
	"github.com/TobiSchelling/claimcheck/internal/llm"
	"github.com/TobiSchelling/claimcheck/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "claimcheck",
	Short:   "Heuristic fake news claim checker",
	Long:    "claimcheck classifies submitted claims as real, fake or unverified and serves a review dashboard.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags(verbose)
			return nil
		}

		if err := config.LoadEnv(); err != nil {
			return err
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		setLogFlags(verbose || strings.EqualFold(cfg.Logging.Level, "debug"))
		return nil
	},
}

func setLogFlags(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(claimsCmd)
	rootCmd.AddCommand(collectCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("claimcheck", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/claimcheck/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, the detection provider, and API keys.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and claim status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetClaimStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		schema, err := db.SchemaVersion()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}

		fmt.Printf("Database: %s (schema v%d)\n\n", db.Path(), schema)
		fmt.Println("Claims:")
		fmt.Printf("  Total: %s\n", humanize.Comma(int64(stats.Total)))
		fmt.Printf("  Fake: %d\n", stats.Fake)
		fmt.Printf("  Real: %d\n", stats.Real)
		fmt.Printf("  Unverified: %d\n", stats.Unverified)
		fmt.Printf("  Flagged: %d\n", stats.Flagged)
		fmt.Printf("  Average confidence: %.2f\n", stats.AverageConfidence)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API and dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		uploadDir := cfg.GetUploadDir()
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			return fmt.Errorf("creating upload directory: %w", err)
		}

		hub := server.NewHub()
		svc := newService(db, hub)

		srv, err := server.New(svc, newDetector(), server.Options{
			Hub:            hub,
			UploadDir:      uploadDir,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if spec := cfg.Schedule.Collect; spec != "" {
			sched, err := collect.Schedule(ctx, spec, collect.NewCollector(cfg, svc))
			if err != nil {
				return fmt.Errorf("scheduling collection: %w", err)
			}
			// Runs before db.Close: a collection in flight must finish first.
			defer func() {
				stop()
				<-sched.Stop().Done()
			}()
		}

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))

		fmt.Printf("Starting server at http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, addr)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- classify command ---

var (
	classifyLink string
	classifyJSON bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify text or a linked page without storing it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) > 0 {
			text = args[0]
		}
		if text == "" && classifyLink == "" {
			return fmt.Errorf("provide text or --link")
		}

		svc := claims.NewService(nil, analysis.NewClassifier(analysis.NewVaderSentiment()), claims.Options{
			Extractor: newExtractor(),
		})
		r := svc.Classify(cmd.Context(), text, classifyLink)

		if classifyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}

		fmt.Printf("Verdict: %s (confidence %.2f)\n", r.Verdict, r.Confidence)
		fmt.Printf("Reason: %s\n", r.Reason)
		if len(r.FakeIndicators) > 0 {
			fmt.Printf("Suspicious: %s\n", strings.Join(r.FakeIndicators, ", "))
		}
		if len(r.RealIndicators) > 0 {
			fmt.Printf("Credible: %s\n", strings.Join(r.RealIndicators, ", "))
		}
		fmt.Printf("Sentiment: %.2f  Exclamations: %d  Caps: %.2f  Words: %d\n",
			r.Sentiment, r.ExclamationCount, r.CapsRatio, r.WordCount)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyLink, "link", "l", "", "Fetch and classify this URL when no text is given")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print the full analysis as JSON")
}

// --- claims command ---

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and review stored claims",
}

var (
	listFilter string
	listQuery  string
	listLimit  int
)

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored claims, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := newService(db, nil).List(database.ClaimFilter{
			Status: listFilter,
			Query:  listQuery,
			Limit:  listLimit,
		})
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No claims found.")
			return nil
		}

		for _, c := range items {
			flag := " "
			if c.IsFlagged {
				flag = "!"
			}
			fmt.Printf("%s %s  %-10s %.2f  %s\n", flag, c.ID, c.Verdict, c.Confidence, summary(c))
		}
		return nil
	},
}

var claimsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a claim and its analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newService(db, nil).Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID: %s\n", c.ID)
		fmt.Printf("Submitted: %s (%s)\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), humanize.Time(c.CreatedAt))
		if c.Source != "" {
			fmt.Printf("Source: %s\n", c.Source)
		}
		if c.Link != "" {
			fmt.Printf("Link: %s\n", c.Link)
		}
		if c.MediaURL != "" {
			fmt.Printf("Media: %s (%s)\n", c.MediaURL, c.MediaType)
		}
		fmt.Printf("Verdict: %s (confidence %.2f)\n", c.Verdict, c.Confidence)
		fmt.Printf("Reason: %s\n", c.Analysis.Reason)
		if c.IsFlagged {
			fmt.Printf("Flagged by %s: %s\n", c.FlaggedBy, c.FlagNotes)
		}
		if c.Text != "" {
			fmt.Printf("\n%s\n", c.Text)
		}
		return nil
	},
}

var (
	flagNotes string
	flagBy    string
)

var claimsFlagCmd = &cobra.Command{
	Use:   "flag [id]",
	Short: "Flag a claim for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newService(db, nil).Flag(args[0], flagNotes, flagBy)
		if err != nil {
			return err
		}
		fmt.Printf("Flagged %s (by %s)\n", c.ID, c.FlaggedBy)
		return nil
	},
}

var claimsUnflagCmd = &cobra.Command{
	Use:   "unflag [id]",
	Short: "Clear a claim's review flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newService(db, nil).Unflag(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Unflagged %s\n", c.ID)
		return nil
	},
}

func init() {
	claimsListCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "all, real, fake, unverified or flagged")
	claimsListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Search text or link")
	claimsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of claims (0 for all)")
	claimsFlagCmd.Flags().StringVar(&flagNotes, "notes", "", "Review notes (Markdown)")
	claimsFlagCmd.Flags().StringVar(&flagBy, "by", "", "Reviewer name")

	claimsCmd.AddCommand(claimsListCmd)
	claimsCmd.AddCommand(claimsShowCmd)
	claimsCmd.AddCommand(claimsFlagCmd)
	claimsCmd.AddCommand(claimsUnflagCmd)
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Classify new items from the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting claims from sources...")
		result := collect.NewCollector(cfg, newService(db, nil)).Collect(cmd.Context())

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New claims: %d\n", result.NewClaims)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.Failed > 0 {
			fmt.Printf("  Failed: %d\n", result.Failed)
		}

		if len(result.Verdicts) > 0 {
			fmt.Println("\nVerdicts:")
			for _, v := range []analysis.Verdict{analysis.VerdictFake, analysis.VerdictReal, analysis.VerdictUnverified} {
				fmt.Printf("  %s: %d\n", v, result.Verdicts[v])
			}
		}

		if len(result.Sources) > 0 {
			fmt.Println("\nClaims by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "claimcheck.db")
	return database.Open(dbPath)
}

func newExtractor() *fetch.Extractor {
	return fetch.NewExtractor(fetch.Options{
		Timeout:           cfg.FetchTimeout(),
		UserAgent:         cfg.Extract.UserAgent,
		MaxChars:          cfg.Extract.MaxChars,
		RespectRobots:     cfg.Extract.RespectRobots,
		RequestsPerSecond: cfg.Extract.RequestsPerSecond,
		Burst:             cfg.Extract.Burst,
		CacheTTL:          cfg.CacheTTL(),
	})
}

func newService(db *database.DB, pub claims.Publisher) *claims.Service {
	return claims.NewService(db, analysis.NewClassifier(analysis.NewVaderSentiment()), claims.Options{
		Extractor:     newExtractor(),
		Publisher:     pub,
		UploadDir:     cfg.GetUploadDir(),
		MaxMediaBytes: cfg.MaxUploadBytes(),
	})
}

func newDetector() *llm.Detector {
	provider := llm.CreateProvider(llm.Options{
		Provider:    cfg.Detect.Provider,
		Model:       cfg.Detect.Model,
		OllamaURL:   cfg.Detect.OllamaURL,
		OpenAIModel: cfg.Detect.OpenAIModel,
		APIKey:      os.Getenv(cfg.Detect.APIKeyEnv),
	})
	return llm.NewDetector(provider, cfg.Detect.MaxTokens)
}

func summary(c database.Claim) string {
	s := c.Text
	if s == "" {
		s = c.Link
	}
	if s == "" {
		s = "(media)"
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		s = string(r[:60]) + "..."
	}
	return s
}
