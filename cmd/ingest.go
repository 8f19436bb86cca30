package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/koopa0/helpdesk/internal/app"
	"github.com/koopa0/helpdesk/internal/config"
	"github.com/koopa0/helpdesk/internal/ingest"
)

var (
	ingestMaxDepth int
	ingestMaxPages int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [start-url...]",
	Short: "Scrape support pages and index them into the knowledge store",
	Long: `Ingest crawls the given support sites, extracts article content and
FAQ sections, chunks the text, and indexes everything into the knowledge
store with embeddings. Crawling stays within the domains of the start URLs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestMaxDepth, "max-depth", 2, "maximum crawl depth")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 100, "maximum pages to crawl per site")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := checkRequiredEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	domains := make([]string, 0, len(args))
	for _, raw := range args {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			return fmt.Errorf("invalid start URL %q", raw)
		}
		domains = append(domains, u.Hostname())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	scraper := ingest.NewScraper(ingest.ScraperConfig{
		AllowedDomains: domains,
		MaxDepth:       ingestMaxDepth,
		MaxPages:       ingestMaxPages,
		UserAgent:      cfg.Scraper.UserAgent,
		Delay:          time.Duration(cfg.Scraper.DelayMS) * time.Millisecond,
	}, a.Logger.With("component", "scraper"))

	indexer := ingest.NewIndexer(a.Knowledge, a.Logger.With("component", "indexer"))

	var totalPages, totalDocs int
	for _, start := range args {
		pages, err := scraper.Scrape(ctx, start)
		if err != nil {
			return fmt.Errorf("scraping %s: %w", start, err)
		}
		totalPages += len(pages)

		n, err := indexer.Index(ctx, pages)
		if err != nil {
			return fmt.Errorf("indexing pages from %s: %w", start, err)
		}
		totalDocs += n
	}

	count, err := a.Knowledge.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}

	fmt.Printf("Scraped %d pages, indexed %d documents (%d total in store)\n",
		totalPages, totalDocs, count)

	return nil
}
