package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hospital-jobs/internal/app"
	"hospital-jobs/internal/config"
	"hospital-jobs/internal/database/seeder"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/scraper"

	"github.com/spf13/cobra"
)

var (
	flagLimit    int
	flagPatterns string
	flagExtract  bool
	flagTimeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Hospital career-page discovery and job ingest",
	Long: `scraper runs the hospital job pipeline outside the HTTP server.

Batch commands talk to the configured store; classify and check-url only
need network access and are meant for probing single sites.`,
	SilenceUsage: true,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one career-page discovery batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			sum, err := c.PipelineUC.RunDiscovery(ctx, limitFlag())
			if err != nil {
				return err
			}
			return printJSON(sum)
		})
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one job scrape batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			sum, err := c.PipelineUC.RunScrape(ctx, limitFlag())
			if err != nil {
				return err
			}
			return printJSON(sum)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c, err := app.NewContainer(cfg, log.Default())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		applied, err := c.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Printf("[Migration] applied=%d", applied)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <roster.yaml>",
	Short: "Insert hospitals from a roster file that are not stored yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := seeder.LoadRoster(args[0])
		if err != nil {
			return err
		}
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			return seeder.Runner{Seeders: []seeder.Seeder{roster}, Logger: c.Logger}.Run(ctx, c.DB)
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <url>",
	Short: "Fetch a career page and print its detected platform",
	Example: `  scraper classify https://klinikum.example/karriere
  scraper classify --extract https://acme.softgarden.io/de/vacancies`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := probeRules()
		if err != nil {
			return err
		}
		fetcher := scraper.NewCollyFetcher(scraper.FetchOptions{UserAgent: config.DefaultUserAgent, Timeout: flagTimeout})

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*flagTimeout)
		defer cancel()

		target := strings.TrimSpace(args[0])
		body := ""
		if page, err := fetcher.Fetch(ctx, target); err != nil {
			log.Printf("classify=fetch url=%s status=error err=%v", target, err)
		} else {
			body = string(page.Body)
		}
		platform := rules.Classify(target, body)

		if !flagExtract {
			fmt.Println(platform)
			return nil
		}

		api := scraper.NewHTTPFetcher(scraper.FetchOptions{UserAgent: config.DefaultUserAgent, Timeout: flagTimeout})
		ex := scraper.NewExtractor(fetcher, api, rules, nil, log.Default())
		out, err := ex.Extract(ctx, target, platform, "")
		if err != nil {
			return err
		}
		return printJSON(struct {
			Classified domain.Platform `json:"classified"`
			scraper.Extraction
		}{Classified: platform, Extraction: out})
	},
}

var checkURLCmd = &cobra.Command{
	Use:   "check-url <url>...",
	Short: "Print whether each URL looks like a single job posting",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := probeRules()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, u := range args {
			verdict := "reject"
			if rules.LooksLikeJobPostingURL(u) {
				verdict = "job"
			}
			fmt.Fprintf(w, "%s\t%s\n", verdict, u)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPatterns, "patterns", os.Getenv("PATTERNS_FILE"), "yaml file with extra pattern table entries")

	discoverCmd.Flags().IntVar(&flagLimit, "limit", 0, "hospitals per batch (0 = configured default)")
	scrapeCmd.Flags().IntVar(&flagLimit, "limit", 0, "hospitals per batch (0 = configured default)")

	classifyCmd.Flags().BoolVar(&flagExtract, "extract", false, "also run extraction and print the records")
	classifyCmd.Flags().DurationVar(&flagTimeout, "timeout", 15*time.Second, "per-request fetch timeout")

	rootCmd.AddCommand(discoverCmd, scrapeCmd, migrateCmd, seedCmd, classifyCmd, checkURLCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func limitFlag() *int {
	if flagLimit <= 0 {
		return nil
	}
	return &flagLimit
}

func withContainer(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := app.NewContainer(cfg, log.Default())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(ctx, c)
}

func probeRules() (*scraper.Rules, error) {
	tables, err := scraper.LoadPatterns(flagPatterns)
	if err != nil {
		return nil, err
	}
	return tables.Compile()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
