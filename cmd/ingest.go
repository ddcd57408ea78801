package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"property-hunter/metrics"
	"property-hunter/models"
	"property-hunter/scraper/realestate"
	"property-hunter/services"
	"property-hunter/storage"
)

type ingestOptions struct {
	urls      []string
	pages     int
	pageStart int
	htmlFile  string
	csvPath   string
	noDB      bool
	insights  bool
}

func ingestCommand() *cobra.Command {
	opts := ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch search result pages and store their listings",
		Example: `  property-hunter ingest --url https://www.realestate.com.au/buy/in-richmond,+vic+3121/list-1 --pages 3
  property-hunter ingest --html-file saved-page.html --no-db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.htmlFile == "" && len(opts.urls) == 0 {
				return errors.New("ingest needs --url or --html-file")
			}
			return runIngest(cmd, opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.urls, "url", nil, "search result URL (repeatable)")
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "number of result pages per URL")
	cmd.Flags().IntVar(&opts.pageStart, "page-start", 1, "first result page")
	cmd.Flags().StringVar(&opts.htmlFile, "html-file", "", "extract from a saved page instead of fetching")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "write a CSV snapshot (default CSV_OUTPUT_PATH)")
	cmd.Flags().BoolVar(&opts.noDB, "no-db", false, "skip writing to PostgreSQL")
	cmd.Flags().BoolVar(&opts.insights, "insights", true, "print an insights report")
	return cmd
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	runID := uuid.New().String()
	logger := a.logger.With("run_id", runID)
	logger.Info("=== Ingest run %s starting ===", runID)

	extractor := realestate.NewExtractor(realestate.WithLogger(logger))

	var (
		listings  []models.Listing
		scrapeErr error
	)
	if opts.htmlFile != "" {
		content, err := os.ReadFile(opts.htmlFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.htmlFile, err)
		}
		listings, scrapeErr = extractor.Extract(string(content))
	} else {
		fetcher, closeFetcher := realestate.NewFetcher(a.cfg, logger)
		defer closeFetcher()

		scraper := realestate.NewScraper(a.cfg, fetcher, extractor, logger)
		var errs []error
		for _, seed := range opts.urls {
			res, err := scraper.Scrape(ctx, seed, opts.pageStart, opts.pages)
			listings = append(listings, res.Listings...)
			if err != nil {
				errs = append(errs, err)
			}
		}
		scrapeErr = errors.Join(errs...)
	}

	blocked := errors.Is(scrapeErr, realestate.ErrBlocked)
	if scrapeErr != nil {
		logger.Warn("Some pages failed: %v", scrapeErr)
	}

	cleaned := services.NewCleaner(logger).Clean(listings)
	if len(cleaned) == 0 {
		if blocked {
			return errors.New("blocked by an anti-bot page: re-fetch with different cookies or retry later")
		}
		if scrapeErr != nil {
			return fmt.Errorf("no listings extracted: %w", scrapeErr)
		}
		return errors.New("no listings found")
	}
	logger.Info("Extracted %d listings", len(cleaned))

	csvPath := opts.csvPath
	if csvPath == "" {
		csvPath = a.cfg.CSVOutputPath
	}
	if csvPath != "" {
		csvWriter, err := storage.NewCSVWriter(csvPath)
		if err != nil {
			return err
		}
		if err := writeSnapshot(csvWriter, cleaned); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Listings saved to %s", csvPath)
		}
	}

	if !opts.noDB {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Upsert(ctx, cleaned)
		if err != nil {
			return fmt.Errorf("store listings: %w", err)
		}
		metrics.ListingsUpsertedTotal.Add(float64(n))
		logger.Info("Upserted %d listings into PostgreSQL (table: listings)", n)
	}

	if opts.insights {
		svc := services.NewInsightService(services.NewGeoMatcher(a.ref), logger)
		svc.Print(cmd.OutOrStdout(), svc.Generate(cleaned))
	}
	return nil
}

// writeSnapshot writes listings and always closes w.
func writeSnapshot(w storage.SnapshotWriter, listings []models.Listing) error {
	if err := w.WriteListings(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
