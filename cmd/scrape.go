package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs a bulk
// import bounded by a count of new personalities.
func newScrapeCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Bulk-imports personalities from the source listing",
		Long: `Walks the source listing page by page, extracting celebrity
sociotype records until the requested number of new personalities has
been persisted or the listing is exhausted. Personalities already in
the database gain fresh labels but do not count against the limit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			report, err := h.pipe.BulkImport(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("bulk import: %w", err)
			}

			h.logger.Info("bulk import finished",
				zap.Int("new_personalities", report.PersonalitiesPersisted),
				zap.Int("labels_written", report.LabelsWritten),
				zap.Int("tuples_failed", report.TuplesFailed),
				zap.Int("pages_processed", report.PagesProcessed))
			for _, w := range report.Warnings {
				h.logger.Warn(w)
			}

			fmt.Printf("Persisted %d new personalities (%d labels, %d pages).\n",
				report.PersonalitiesPersisted, report.LabelsWritten, report.PagesProcessed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of new personalities to persist")
	return cmd
}
