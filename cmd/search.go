package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSearchCmd creates the 'search' subcommand, which looks up one
// person by name and stores whatever label the source holds.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search NAME",
		Short: "Searches the source for one person and stores the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")

			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			report, err := h.pipe.SearchPerson(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			for _, w := range report.Warnings {
				h.logger.Warn(w)
			}

			view, err := h.store.LookupPersonality(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("lookup stored personality: %w", err)
			}
			if view == nil {
				fmt.Printf("No sociotype record found for %q.\n", name)
				return nil
			}

			h.logger.Info("search finished",
				zap.String("name", view.Name),
				zap.Int("labels_written", report.LabelsWritten))

			fmt.Printf("%s: %s", view.Name, view.TypeCode)
			if view.DCNH != "" {
				fmt.Printf("-%s", view.DCNH)
			}
			fmt.Printf(" (confidence %.2f, source %s)\n", view.Confidence, view.LabelSource)
			return nil
		},
	}
	return cmd
}
