package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newInitDBCmd creates the 'initdb' subcommand, which applies the
// provenance schema to the configured database.
func newInitDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Creates the harvester tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newHarness(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			if err := h.store.InitSchema(cmd.Context()); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Println("Schema applied.")
			return nil
		},
	}
	return cmd
}
