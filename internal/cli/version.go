package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(w).Encode(CLIResponse{
					Status: "ok",
					Data: map[string]string{
						"version": Version,
						"commit":  Commit,
						"date":    Date,
					},
				})
			}
			fmt.Fprintf(w, "italics %s\n", Version)
			fmt.Fprintf(w, "Commit: %s\n", Commit)
			fmt.Fprintf(w, "Built: %s\n", Date)
			return nil
		},
	}
}
