package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/italics/internal/script"
)

// NewScriptCommand creates the script command.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.lua>",
		Short: "Run a Lua script against the italics settings",
		Long: `Run a Lua script with the italics module available:

  local italics = require("italics")
  italics.add("comment")
  italics.save()`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			runner := script.New(a.Store(),
				script.WithLogger(a.Logger()),
				script.WithOutput(cmd.OutOrStdout()),
				script.WithTimeout(a.Config().Script.Timeout),
			)
			defer runner.Close()

			return runner.DoFile(cmd.Context(), args[0])
		},
	}
}
