package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/italics/internal/classification"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/settings/notify"
)

// ErrSaveFailed is returned when the settings backend did not persist a
// change. The store itself only logs the cause.
var ErrSaveFailed = errors.New("saving classification settings failed")

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the classifications drawn in italics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			return writeSet(cmd.OutOrStdout(), rootOpts.Format, a.Store().Current(), false)
		},
	}
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>...",
		Short: "Replace the classifications drawn in italics",
		Long: `Replace the whole set. Arguments may also be comma-separated lists:

  italics set comment keyword.control
  italics set "comment, keyword.control"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, rootOpts, func(classification.Set) classification.Set {
				return classification.ParseList(strings.Join(args, ","))
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Draw a classification in italics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return fmt.Errorf("classification name must not be blank")
			}
			return mutate(cmd, rootOpts, func(current classification.Set) classification.Set {
				return current.With(args[0])
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Stop drawing a classification in italics",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, rootOpts, func(current classification.Set) classification.Set {
				return current.Without(args[0])
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Draw no classification in italics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, rootOpts, func(classification.Set) classification.Set {
				return classification.Empty()
			})
		},
	}
}

// mutate applies fn to the stored set and saves the result. Nothing is
// written when the set is unchanged.
func mutate(cmd *cobra.Command, rootOpts *RootOptions, fn func(classification.Set) classification.Set) error {
	a, err := openApp(rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	store := a.Store()
	current := store.Current()
	next := fn(current)

	changed := !next.Equal(current)
	if changed {
		store.Update(next.Names())
		if !saveDurably(store) {
			return ErrSaveFailed
		}
	}
	return writeSet(cmd.OutOrStdout(), rootOpts.Format, store.Current(), changed)
}

// saveDurably saves and reports whether the store confirmed it. Subscribers
// are notified synchronously and only after the backend write succeeded.
func saveDurably(store *settings.Store) bool {
	saved := false
	sub := store.Subscribe(func(change notify.Change) {
		if change.Type == notify.ChangeSaved {
			saved = true
		}
	})
	defer sub.Unsubscribe()

	store.Save()
	return saved
}
