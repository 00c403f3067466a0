package cli

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/italics/internal/app"
	"github.com/dshills/italics/internal/preview"
	"github.com/dshills/italics/internal/settings/notify"
	"github.com/dshills/italics/internal/theme"
)

// PreviewOptions holds preview command flags.
type PreviewOptions struct {
	Theme string
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show a theme's classifications with the current italics",
		Long: `Draw every classification of a theme in its style. Entries marked * are
italic. Settings edited elsewhere mark the view stale; press f to refocus
the view and apply them, q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Theme, "theme", "t", "", fmt.Sprintf("theme (%v)", theme.Names()))
	return cmd
}

func runPreview(rootOpts *RootOptions, opts *PreviewOptions) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	name := opts.Theme
	if name == "" {
		name = cfg.Preview.Theme
	}
	th, err := theme.ByName(name)
	if err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	screen, err := rootOpts.newScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}

	table := th.NewTable()
	v, _, err := a.OpenView(th.Name, table)
	if err != nil {
		return err
	}
	v.Focus()

	p := preview.New(screen, table, th, a.Logger())
	p.OnKey = func(ev *tcell.EventKey) {
		if ev.Rune() == 'f' {
			v.Blur()
			v.Focus()
		}
	}

	sub := a.Store().Subscribe(func(notify.Change) { p.Refresh() })
	defer sub.Unsubscribe()

	if rootOpts.onPreview != nil {
		rootOpts.onPreview(p)
	}

	return p.Run()
}
