package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/internal/tui"

	"github.com/spf13/cobra"
)

var viewFlagsVar viewFlags

var viewCmd = &cobra.Command{
	Use:   "view [source]",
	Short: "Browse a log view interactively",
	Long: `Open an interactive viewer that follows new entries while you are at
the bottom and stays put while you read history.

Keys:
  /        search (enter applies, esc cancels)
  o        load older entries
  r        refresh now
  g / G    top / bottom
  q        quit

Examples:
  skein view @prod --service api
  skein view ./app.jsonl -f error`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewFlagsVar.register(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	src, alias, err := app.OpenSource(args)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	fp, warnings, err := viewFlagsVar.fingerprint(alias, time.Now())
	if err != nil {
		_ = src.Close()
		return err
	}
	for _, w := range warnings {
		app.Render.Warning("%s", w)
	}

	// Log lines would tear the alternate screen; errors reach the status
	// bar through LastError instead.
	var logger logging.Logger = logging.NopLogger{}
	if app.Config.Verbose {
		logger = app.Logger
	}

	v := stream.NewViewer(src,
		stream.WithLogger(logger),
		stream.WithInterval(viewFlagsVar.pollInterval(app)),
		stream.WithFingerprint(fp),
	)
	defer func() { _ = v.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() { _ = v.Run(ctx) }()

	return tui.Run(ctx, v, app.RenderOptions()...)
}
