package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/output"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/pkg/lru"

	"github.com/spf13/cobra"
)

// FollowSeenCapacity bounds the set of entry ids remembered while
// following, so long sessions don't grow without limit.
const FollowSeenCapacity = 10000

var (
	streamFlags  viewFlags
	streamFollow bool
	streamOlder  int
)

var streamCmd = &cobra.Command{
	Use:   "stream [source]",
	Short: "Print log entries, optionally following new ones",
	Long: `Print the entries of a log view in time order.

The newest page is loaded first; --older walks back through history.
With --follow the newest page is refreshed every --interval and new
entries are printed as they arrive, like 'tail -f'.

Examples:
  # Latest entries of the default source
  skein stream

  # Errors mentioning "timeout" in the last two hours
  skein stream @prod --service api -f timeout -s 2h

  # Follow a local file
  skein stream ./app.jsonl --follow

  # Five pages of history as CSV
  skein stream @prod --older 5 -o csv`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamFlags.register(streamCmd)
	streamCmd.Flags().BoolVar(&streamFollow, "follow", false, "Keep polling and print new entries")
	streamCmd.Flags().IntVar(&streamOlder, "older", 0, "Number of older pages to load before printing")
}

func runStream(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	format, err := output.ParseFormat(app.Config.OutputFormat)
	if err != nil {
		return err
	}

	src, alias, err := app.OpenSource(args)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	fp, warnings, err := streamFlags.fingerprint(alias, time.Now())
	if err != nil {
		_ = src.Close()
		return err
	}
	for _, w := range warnings {
		app.Render.Warning("%s", w)
	}

	v := stream.NewViewer(src,
		stream.WithLogger(app.Logger),
		stream.WithInterval(streamFlags.pollInterval(app)),
		stream.WithFingerprint(fp),
	)
	defer func() { _ = v.Close() }()

	formatter := output.NewFormatter(format, cmd.OutOrStdout(), app.RenderOptions()...).
		WithHighlight(fp.Search)

	app.Render.Status("Reading %s %s...", src.Metadata().URI, fp)
	if err := load(cmd.Context(), v, streamOlder); err != nil {
		return err
	}

	if !streamFollow {
		return formatter.FormatEntries(v.DisplaySequence())
	}

	app.Render.Status("Following (Ctrl+C to stop)...")
	return follow(cmd.Context(), app, v, formatter)
}

// load syncs the newest pages of the view and then up to older pages of
// history.
func load(ctx context.Context, v *stream.Viewer, older int) error {
	if err := v.Sync(ctx); err != nil {
		return fmt.Errorf("load newest page: %w", err)
	}
	for i := 0; i < older; i++ {
		err := v.LoadOlder(ctx)
		if errors.Is(err, stream.ErrNoOlderPages) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load older page: %w", err)
		}
	}
	return nil
}

// follow prints the current sequence and then every entry that shows up
// after it until ctx is done. Fetch errors are reported and polling goes on.
func follow(ctx context.Context, app *App, v *stream.Viewer, formatter *output.Formatter) error {
	seen := lru.New[uuid.UUID](FollowSeenCapacity)

	updates, unsubscribe := v.Subscribe()
	defer unsubscribe()

	if err := printNew(formatter, v.DisplaySequence(), seen); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = v.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Err != nil {
				app.Render.Warning("fetch failed: %v", u.Err)
				continue
			}
			if err := printNew(formatter, v.DisplaySequence(), seen); err != nil {
				return err
			}
		}
	}
}

// printNew prints the entries at the end of entries that have not been
// printed yet. New entries only ever appear after the ones already shown,
// so the scan stops at the first known id.
func printNew(formatter *output.Formatter, entries []source.LogEntry, seen *lru.Cache[uuid.UUID]) error {
	start := len(entries)
	for start > 0 && !seen.Contains(entries[start-1].ID) {
		start--
	}
	for _, e := range entries[start:] {
		if !seen.Add(e.ID) {
			continue
		}
		if err := formatter.WriteEntry(e); err != nil {
			return err
		}
	}
	return nil
}
