package cmd

import (
	"fmt"
	"time"

	skerrors "github.com/jmurray2011/skein/internal/errors"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/pkg/timeutil"

	"github.com/spf13/cobra"
)

// viewFlags are the filter dimensions shared by stream and view.
type viewFlags struct {
	service    string
	deployment string
	filter     string
	since      string
	until      string
	interval   time.Duration
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.service, "service", "", "Service identity (defaults to the alias's service)")
	cmd.Flags().StringVar(&f.deployment, "deployment", "", "Deployment identity (CloudWatch: log stream)")
	cmd.Flags().StringVarP(&f.filter, "filter", "f", "", "Only entries containing this text (case-insensitive)")
	cmd.Flags().StringVarP(&f.since, "since", "s", "", "Start time (e.g., 2h, 30m, 2025-12-02T06:00:00Z)")
	cmd.Flags().StringVarP(&f.until, "until", "u", "", "End time (e.g., now, 1h, 2025-12-02)")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "Refresh interval of the newest page (default poll_interval)")
}

// fingerprint builds the view identity from the flags, using the alias's
// identities where no flag is given.
func (f *viewFlags) fingerprint(alias source.SourceAlias, now time.Time) (source.Fingerprint, []string, error) {
	fp := source.Fingerprint{
		Service:    alias.Service,
		Deployment: alias.Deployment,
		Search:     f.filter,
	}
	if f.service != "" {
		fp.Service = f.service
	}
	if f.deployment != "" {
		fp.Deployment = f.deployment
	}

	var err error
	if fp.Start, err = timeutil.ParseAt(f.since, now); err != nil {
		return fp, nil, skerrors.InvalidTimeError(f.since)
	}
	if fp.End, err = timeutil.ParseAt(f.until, now); err != nil {
		return fp, nil, skerrors.InvalidTimeError(f.until)
	}

	warnings, err := timeutil.ValidateRange(fp.Start, fp.End, now)
	if err != nil {
		return fp, nil, fmt.Errorf("invalid time range: %w", err)
	}
	return fp, warnings, nil
}

// pollInterval returns the flag value or the configured interval.
func (f *viewFlags) pollInterval(app *App) time.Duration {
	if f.interval > 0 {
		return f.interval
	}
	return app.Config.PollInterval
}

// completeSources offers configured aliases for the source argument.
func completeSources(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := source.LoadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	var names []string
	for _, name := range cfg.Names() {
		names = append(names, "@"+name+"\t"+cfg.Sources[name].URI)
	}
	return names, cobra.ShellCompDirectiveDefault
}
