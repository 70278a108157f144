package cmd

import (
	"context"
	"os"
	"time"

	skerrors "github.com/jmurray2011/skein/internal/errors"
	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appContextKey is the context key for the App instance.
type appContextKey struct{}

// Config holds the settings shared by all commands.
type Config struct {
	Profile      string
	Region       string
	OutputFormat string
	PollInterval time.Duration
	PageSize     int
	Verbose      bool
	NoColor      bool
	Quiet        bool
}

// App holds the application dependencies that can be injected for testing.
type App struct {
	Config Config
	Render *ui.Renderer
	Logger logging.Logger
}

// NewApp creates a new App with default configuration from viper.
func NewApp() *App {
	cfg := Config{
		Profile:      viper.GetString("profile"),
		Region:       viper.GetString("region"),
		OutputFormat: viper.GetString("output"),
		PollInterval: viper.GetDuration("poll_interval"),
		PageSize:     viper.GetInt("page_size"),
		Verbose:      IsVerbose(),
		NoColor:      noColor || os.Getenv("NO_COLOR") != "",
		Quiet:        quiet,
	}
	if profile != "" {
		cfg.Profile = profile
	}
	if region != "" {
		cfg.Region = region
	}
	if outputFormat != "" {
		cfg.OutputFormat = outputFormat
	}

	r := render
	if r == nil {
		r = ui.NewRendererWithOptions(ui.WithNoColor(cfg.NoColor), ui.WithQuiet(cfg.Quiet))
	}
	return NewAppWithConfig(cfg, r, logging.Default())
}

// NewAppWithConfig creates a new App with the given configuration.
// This is primarily used for testing.
func NewAppWithConfig(cfg Config, renderer *ui.Renderer, logger logging.Logger) *App {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = stream.DefaultInterval
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &App{
		Config: cfg,
		Render: renderer,
		Logger: logger,
	}
}

// GetApp retrieves the App from the command context.
// If no App is set, it creates a new default one.
func GetApp(cmd *cobra.Command) *App {
	if ctx := cmd.Context(); ctx != nil {
		if app, ok := ctx.Value(appContextKey{}).(*App); ok {
			return app
		}
	}
	return NewApp()
}

// SetApp stores the App in the context for a command.
func SetApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// Debugf logs a debug message; it is shown in verbose mode.
func (a *App) Debugf(format string, args ...interface{}) {
	a.Logger.Debug(format, args...)
}

// RenderOptions returns the renderer options for entry output.
func (a *App) RenderOptions() []ui.Option {
	return []ui.Option{ui.WithNoColor(a.Config.NoColor), ui.WithQuiet(a.Config.Quiet)}
}

// OpenSource opens the source named by args, falling back to the configured
// default source. The returned alias carries the alias's default identities
// and is empty for plain URIs.
func (a *App) OpenSource(args []string) (source.Source, source.SourceAlias, error) {
	uri := ""
	if len(args) > 0 {
		uri = args[0]
	}

	if uri == "" {
		cfg, err := source.LoadConfig()
		if err != nil {
			return nil, source.SourceAlias{}, err
		}
		if cfg.DefaultSource == "" {
			return nil, source.SourceAlias{}, skerrors.NoSourceError()
		}
		uri = "@" + cfg.DefaultSource
	}

	target, err := source.Resolve(uri)
	if err != nil {
		return nil, source.SourceAlias{}, err
	}

	a.Debugf("Opening source %s", target.URI)
	src, err := target.Open(source.OpenOptions{
		Profile:  a.Config.Profile,
		Region:   a.Config.Region,
		PageSize: a.Config.PageSize,
	})
	if err != nil {
		return nil, target.Alias, err
	}
	return src, target.Alias, nil
}
