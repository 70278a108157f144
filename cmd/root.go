package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jmurray2011/skein/internal/cloudwatch" // Register cloudwatch:// source
	_ "github.com/jmurray2011/skein/internal/httpapi"    // Register http:// and https:// sources
	_ "github.com/jmurray2011/skein/internal/local"      // Register file:// source
	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	profile      string
	region       string
	outputFormat string
	cfgFile      string
	verbose      bool
	noColor      bool
	quiet        bool

	// render is the global renderer for all output
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "skein",
	Short: "Keep a live, scrollable view over paginated logs",
	Long: `skein - a loosely coiled length of yarn. skein pulls log pages from a
paginated backend, keeps the ones it has already seen, and follows new entries
as they arrive.

Source URIs:
  https://host/api/{service}/logs               HTTP log API with cursor links
  cloudwatch:///log-group?profile=x&region=y    AWS CloudWatch Logs stream
  file:///path/to/app.jsonl                     Local JSON-lines file (.zst ok)
  ./app.jsonl                                   Local file (shorthand)
  @alias-name                                   Config alias

Configuration:
  ~/.skein.yaml holds defaults (output, poll_interval, page_size, verbose).
  ~/.skein/config.yaml holds source aliases:

    sources:
      prod:
        uri: https://logs.example.com/api/{service}/logs
        service: api
        headers:
          Cookie: session=...
      local:
        uri: file:///var/log/app.jsonl

    default_source: prod

Examples:
  # Print the latest page of a service
  skein stream @prod --service api

  # Follow new entries matching a search
  skein stream @prod -f timeout --follow

  # Include three older pages, as JSON
  skein stream ./app.jsonl --older 3 -o json

  # Browse interactively
  skein view @prod`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig, initRenderer, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.skein.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Default AWS profile for cloudwatch sources")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "Default AWS region for cloudwatch sources")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, csv")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log fetches and cache decisions")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress status messages")

	// Bind flags to viper
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initRenderer initializes the global renderer with current settings.
func initRenderer() {
	render = ui.NewRendererWithOptions(
		ui.WithNoColor(noColor || os.Getenv("NO_COLOR") != ""),
		ui.WithQuiet(quiet),
	)
}

// initLogging routes engine logs to stderr at log_level. Verbose mode
// forces debug.
func initLogging() {
	level, err := logging.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using warn\n", err)
		level = logging.LevelWarn
	}
	if IsVerbose() {
		level = logging.LevelDebug
	}
	logging.Default().SetLevel(level)
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			// Also check ~/.skein/ directory
			viper.AddConfigPath(home + "/.skein")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".skein")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("SKEIN")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("output", "text")
	viper.SetDefault("poll_interval", "5s")
	viper.SetDefault("page_size", 100)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_level", "warn")

	// Read config file (ignore if not found, warn on other errors)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}
}
