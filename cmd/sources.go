package cmd

import (
	"fmt"
	"strings"

	"github.com/jmurray2011/skein/internal/source"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured source aliases",
	Long: `List the source aliases in ~/.skein/config.yaml.

An alias names a source URI and the service and deployment a view opens
with. Flags on stream and view override the alias defaults.

  sources:
    prod:
      uri: https://logs.example.com/api/{service}/logs
      service: api
      headers:
        Cookie: session=...
    app-stream:
      uri: cloudwatch:///app/api/prod?profile=prod&region=us-east-1
      deployment: web-1

Refer to an alias with an @ prefix:
  skein stream @prod --since 1h -f error
  skein view @app-stream`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

var (
	addService    string
	addDeployment string
	addHeaders    []string
	addDefault    bool
)

var sourcesAddCmd = &cobra.Command{
	Use:   "add <name> <uri>",
	Short: "Add or replace a source alias",
	Long: `Save a source alias to ~/.skein/config.yaml.

The URI is checked before saving; a bare path is stored as a file:// URI.

Examples:
  skein sources add prod https://logs.example.com/api/logs --service api
  skein sources add local ./app.jsonl --default
  skein sources add staging https://staging.example.com/logs -H "Cookie=session=abc"`,
	Args: cobra.ExactArgs(2),
	RunE: runSourcesAdd,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:               "remove <name>",
	Aliases:           []string{"rm"},
	Short:             "Remove a source alias",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runSourcesRemove,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesAddCmd, sourcesRemoveCmd)

	sourcesAddCmd.Flags().StringVar(&addService, "service", "", "Default service for views of this alias")
	sourcesAddCmd.Flags().StringVar(&addDeployment, "deployment", "", "Default deployment for views of this alias")
	sourcesAddCmd.Flags().StringArrayVarP(&addHeaders, "header", "H", nil, "Request header as Name=value (repeatable)")
	sourcesAddCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default source")
}

func runSources(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	cfg, err := source.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		app.Render.Info("No source aliases configured.")
		app.Render.Newline()
		app.Render.Info("Add one with 'skein sources add', or edit %s:", source.ConfigPath())
		app.Render.Newline()
		app.Render.Info("%s", aliasExample)
		return nil
	}

	rows := make([][]string, 0, len(cfg.Sources))
	for _, name := range cfg.Names() {
		s := cfg.Sources[name]
		marker := ""
		if name == cfg.DefaultSource {
			marker = "*"
		}
		rows = append(rows, []string{"@" + name + marker, s.URI, s.Service, s.Deployment})
	}
	app.Render.Table([]string{"ALIAS", "URI", "SERVICE", "DEPLOYMENT"}, rows)

	if cfg.DefaultSource != "" {
		app.Render.Newline()
		app.Render.Info("* default source")
	}
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)
	name, uri := args[0], args[1]

	if strings.HasPrefix(uri, "@") {
		return fmt.Errorf("an alias cannot point at another alias (%s)", uri)
	}
	target, err := source.Resolve(uri)
	if err != nil {
		return err
	}

	headers, err := parseHeaders(addHeaders)
	if err != nil {
		return err
	}

	cfg, err := source.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	alias := source.SourceAlias{
		URI:        target.URI,
		Service:    addService,
		Deployment: addDeployment,
		Headers:    headers,
	}
	if err := cfg.SetAlias(name, alias); err != nil {
		return err
	}
	name = strings.TrimPrefix(name, "@")
	if addDefault {
		cfg.DefaultSource = name
	}

	if err := source.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	app.Render.Success("Saved @%s -> %s", name, target.URI)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)
	name := strings.TrimPrefix(args[0], "@")

	cfg, err := source.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RemoveAlias(name); err != nil {
		return err
	}
	if err := source.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	app.Render.Success("Removed @%s", name)
	return nil
}

// parseHeaders turns Name=value flags into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		k, val, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q (want Name=value)", v)
		}
		headers[strings.TrimSpace(k)] = val
	}
	return headers, nil
}
