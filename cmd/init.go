package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmurray2011/skein/internal/source"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize skein configuration",
	Long: `Create the default settings file and an example aliases file.

  ~/.skein.yaml          output, poll_interval, page_size, verbose
  ~/.skein/config.yaml   source aliases

Existing files are left alone unless --force is given.

Examples:
  skein init
  skein init --force`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config files")
}

func runInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	out := cmd.OutOrStdout()
	settingsPath := filepath.Join(home, ".skein.yaml")
	aliasesPath := source.ConfigPath()

	if err := createFileIfNotExists(out, settingsPath, generateDefaultConfig(), initForce); err != nil {
		return err
	}
	if err := createFileIfNotExists(out, aliasesPath, generateAliasConfig(), initForce); err != nil {
		return err
	}

	fmt.Fprintln(out, "Initialized skein configuration:")
	fmt.Fprintf(out, "  Settings: %s\n", settingsPath)
	fmt.Fprintf(out, "  Aliases:  %s\n", aliasesPath)
	return nil
}

func generateDefaultConfig() string {
	return `# skein settings

# Default output format: text, json, csv
output: text

# How often the newest page is refreshed while following
poll_interval: 5s

# Entries per page for local files
page_size: 100

# Log fetches and cache decisions to stderr
verbose: false

# Minimum level of engine logs on stderr: debug, info, warn, error
log_level: warn

# AWS defaults for cloudwatch:// sources
# profile: my-aws-profile
# region: us-east-1
`
}

const aliasExample = `sources:
  prod:
    uri: https://logs.example.com/api/{service}/logs
    service: api
    # headers:
    #   Cookie: session=...
  local:
    uri: file:///var/log/app.jsonl

default_source: prod`

func generateAliasConfig() string {
	return "# skein source aliases\n\n" + aliasExample + "\n"
}

func createFileIfNotExists(out io.Writer, path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "  %s already exists (use --force to overwrite)\n", path)
			return nil
		}
	}

	// Create parent directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(out, "  Created %s\n", path)
	return nil
}
