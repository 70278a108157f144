package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// completionGenerators writes the completion script for each shell.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completion scripts",
	Long: `Print a completion script for bash, zsh, fish or powershell. Source
arguments complete to the @aliases in ~/.skein/config.yaml.

  bash        source <(skein completion bash)
  zsh         skein completion zsh > "${fpath[1]}/_skein"
  fish        skein completion fish > ~/.config/fish/completions/skein.fish
  powershell  skein completion powershell | Out-String | Invoke-Expression

Start a new shell after installing the script.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             slices.Sorted(maps.Keys(completionGenerators)),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	gen, ok := completionGenerators[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q", args[0])
	}
	return gen(rootCmd, cmd.OutOrStdout())
}
