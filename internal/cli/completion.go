package cli

import (
	"github.com/spf13/cobra"
)

// Extensions offered when completing an input argument.
var (
	sourceExts  = []string{"tex", "tikz"}
	diagramExts = []string{"json"}
	anyExts     = append(append([]string{}, sourceExts...), diagramExts...)
)

// completeInput completes the single input argument of a command with files
// of the given extensions. Only the first argument is completed; "-" and
// share URLs are typed by hand.
func completeInput(exts ...string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for quiverkit.

Input arguments complete to diagram files: .tex and .tikz sources for
import, compact .json diagrams for export, encode, decode and dot, and
both for inspect.

Bash:
  $ source <(quiverkit completion bash)

Zsh:
  $ quiverkit completion zsh > "${fpath[1]}/_quiverkit"

Fish:
  $ quiverkit completion fish > ~/.config/fish/completions/quiverkit.fish

PowerShell:
  PS> quiverkit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
