package cli

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aryankumar/procpool/internal/config"
	"github.com/aryankumar/procpool/internal/output"
)

// completionScripts maps a shell name to its script generator
var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func completionShells() []string {
	shells := make([]string, 0, len(completionScripts))
	for shell := range completionScripts {
		shells = append(shells, shell)
	}
	sort.Strings(shells)
	return shells
}

// newCompletionCmd creates the completion command for generating shell completions
func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for procpool.

Besides commands and flags, the script completes the names of registered
functions after "procpool run", profile names from the config file after
--profile, output formats after -o and failure policies after --policy.

Bash:
  $ source <(procpool completion bash)
  $ procpool completion bash > /etc/bash_completion.d/procpool

Zsh:
  $ procpool completion zsh > "${fpath[1]}/_procpool"

Fish:
  $ procpool completion fish > ~/.config/fish/completions/procpool.fish

PowerShell:
  PS> procpool completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells(),
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// Generating a script needs no config file
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionScripts[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// registerFlagCompletions wires dynamic completion for the root's persistent flags
func registerFlagCompletions(root *cobra.Command) {
	root.RegisterFlagCompletionFunc("profile", completeProfiles)
	root.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		[]string{string(output.FormatTable), string(output.FormatJSON), string(output.FormatYAML)},
		cobra.ShellCompDirectiveNoFileComp,
	))
}

// completeProfiles lists the profiles of the config file named by --config
func completeProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	manager := config.NewManager(cfgFile)
	if _, err := manager.Load(); err != nil {
		cobra.CompDebugln("loading profiles: "+err.Error(), false)
		return nil, cobra.ShellCompDirectiveError
	}
	return manager.ProfileNames(), cobra.ShellCompDirectiveNoFileComp
}
