package main

import (
	"os"

	"github.com/spf13/cobra"
)

// setupCommands initializes all commands and their relationships
func setupCommands() {
	// Add migration constraint check
	rootCmd.AddCommand(migrationConstraintCmd)

	// Add credentials commands
	rootCmd.AddCommand(credentialsCmd)
}

// setupCompletion adds shell completion support
func setupCompletion() {
	rootCmd.AddCommand(completionCmd)

	setupCustomCompletions()
}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `To load completions:

Bash:
  $ source <(dbatools completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ dbatools completion bash > /etc/bash_completion.d/dbatools
  # macOS:
  $ dbatools completion bash > /usr/local/etc/bash_completion.d/dbatools

Zsh:
  $ source <(dbatools completion zsh)

  # To load completions for each session, execute once:
  $ dbatools completion zsh > "${fpath[1]}/_dbatools"

Fish:
  $ dbatools completion fish | source

  # To load completions for each session, execute once:
  $ dbatools completion fish > ~/.config/fish/completions/dbatools.fish

PowerShell:
  PS> dbatools completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> dbatools completion powershell > dbatools.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletion(os.Stdout)
		}
		return nil
	},
}
