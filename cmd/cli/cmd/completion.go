package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// outputFormatCompletion completes the --output flag
func outputFormatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var filtered []string
	for _, f := range []string{"table", "json", "yaml"} {
		if strings.HasPrefix(f, toComplete) {
			filtered = append(filtered, f)
		}
	}
	return filtered, cobra.ShellCompDirectiveNoFileComp
}

// noCompletion disables file completion for flags that take instance or database names
func noCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// setupCustomCompletions adds custom completion functions to commands
func setupCustomCompletions() {
	_ = migrationConstraintCmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)

	for _, flag := range []string{"source", "destination", "database", "exclude-database"} {
		_ = migrationConstraintCmd.RegisterFlagCompletionFunc(flag, noCompletion)
	}

	setCredentialsCmd.ValidArgsFunction = noCompletion
	deleteCredentialsCmd.ValidArgsFunction = noCompletion
}
