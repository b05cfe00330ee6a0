package main

import (
	"github.com/agowa/dbatools/cmd/cli/internal/config"
	"github.com/agowa/dbatools/cmd/cli/internal/constraint"
	"github.com/spf13/cobra"
)

var constraintOpts constraint.Options

// migrationConstraintCmd represents the migration-constraint command
var migrationConstraintCmd = &cobra.Command{
	Use:     "migration-constraint",
	Aliases: []string{"test-migration-constraint"},
	Short:   "Check whether databases can be migrated to another instance",
	Long: "Compare the edition-restricted features persisted in each database of the source instance " +
		"with the edition and version of every destination instance, and report which databases can be " +
		"migrated without losing functionality. Multiple --destination flags check the same source " +
		"against each destination in turn.",
	Example: `  dbatools migration-constraint --source sql01 --destination sql02\EXPRESS
  dbatools migration-constraint --source sql01 --destination sql02 --destination sql03 --database sales -o json`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()

		opts := constraintOpts
		if !cmd.Flags().Changed("output") {
			opts.Output = cfg.Output
		}
		if !cmd.Flags().Changed("parallel") {
			opts.Parallel = cfg.Parallel
		}

		runner := &constraint.Runner{
			Dial: constraint.SQLServerDialer(cfg.Connection.Port, cfg.SQLOptions()),
			Credentials: &constraint.CredentialResolver{
				Service: config.KeyringService(),
				Prompt:  constraint.TerminalPrompt,
			},
			Logger:       appLogger,
			Out:          cmd.OutOrStdout(),
			QueryTimeout: cfg.QueryTimeoutDuration(),
		}
		if opts.UseKeyring {
			runner.Credentials.Keyring = config.KeyringManager()
		}

		return runner.Run(cmd.Context(), opts)
	},
}

func init() {
	flags := migrationConstraintCmd.Flags()
	flags.StringVarP(&constraintOpts.Source, "source", "s", "", "Source SQL Server instance")
	flags.StringArrayVarP(&constraintOpts.Destinations, "destination", "d", nil, "Destination SQL Server instance (repeatable)")
	flags.StringVar(&constraintOpts.SourceUser, "source-user", "", "SQL login for the source instance (default: integrated authentication)")
	flags.StringVar(&constraintOpts.SourcePassword, "source-password", "", "Password for --source-user")
	flags.StringVar(&constraintOpts.DestinationUser, "destination-user", "", "SQL login for the destination instances")
	flags.StringVar(&constraintOpts.DestinationPassword, "destination-password", "", "Password for --destination-user")
	flags.StringArrayVar(&constraintOpts.Databases, "database", nil, "Database to check (repeatable, default: all user databases)")
	flags.StringArrayVar(&constraintOpts.ExcludeDatabases, "exclude-database", nil, "Database to skip (repeatable)")
	flags.StringVarP(&constraintOpts.Output, "output", "o", config.DefaultOutput, "Output format: table, json or yaml")
	flags.IntVar(&constraintOpts.Parallel, "parallel", 1, "Number of databases checked concurrently")
	flags.BoolVar(&constraintOpts.EnableException, "enable-exception", false, "Return raw errors and stop at the first failing database")
	flags.BoolVar(&constraintOpts.UseKeyring, "use-keyring", false, "Read missing passwords from the keyring (see 'dbatools credentials')")

	_ = migrationConstraintCmd.MarkFlagRequired("source")
	_ = migrationConstraintCmd.MarkFlagRequired("destination")
}
