package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/agowa/dbatools/cmd/cli/internal/config"
	"github.com/agowa/dbatools/cmd/cli/internal/constraint"
	"github.com/agowa/dbatools/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	version    = "0.1.0"
	// Build information, set with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	appLogger = logger.New("dbatools", version)
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("dbatools v%s (build %s)\n", version, Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbatools",
	Short: "SQL Server administration tools",
	Long: "Command line tools for SQL Server administrators, starting with a check of whether databases " +
		"can be migrated to another instance without losing edition-restricted features.",
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	// Already reported through the logger.
	if !errors.Is(err, constraint.ErrReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.ExpandEnv("$HOME/.dbatools/config.yaml"), "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	cobra.OnInitialize(func() {
		if verbose {
			appLogger.SetLevel(logger.LevelDebug)
		}
		if err := config.Init(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
			os.Exit(1)
		}
	})

	setupCommands()

	setupCompletion()
}

func main() {
	Execute()
}
