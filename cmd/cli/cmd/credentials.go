package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/agowa/dbatools/cmd/cli/internal/config"
	"github.com/agowa/dbatools/pkg/keyring"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// credentialsCmd represents the credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored SQL login passwords",
	Long: "Store SQL login passwords in the system keyring, or in an encrypted file when no keyring " +
		"is available, so --use-keyring can connect without prompting. The file keyring location and " +
		"master password come from DBATOOLS_KEYRING_PATH and DBATOOLS_KEYRING_PASSWORD.",
}

// setCredentialsCmd represents the set command
var setCredentialsCmd = &cobra.Command{
	Use:   "set [instance] [user]",
	Short: "Store the password of a SQL login",
	Long:  `Store the password of a SQL login for an instance. The password is read from the terminal.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		instance, user := args[0], args[1]

		fmt.Fprintf(os.Stderr, "Password for %s on %s: ", user, instance)
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %v", err)
		}

		km := config.KeyringManager()
		if err := km.Set(config.KeyringService(), keyring.CredentialKey(instance, user), string(passwordBytes)); err != nil {
			return fmt.Errorf("failed to store password: %w", err)
		}

		backend := "system keyring"
		if km.UsesFile() {
			backend = "file keyring"
		}
		fmt.Printf("Stored password for %s on %s in the %s\n", user, instance, backend)
		return nil
	},
}

// deleteCredentialsCmd represents the delete command
var deleteCredentialsCmd = &cobra.Command{
	Use:   "delete [instance] [user]",
	Short: "Remove a stored SQL login password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		instance, user := args[0], args[1]
		if err := config.KeyringManager().Delete(config.KeyringService(), keyring.CredentialKey(instance, user)); err != nil {
			return fmt.Errorf("failed to delete password: %w", err)
		}
		fmt.Printf("Removed password for %s on %s\n", user, instance)
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(setCredentialsCmd)
	credentialsCmd.AddCommand(deleteCredentialsCmd)
}
