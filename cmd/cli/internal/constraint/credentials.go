package constraint

import (
	"errors"
	"fmt"
	"os"

	"github.com/agowa/dbatools/pkg/keyring"
	"github.com/agowa/dbatools/pkg/sqlserver"
	"golang.org/x/term"
)

// SecretStore is the part of the keyring the resolver reads.
type SecretStore interface {
	Get(service, user string) (string, error)
}

// PromptFunc asks the user for a secret.
type PromptFunc func(label string) (string, error)

// CredentialResolver fills in SQL login passwords. A password given on the
// command line wins, then the keyring (when enabled), then an interactive prompt.
type CredentialResolver struct {
	Keyring SecretStore
	Service string
	Prompt  PromptFunc
}

// Resolve returns the credentials for login user on address. An empty user means
// integrated authentication or a login embedded in a sqlserver:// address.
func (c *CredentialResolver) Resolve(address, user, password string, useKeyring bool) (sqlserver.Credentials, error) {
	if user == "" {
		return sqlserver.Credentials{}, nil
	}
	creds := sqlserver.Credentials{Username: user, Password: password}
	if password != "" || c == nil {
		return creds, nil
	}

	if useKeyring && c.Keyring != nil {
		service := c.Service
		if service == "" {
			service = keyring.DefaultService
		}
		secret, err := c.Keyring.Get(service, keyring.CredentialKey(address, user))
		switch {
		case err == nil:
			creds.Password = secret
			return creds, nil
		case !errors.Is(err, keyring.ErrNotFound):
			return creds, fmt.Errorf("read password for %s on %s from keyring: %w", user, address, err)
		}
	}

	if c.Prompt != nil {
		secret, err := c.Prompt(fmt.Sprintf("Password for %s on %s: ", user, address))
		if err != nil {
			return creds, fmt.Errorf("read password for %s on %s: %w", user, address, err)
		}
		creds.Password = secret
	}
	return creds, nil
}

// TerminalPrompt reads a password without echo when stdin is a terminal. Otherwise
// it returns an empty password and the server decides.
func TerminalPrompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, label)
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}
