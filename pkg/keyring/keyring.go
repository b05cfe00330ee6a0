package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service SQL logins are stored under.
const DefaultService = "dbatools"

// ErrNotFound is returned when no secret is stored for a service/user pair.
var ErrNotFound = errors.New("secret not found in keyring")

// Backend selects where secrets are stored.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendSystem Backend = "system"
	BackendFile   Backend = "file"
)

// FileKeyring implements a file-based keyring for headless servers
type FileKeyring struct {
	keyringPath string
	masterKey   []byte
}

// KeyringEntry represents a stored keyring entry
type KeyringEntry struct {
	Service string `json:"service"`
	User    string `json:"user"`
	Data    string `json:"data"` // encrypted data
}

// KeyringManager provides a unified interface for keyring operations
type KeyringManager struct {
	fileKeyring *FileKeyring
	useFile     bool
}

// NewKeyringManager creates a keyring manager for the backend. BackendAuto tries the
// system keyring first and falls back to the file keyring.
func NewKeyringManager(backend Backend, keyringPath, masterPassword string) *KeyringManager {
	switch backend {
	case BackendFile:
		return &KeyringManager{fileKeyring: NewFileKeyring(keyringPath, masterPassword), useFile: true}
	case BackendSystem:
		return &KeyringManager{useFile: false}
	}

	// Probe the system keyring with a timeout; some headless sessions hang on D-Bus.
	done := make(chan error, 1)
	go func() {
		testService := DefaultService + "-probe"
		err := keyring.Set(testService, "probe", "probe")
		if err == nil {
			keyring.Delete(testService, "probe")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return &KeyringManager{useFile: false}
		}
	case <-time.After(5 * time.Second):
	}

	return &KeyringManager{
		fileKeyring: NewFileKeyring(keyringPath, masterPassword),
		useFile:     true,
	}
}

// NewFileKeyring creates a new file-based keyring
func NewFileKeyring(keyringPath, masterPassword string) *FileKeyring {
	os.MkdirAll(filepath.Dir(keyringPath), 0o700)

	hash := sha256.Sum256([]byte(masterPassword))

	return &FileKeyring{
		keyringPath: keyringPath,
		masterKey:   hash[:],
	}
}

// UsesFile reports whether secrets go to the file keyring.
func (km *KeyringManager) UsesFile() bool {
	return km.useFile
}

// Set stores a value in the keyring (system or file)
func (km *KeyringManager) Set(service, user, password string) error {
	if !km.useFile {
		return keyring.Set(service, user, password)
	}
	return km.fileKeyring.Set(service, user, password)
}

// Get retrieves a value from the keyring (system or file)
func (km *KeyringManager) Get(service, user string) (string, error) {
	if !km.useFile {
		v, err := keyring.Get(service, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return v, err
	}
	return km.fileKeyring.Get(service, user)
}

// Delete removes a value from the keyring (system or file)
func (km *KeyringManager) Delete(service, user string) error {
	if !km.useFile {
		err := keyring.Delete(service, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return km.fileKeyring.Delete(service, user)
}

// CredentialKey is the keyring user under which the password of login on instance is stored.
func CredentialKey(instance, login string) string {
	return strings.ToLower(strings.TrimSpace(instance)) + ":" + strings.TrimSpace(login)
}

// encrypt encrypts plaintext using AES-GCM
func (fk *FileKeyring) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts ciphertext using AES-GCM
func (fk *FileKeyring) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt keyring entry (wrong master password?): %w", err)
	}

	return string(plaintext), nil
}

func (fk *FileKeyring) load() (map[string]KeyringEntry, error) {
	entries := make(map[string]KeyringEntry)

	data, err := os.ReadFile(fk.keyringPath)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring file: %w", err)
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keyring file: %w", err)
	}
	return entries, nil
}

func (fk *FileKeyring) save(entries map[string]KeyringEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(fk.keyringPath, data, 0o600)
}

// Set stores an entry in the file keyring
func (fk *FileKeyring) Set(service, user, password string) error {
	entries, err := fk.load()
	if err != nil {
		return err
	}

	encryptedPassword, err := fk.encrypt(password)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s", service, user)
	entries[key] = KeyringEntry{
		Service: service,
		User:    user,
		Data:    encryptedPassword,
	}

	return fk.save(entries)
}

// Get retrieves an entry from the file keyring
func (fk *FileKeyring) Get(service, user string) (string, error) {
	entries, err := fk.load()
	if err != nil {
		return "", err
	}

	entry, exists := entries[fmt.Sprintf("%s:%s", service, user)]
	if !exists {
		return "", ErrNotFound
	}

	return fk.decrypt(entry.Data)
}

// Delete removes an entry from the file keyring
func (fk *FileKeyring) Delete(service, user string) error {
	entries, err := fk.load()
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s", service, user)
	if _, exists := entries[key]; !exists {
		return nil
	}
	delete(entries, key)

	return fk.save(entries)
}

// GetMasterPasswordFromEnv gets the file keyring master password from the environment
func GetMasterPasswordFromEnv() string {
	return os.Getenv("DBATOOLS_KEYRING_PASSWORD")
}

// GetDefaultKeyringPath returns the default keyring file path
func GetDefaultKeyringPath() string {
	if path := os.Getenv("DBATOOLS_KEYRING_PATH"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dbatools-keyring.json")
	}
	return filepath.Join(homeDir, ".local", "share", "dbatools", "keyring.json")
}
