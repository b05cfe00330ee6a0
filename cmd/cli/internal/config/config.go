package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agowa/dbatools/pkg/keyring"
	"github.com/agowa/dbatools/pkg/sqlserver"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutput       = "table"
	DefaultQueryTimeout = 60
)

type Config struct {
	Connection   Connection `yaml:"connection"`
	QueryTimeout int        `yaml:"query_timeout"`
	Output       string     `yaml:"output"`
	Parallel     int        `yaml:"parallel"`
	AppName      string     `yaml:"app_name"`
	Keyring      Keyring    `yaml:"keyring"`
}

type Connection struct {
	Port                   int  `yaml:"port"`
	Encrypt                bool `yaml:"encrypt"`
	TrustServerCertificate bool `yaml:"trust_server_certificate"`
	Timeout                int  `yaml:"timeout"`
}

type Keyring struct {
	Service string `yaml:"service"`
	// Backend is one of auto, system or file.
	Backend string `yaml:"backend"`
}

var (
	globalConfig   *Config
	keyringOnce    sync.Once
	keyringManager *keyring.KeyringManager
)

// Default returns the configuration written when no config file exists.
func Default() *Config {
	opts := sqlserver.DefaultOptions()
	return &Config{
		Connection: Connection{
			Port:                   sqlserver.DefaultPort,
			Encrypt:                opts.Encrypt,
			TrustServerCertificate: opts.TrustServerCertificate,
			Timeout:                opts.ConnectTimeoutSeconds,
		},
		QueryTimeout: DefaultQueryTimeout,
		Output:       DefaultOutput,
		Parallel:     1,
		AppName:      opts.AppName,
		Keyring: Keyring{
			Service: keyring.DefaultService,
			Backend: string(keyring.BackendAuto),
		},
	}
}

// Init initializes the configuration from the specified file
func Init(configFile string) error {
	cfg, err := Load(configFile)
	if err != nil {
		return err
	}
	globalConfig = cfg
	return nil
}

// Load reads configFile, creating it with defaults when it does not exist. Keys
// missing from an existing file keep their default values.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	configDir := filepath.Dir(configFile)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		//nolint:gosec // path comes from the --config flag
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}

		if err := os.WriteFile(configFile, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write default config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configFile, err)
	}
	return cfg, nil
}

// Validate rejects values the checker cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output must be table, json or yaml, got %q", c.Output)
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be in [1..65535], got %d", c.Connection.Port)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	switch keyring.Backend(c.Keyring.Backend) {
	case keyring.BackendAuto, keyring.BackendSystem, keyring.BackendFile:
	default:
		return fmt.Errorf("keyring.backend must be auto, system or file, got %q", c.Keyring.Backend)
	}
	return nil
}

// SQLOptions converts the connection section into driver options.
func (c *Config) SQLOptions() sqlserver.Options {
	return sqlserver.Options{
		Encrypt:                c.Connection.Encrypt,
		TrustServerCertificate: c.Connection.TrustServerCertificate,
		ConnectTimeoutSeconds:  c.Connection.Timeout,
		AppName:                c.AppName,
	}
}

// QueryTimeoutDuration is the per-query deadline; zero disables it.
func (c *Config) QueryTimeoutDuration() time.Duration {
	if c.QueryTimeout <= 0 {
		return 0
	}
	return time.Duration(c.QueryTimeout) * time.Second
}

// GetConfig returns the global configuration
func GetConfig() *Config {
	if globalConfig == nil {
		return Default()
	}
	return globalConfig
}

// KeyringManager returns the keyring for stored SQL logins. The system keyring
// probe only runs the first time a command needs it.
func KeyringManager() *keyring.KeyringManager {
	keyringOnce.Do(func() {
		cfg := GetConfig()
		keyringManager = keyring.NewKeyringManager(
			keyring.Backend(cfg.Keyring.Backend),
			keyring.GetDefaultKeyringPath(),
			keyring.GetMasterPasswordFromEnv(),
		)
	})
	return keyringManager
}

// KeyringService returns the configured keyring service name.
func KeyringService() string {
	if s := GetConfig().Keyring.Service; s != "" {
		return s
	}
	return keyring.DefaultService
}
