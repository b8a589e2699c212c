// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Cairn configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Index     IndexConfig               `mapstructure:"index"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Auth      AuthConfig                `mapstructure:"auth"`
}

// ServerConfig controls how Cairn listens for connections.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects the storage backend and its location on disk.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// IndexConfig controls automatic semantic indexing of stored items.
type IndexConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Dimensions     int      `mapstructure:"dimensions"`
	Model          string   `mapstructure:"model"`
	Fields         []string `mapstructure:"fields"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// ProviderConfig holds credentials and endpoint for an embedding provider.
// APIKey may be a keyring:// URI resolved at startup.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// AuthConfig maps bearer tokens to principal identifiers.
type AuthConfig struct {
	Tokens map[string]string `mapstructure:"tokens"`
}

// SetDefaults applies configuration defaults to a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8790")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("index.enabled", false)
	v.SetDefault("index.dimensions", 1536)
	v.SetDefault("index.model", "openai/text-embedding-3-small")
	v.SetDefault("index.fields", []string{"$"})
	v.SetDefault("index.timeout_seconds", 10)
}

// SetupEnv configures CAIRN_-prefixed environment variable overrides.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("CAIRN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CAIRN_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, cairnerr.Errorf(cairnerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateAuth()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		host, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w",
				c.Server.Listen, err,
			))
		} else {
			_ = host // host can be empty (e.g., ":8790"), which is valid
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 1 || port > 65535 {
				errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be between 1 and 65535, got %d",
					port,
				))
			}
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	if !c.Index.Enabled {
		return errs
	}

	if c.Index.Dimensions <= 0 {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
			"config: index.dimensions must be greater than 0, got %d",
			c.Index.Dimensions,
		))
	}

	if c.Index.Model == "" {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "config: index.model must not be empty"))
	} else if !strings.Contains(c.Index.Model, "/") {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
			"config: index.model must be in \"provider/model\" format, got %q",
			c.Index.Model,
		))
	} else {
		providerName := ProviderFromModel(c.Index.Model)
		validProviders := map[string]bool{"openai": true, "google": true}
		if !validProviders[providerName] {
			errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
				"config: index.model %q references provider %q, must be one of [openai, google]",
				c.Index.Model, providerName,
			))
		} else if c.Providers != nil {
			// Only cross-reference providers when the providers section exists
			// in config. A nil map means no providers section was configured,
			// which is valid until the server actually needs credentials.
			if _, ok := c.Providers[providerName]; !ok {
				errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
					"config: index.model %q references provider %q which is not configured",
					c.Index.Model, providerName,
				))
			}
		}
	}

	for i, field := range c.Index.Fields {
		if strings.TrimSpace(field) == "" {
			errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
				"config: index.fields[%d] must not be empty", i))
		}
	}

	if c.Index.TimeoutSeconds < 0 {
		errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
			"config: index.timeout_seconds must not be negative, got %d",
			c.Index.TimeoutSeconds,
		))
	}

	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error

	for token, principal := range c.Auth.Tokens {
		if token == "" {
			errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "config: auth.tokens contains an empty token"))
		}
		if principal == "" {
			errs = append(errs, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
				"config: auth.tokens entry for token ending %q has an empty principal", tokenTail(token)))
		}
	}

	return errs
}

// tokenTail returns the last few characters of a token for log-safe display.
func tokenTail(token string) string {
	const n = 4
	if len(token) <= n {
		return token
	}
	return "…" + token[len(token)-n:]
}

// ProviderFromModel extracts the provider prefix from a "provider/model" string.
func ProviderFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}

// ModelID extracts the model suffix from a "provider/model" string.
func ModelID(model string) string {
	if idx := strings.Index(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}
