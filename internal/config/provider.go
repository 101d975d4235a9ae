// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"strings"
)

// ConfigFileEnv names the environment variable that selects the config file
// when LoadOptions.ConfigFilePath is empty.
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// withEnv fills ConfigFilePath from TOOLMODEL_CONFIG when it is empty.
func (o LoadOptions) withEnv(lookupEnv func(string) (string, bool)) LoadOptions {
	if o.ConfigFilePath != "" {
		return o
	}
	if path, ok := lookupEnv(ConfigFileEnv); ok && strings.TrimSpace(path) != "" {
		o.ConfigFilePath = path
	}
	return o
}

type fileProvider struct {
	lookupEnv func(string) (string, bool)
}

// NewProvider creates a configuration provider backed by config files and
// TOOLMODEL_* environment variables.
func NewProvider() Provider {
	return &fileProvider{lookupEnv: os.LookupEnv}
}

// Load reads configuration from the requested source. An explicit
// ConfigFilePath wins over TOOLMODEL_CONFIG, which wins over the config
// directory lookup.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts.withEnv(p.lookupEnv))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
