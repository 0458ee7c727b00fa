// Package config consolidates server settings from defaults, an optional
// JSON config file, environment variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	null "gopkg.in/guregu/null.v3"

	"kitsunedns/resolver"
)

// Config holds server configuration. Fields track whether they were
// explicitly set, so merging layers only overwrites what a layer provides.
type Config struct {
	Port       null.Int    `json:"port" envconfig:"KITSUNEDNS_PORT"`
	RootServer null.String `json:"root_server" envconfig:"KITSUNEDNS_ROOT_SERVER"`
	WebEnabled null.Bool   `json:"web_enabled" envconfig:"KITSUNEDNS_WEB_ENABLED"`
	WebPort    null.Int    `json:"web_port" envconfig:"KITSUNEDNS_WEB_PORT"`
}

// NewConfig returns the built-in defaults. The DNS listen port starts unset
// and must come from a flag, the environment or the config file.
func NewConfig() Config {
	return Config{
		RootServer: null.NewString(resolver.RootServer, false),
		WebEnabled: null.NewBool(true, false),
		WebPort:    null.NewInt(8080, false),
	}
}

// Apply overlays the set fields of cfg onto c and returns the result.
func (c Config) Apply(cfg Config) Config {
	if cfg.Port.Valid {
		c.Port = cfg.Port
	}
	if cfg.RootServer.Valid {
		c.RootServer = cfg.RootServer
	}
	if cfg.WebEnabled.Valid {
		c.WebEnabled = cfg.WebEnabled
	}
	if cfg.WebPort.Valid {
		c.WebPort = cfg.WebPort
	}
	return c
}

// Validate checks that the consolidated configuration can run a server.
func (c Config) Validate() error {
	if !c.Port.Valid {
		return errors.New("no DNS listen port configured (set --port, KITSUNEDNS_PORT or \"port\" in the config file)")
	}
	if c.Port.Int64 < 0 || c.Port.Int64 > 65535 {
		return fmt.Errorf("invalid DNS listen port %d", c.Port.Int64)
	}
	if c.WebPort.Int64 < 0 || c.WebPort.Int64 > 65535 {
		return fmt.Errorf("invalid web dashboard port %d", c.WebPort.Int64)
	}
	return nil
}

// ReadDiskConfig loads settings from a JSON file on fs. A missing file is
// not an error, it simply contributes nothing.
func ReadDiskConfig(fs afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}

	var conf Config
	if err := json.Unmarshal(data, &conf); err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return conf, nil
}

// ReadEnvConfig loads settings from KITSUNEDNS_* environment variables.
func ReadEnvConfig() (Config, error) {
	var conf Config
	err := envconfig.Process("", &conf)
	return conf, err
}

// Consolidate merges defaults, the config file at path (when path is not
// empty), environment variables and flag values, in increasing order of
// precedence.
func Consolidate(fs afero.Fs, path string, flagConf Config) (Config, error) {
	conf := NewConfig()

	if path != "" {
		fileConf, err := ReadDiskConfig(fs, path)
		if err != nil {
			return conf, err
		}
		conf = conf.Apply(fileConf)
	}

	envConf, err := ReadEnvConfig()
	if err != nil {
		return conf, err
	}
	conf = conf.Apply(envConf)

	return conf.Apply(flagConf), nil
}
