// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// Package config defines options
package config

import (
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v2"
)

// Log defines the running config.log structure.
type Log struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty" toml:"pretty"`
}

// Tags defines the running config.tags structure.
type Tags struct {
	ExcludeFile string   `mapstructure:"exclude_file" json:"exclude_file" yaml:"exclude_file" toml:"exclude_file"`
	FormatFile  string   `mapstructure:"format_file" json:"format_file" yaml:"format_file" toml:"format_file"`
	Expansions  []string `json:"expansions" yaml:"expansions" toml:"expansions"`
	StreamTags  bool     `mapstructure:"stream_tags" json:"stream_tags" yaml:"stream_tags" toml:"stream_tags"`
}

// Config defines the running config structure.
type Config struct {
	Log   Log  `json:"log" yaml:"log" toml:"log"`
	Tags  Tags `json:"tags" yaml:"tags" toml:"tags"`
	Debug bool `json:"debug" yaml:"debug" toml:"debug"`
}

// NOTE: adding a Key* MUST be reflected in the Config structures above.
const (
	// KeyDebug enables debug messages.
	KeyDebug = "debug"

	// KeyLogLevel logging level (panic, fatal, error, warn, info, debug, disabled).
	KeyLogLevel = "log.level"

	// KeyLogPretty output formatted log lines (for running in foreground).
	KeyLogPretty = "log.pretty"

	// KeyTagExcludeFile base path (no extension) of the metric -> []tag exclusion file.
	KeyTagExcludeFile = "tags.exclude_file"

	// KeyTagFormatFile base path (no extension) of the metric -> tag -> pattern value format file.
	KeyTagFormatFile = "tags.format_file"

	// KeyTagExpansions expansions appended to each formatted metric name (e.g. count, p99).
	KeyTagExpansions = "tags.expansions"

	// KeyTagStreamTags output names with circonus stream tags (name|ST[...]) instead of name[tag:value,...].
	KeyTagStreamTags = "tags.stream_tags"

	// KeyShowConfig - show configuration and exit.
	KeyShowConfig = "show-config"

	// KeyShowVersion - show version information and exit.
	KeyShowVersion = "version"
)

// Validate verifies the required portions of the configuration.
func Validate() error {
	expansions := viper.GetStringSlice(KeyTagExpansions)
	if len(expansions) == 0 {
		return errors.New("tags config: at least one expansion is required")
	}

	for _, e := range expansions {
		if err := validateExpansion(e); err != nil {
			return errors.Wrap(err, "tags config")
		}
	}

	return nil
}

func validateExpansion(e string) error {
	if e == "" {
		return errors.New("invalid expansion (empty)")
	}
	if strings.ContainsAny(e, ".[]") {
		return errors.Errorf("invalid expansion (%s), must not contain '.', '[' or ']'", e)
	}
	return nil
}

// StatConfig adds the running config to the app stats.
func StatConfig() error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	expvar.Publish("config", expvar.Func(func() interface{} {
		return &cfg
	}))

	return nil
}

// getConfig dumps the current configuration and returns it.
func getConfig() (*Config, error) {
	var cfg *Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	return cfg, nil
}

// ShowConfig prints the running configuration.
func ShowConfig(w io.Writer) error {
	var cfg *Config
	var err error
	var data []byte

	cfg, err = getConfig()
	if err != nil {
		return err
	}

	format := viper.GetString(KeyShowConfig)

	switch format {
	case "json":
		data, err = json.MarshalIndent(cfg, " ", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(*cfg)
	default:
		return errors.Errorf("unknown config format '%s'", format)
	}

	if err != nil {
		return errors.Wrapf(err, "formatting config (%s)", format)
	}

	fmt.Fprintln(w, string(data))
	return nil
}
