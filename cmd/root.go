// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// Package cmd defines the CLI for the metric name formatter
package cmd

import (
	"fmt"
	stdlog "log"
	"os"
	"runtime"
	"time"

	"github.com/hchepey-clari/conductor/internal/agent"
	"github.com/hchepey-clari/conductor/internal/config"
	"github.com/hchepey-clari/conductor/internal/config/defaults"
	"github.com/hchepey-clari/conductor/internal/release"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   release.NAME + " [metric ...]",
	Short: "Conductor metric name formatter",
	Long: `Rewrites registry metric names, e.g.

  task_execution.class-WorkflowMonitor.taskType-crawl.status-COMPLETED

into the tagged form used by the metrics backend, one line per
configured expansion, e.g.

  task_execution.count[taskType:crawl,status:COMPLETED]

Metric names are taken from the arguments or, if there are none,
read from stdin one per line. Tags are dropped and tag values
extracted according to the tag exclusion and tag format files.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: initLogging,
	Run: func(cmd *cobra.Command, args []string) {
		//
		// show version and exit
		//
		if viper.GetBool(config.KeyShowVersion) {
			fmt.Printf("%s v%s - commit: %s, date: %s, tag: %s\n", release.NAME, release.VERSION, release.COMMIT, release.DATE, release.TAG)
			return
		}

		//
		// show configuration and exit
		//
		if viper.GetString(config.KeyShowConfig) != "" {
			if err := config.ShowConfig(os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("show-config")
			}
			return
		}

		a, err := agent.New()
		if err != nil {
			log.Fatal().Err(err).Msg("initializing")
		}

		if err := config.StatConfig(); err != nil {
			log.Fatal().Err(err).Msg("initializing internal stats")
		}

		if err := a.Start(args); err != nil {
			log.Fatal().Err(err).Msg("formatting metric names")
		}
	},
}

func bindFlagError(flag string, err error) {
	log.Fatal().Err(err).Str("flag", flag).Msg("binding flag")
}
func bindEnvError(envVar string, err error) {
	log.Fatal().Err(err).Str("var", envVar).Msg("binding env var")
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zlog := zerolog.New(zerolog.SyncWriter(os.Stderr)).With().Timestamp().Logger()
	log.Logger = zlog

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog)

	cobra.OnInitialize(initConfig)

	desc := func(desc, env string) string {
		return fmt.Sprintf("[ENV: %s] %s", env, desc)
	}

	//
	// Basic
	//
	{
		var (
			longOpt     = "config"
			shortOpt    = "c"
			description = "config file (default is " + defaults.EtcPath + "/" + release.NAME + ".(json|toml|yaml)"
		)
		RootCmd.PersistentFlags().StringVarP(&cfgFile, longOpt, shortOpt, "", description)
	}

	//
	// Tags
	//
	{
		var (
			key          = config.KeyTagExcludeFile
			longOpt      = "tag-exclude-file"
			envVar       = release.ENVPREFIX + "_TAG_EXCLUDE_FILE"
			description  = "Tag exclusion file, metric -> [tag,...], path without extension (.json|.toml|.yaml)"
			defaultValue = defaults.TagExcludeFile
		)

		RootCmd.Flags().String(longOpt, defaultValue, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaultValue)
	}

	{
		var (
			key          = config.KeyTagFormatFile
			longOpt      = "tag-format-file"
			envVar       = release.ENVPREFIX + "_TAG_FORMAT_FILE"
			description  = "Tag value format file, metric -> tag -> regex, path without extension (.json|.toml|.yaml)"
			defaultValue = defaults.TagFormatFile
		)

		RootCmd.Flags().String(longOpt, defaultValue, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaultValue)
	}

	{
		var (
			key         = config.KeyTagExpansions
			longOpt     = "expansions"
			shortOpt    = "e"
			envVar      = release.ENVPREFIX + "_EXPANSIONS"
			description = "Expansions appended to each formatted metric name"
		)

		RootCmd.Flags().StringSliceP(longOpt, shortOpt, defaults.Expansions, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaults.Expansions)
	}

	{
		const (
			key          = config.KeyTagStreamTags
			longOpt      = "stream-tags"
			envVar       = release.ENVPREFIX + "_STREAM_TAGS"
			description  = "Encode tags as circonus stream tags, name|ST[...]"
			defaultValue = defaults.StreamTags
		)

		RootCmd.Flags().Bool(longOpt, defaultValue, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaultValue)
	}

	//
	// Miscellenous
	//
	{
		const (
			key          = config.KeyDebug
			longOpt      = "debug"
			shortOpt     = "d"
			envVar       = release.ENVPREFIX + "_DEBUG"
			description  = "Enable debug messages"
			defaultValue = defaults.Debug
		)

		RootCmd.Flags().BoolP(longOpt, shortOpt, defaultValue, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key         = config.KeyLogLevel
			longOpt     = "log-level"
			envVar      = release.ENVPREFIX + "_LOG_LEVEL"
			description = "Log level [(panic|fatal|error|warn|info|debug|disabled)]"
		)

		RootCmd.Flags().String(longOpt, defaults.LogLevel, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaults.LogLevel)
	}

	{
		const (
			key         = config.KeyLogPretty
			longOpt     = "log-pretty"
			envVar      = release.ENVPREFIX + "_LOG_PRETTY"
			description = "Output formatted/colored log lines [ignored on windows]"
		)

		RootCmd.Flags().Bool(longOpt, defaults.LogPretty, desc(description, envVar))
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
		if err := viper.BindEnv(key, envVar); err != nil {
			bindEnvError(envVar, err)
		}
		viper.SetDefault(key, defaults.LogPretty)
	}

	{
		const (
			key          = config.KeyShowVersion
			longOpt      = "version"
			shortOpt     = "V"
			defaultValue = false
			description  = "Show version and exit"
		)
		RootCmd.Flags().BoolP(longOpt, shortOpt, defaultValue, description)
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
	}

	{
		const (
			key         = config.KeyShowConfig
			longOpt     = "show-config"
			description = "Show config (json|toml|yaml) and exit"
		)

		RootCmd.Flags().String(longOpt, "", description)
		if err := viper.BindPFlag(key, RootCmd.Flags().Lookup(longOpt)); err != nil {
			bindFlagError(longOpt, err)
		}
	}
}

// initLogging initializes zerolog
func initLogging(cmd *cobra.Command, args []string) error {
	//
	// Enable formatted output
	//
	if viper.GetBool(config.KeyLogPretty) {
		if runtime.GOOS != "windows" {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			log.Warn().Msg("log-pretty not applicable on this platform")
		}
	}

	//
	// Enable debug logging, if requested
	// otherwise, default to info level and set custom level, if specified
	//
	if viper.GetBool(config.KeyDebug) {
		viper.Set(config.KeyLogLevel, "debug")
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("--debug flag, forcing debug log level")
	} else if viper.IsSet(config.KeyLogLevel) {
		level := viper.GetString(config.KeyLogLevel)

		switch level {
		case "panic":
			zerolog.SetGlobalLevel(zerolog.PanicLevel)
		case "fatal":
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		case "error":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case "warn":
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case "info":
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case "debug":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "disabled":
			zerolog.SetGlobalLevel(zerolog.Disabled)
		default:
			return errors.Errorf("Unknown log level (%s)", level)
		}

		log.Debug().Str("log-level", level).Msg("Logging level")
	}

	return nil
}

// initConfig reads in config file and/or ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(defaults.EtcPath)
		viper.AddConfigPath(".")
		viper.SetConfigName(release.NAME)
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		f := viper.ConfigFileUsed()
		if f != "" {
			log.Fatal().Err(err).Str("config_file", f).Msg("Unable to load config file")
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal().
			Err(err).
			Msg("Unable to start")
	}
}
