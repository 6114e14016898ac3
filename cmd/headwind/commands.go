// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped by the release build.
var Version = "dev"

var (
	flagLogLevel string
	flagLogDir   string
)

// rootCmd is the headwind command tree root.
var rootCmd = &cobra.Command{
	Use:   "headwind",
	Short: "Header compiler for Java sources",
	Long: `Headwind compiles Java sources into header class files: complete
signatures, constants, and annotations with stubbed method bodies.

Downstream targets can compile against the output archive without
waiting for the producer's bodies, which unlocks build-graph
parallelism.

Configuration may also come from a headwind.yaml file in the working
directory; flags take precedence over file values.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for JSON log files (disabled when empty)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		viper.SetConfigName("headwind")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.SetEnvPrefix("HEADWIND")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			// The config file is optional; anything else is a real
			// problem worth surfacing.
			var notFound viper.ConfigFileNotFoundError
			if !asConfigNotFound(err, &notFound) {
				return err
			}
		}
		return nil
	}

	rootCmd.AddCommand(compileCmd)
}

// asConfigNotFound reports whether err is viper's missing-config
// error. viper returns it by value, so errors.As needs the concrete
// type.
func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if v, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = v
		return true
	}
	return false
}
