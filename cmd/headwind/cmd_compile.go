// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/headwindhq/headwind/pkg/logging"
	"github.com/headwindhq/headwind/services/headerc/compile"
	"github.com/headwindhq/headwind/services/headerc/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	compileSources   []string
	compileClasspath []string
	compileBootcp    []string
	compileOutput    string
	compileRelease   int
	compileCacheDir  string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

// compileCmd runs one header compilation.
var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile sources into a header archive",
	Long: `Compile Java sources into an archive of header class files.

Examples:
  headwind compile --sources A.java --sources B.java --output lib-hjar.jar
  headwind compile --sources src/Foo.java --classpath deps.jar --release 8 --output out.jar`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringArrayVar(&compileSources, "sources", nil, "source files to compile (repeatable)")
	compileCmd.Flags().StringArrayVar(&compileClasspath, "classpath", nil, "class-path archives (repeatable)")
	compileCmd.Flags().StringArrayVar(&compileBootcp, "bootclasspath", nil, "platform archives searched first (repeatable)")
	compileCmd.Flags().StringVar(&compileOutput, "output", "", "output archive path")
	compileCmd.Flags().IntVar(&compileRelease, "release", 0, "platform release (default emits major version 52)")
	compileCmd.Flags().StringVar(&compileCacheDir, "cache-dir", "", "directory for the class-path byte cache (disabled when empty)")

	viper.SetDefault("release", 0)
}

func runCompile(cmd *cobra.Command, args []string) error {
	applyConfigFile()
	if len(compileSources) == 0 {
		return fmt.Errorf("no sources given; pass --sources or list them in headwind.yaml")
	}
	if compileOutput == "" {
		return fmt.Errorf("no output archive given; pass --output or set it in headwind.yaml")
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(flagLogLevel),
		LogDir:  flagLogDir,
		Service: "headwind",
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	sources := make([]compile.SourceFile, 0, len(compileSources))
	for _, s := range compileSources {
		sources = append(sources, compile.SourceFile{Path: s})
	}

	res, err := compile.Compile(cmd.Context(), compile.Options{
		Sources:       sources,
		ClassPath:     compileClasspath,
		BootClassPath: compileBootcp,
		OutputJar:     compileOutput,
		Release:       compileRelease,
		CacheDir:      compileCacheDir,
		Logger:        logger.Logger,
		Metrics:       telemetry.New(),
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		for _, d := range res.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
		return errCompilation
	}
	return nil
}

// applyConfigFile fills unset flags from headwind.yaml values.
func applyConfigFile() {
	if len(compileSources) == 0 {
		compileSources = viper.GetStringSlice("sources")
	}
	if len(compileClasspath) == 0 {
		compileClasspath = viper.GetStringSlice("classpath")
	}
	if len(compileBootcp) == 0 {
		compileBootcp = viper.GetStringSlice("bootclasspath")
	}
	if compileOutput == "" {
		compileOutput = viper.GetString("output")
	}
	if compileRelease == 0 {
		compileRelease = viper.GetInt("release")
	}
	if compileCacheDir == "" {
		compileCacheDir = viper.GetString("cache-dir")
	}
}
