// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/AleutianAI/gumtree/pkg/logging"
	"github.com/spf13/cobra"
)

// version is stamped at release build time via -ldflags.
var version = "1.0.0"

// --- Global Command Variables ---
var (
	verboseLogging bool
	logDir         string
	cliLogger      *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "gumtree",
		Short: "A cli to evaluate measurement uncertainty budgets",
		Long: `Gumtree propagates measurement uncertainty through arbitrary
formulas, following the law of propagation of uncertainty from the
GUM. Budgets are YAML files declaring inputs, correlations, and
output formulas; gumtree evaluates them and reports each output
with its combined standard uncertainty.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if verboseLogging {
				level = logging.LevelDebug
			}
			cliLogger = logging.New(logging.Config{
				Level:   level,
				LogDir:  logDir,
				Service: "cli",
			})
			slog.SetDefault(cliLogger.Slog())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliLogger != nil {
				cliLogger.Close()
			}
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the gumtree version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gumtree version %s\n", version)
		},
	}
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseLogging, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Write JSON logs to files in this directory (e.g. ~/.gumtree/logs)")

	rootCmd.AddCommand(versionCmd)
}
