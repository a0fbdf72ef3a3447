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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/gumtree/budget"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	evalBudgetPath string
	evalFormat     string
	evalWatch      bool
	evalCompact    bool
	evalQuiet      bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a measurement budget file",
	Long: `Load a budget file, build its measurement model, and evaluate
every output with its combined standard uncertainty.

Examples:
  gumtree eval -b budget.yaml
  gumtree eval -b budget.yaml -o json | jq '.results[0].value'
  gumtree eval -b budget.yaml --watch

Exit Codes:
  0 = Evaluation succeeded
  2 = Error (missing file, invalid budget, evaluation failure)`,
	Run: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&evalBudgetPath, "budget", "b", "",
		"Path to the budget file (YAML)")
	evalCmd.MarkFlagRequired("budget")
	evalCmd.Flags().StringVarP(&evalFormat, "output", "o", "",
		"Output format: text or json (default: text on a terminal, json when piped)")
	evalCmd.Flags().BoolVar(&evalWatch, "watch", false,
		"Keep running and re-evaluate whenever the budget file changes")
	evalCmd.Flags().BoolVar(&evalCompact, "compact", false,
		"No indentation in JSON output")
	evalCmd.Flags().BoolVar(&evalQuiet, "quiet", false,
		"Only exit code, no output")

	rootCmd.AddCommand(evalCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runEval(cmd *cobra.Command, args []string) {
	jsonMode := resolveOutputMode(evalFormat)

	if evalWatch {
		os.Exit(runEvalWatch(jsonMode))
	}
	os.Exit(evaluateOnce(evalBudgetPath, jsonMode))
}

// evaluateOnce loads, evaluates, and prints a single budget file.
func evaluateOnce(path string, jsonMode bool) int {
	b, err := budget.Load(path)
	if err != nil {
		OutputError(jsonMode, "Failed to load the budget", err)
		return CLIExitError
	}

	report, err := evaluateBudget(context.Background(), b)
	if err != nil {
		OutputError(jsonMode, "Evaluation failed", err)
		return CLIExitError
	}

	if evalQuiet {
		return CLIExitSuccess
	}
	if jsonMode {
		if err := OutputJSON(report, evalCompact); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return CLIExitError
		}
		return CLIExitSuccess
	}
	outputEvalText(report)
	return CLIExitSuccess
}

// evaluateBudget builds the measurement model and runs every output.
func evaluateBudget(ctx context.Context, b *budget.Budget) (*EvalReport, error) {
	model, err := b.Build()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	results, err := model.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	return &EvalReport{
		Budget:  b.Name,
		Domain:  string(b.Domain),
		Results: results,
	}, nil
}

// runEvalWatch evaluates the budget, then re-evaluates on every change
// until interrupted.
func runEvalWatch(jsonMode bool) int {
	if code := evaluateOnce(evalBudgetPath, jsonMode); code != CLIExitSuccess {
		// Keep watching: the next save may fix the budget.
		slog.Warn("Initial evaluation failed, waiting for changes", "path", evalBudgetPath)
	}

	watcher, err := budget.NewWatcher(evalBudgetPath, func(b *budget.Budget, err error) {
		if err != nil {
			OutputError(jsonMode, "Budget reload failed", err)
			return
		}
		report, err := evaluateBudget(context.Background(), b)
		if err != nil {
			OutputError(jsonMode, "Evaluation failed", err)
			return
		}
		if jsonMode {
			if err := OutputJSON(report, evalCompact); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			}
			return
		}
		outputEvalText(report)
	}, nil)
	if err != nil {
		OutputError(jsonMode, "Failed to create the watcher", err)
		return CLIExitError
	}

	// Set up graceful shutdown with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := watcher.Start(ctx); err != nil {
		OutputError(jsonMode, "Failed to start the watcher", err)
		return CLIExitError
	}
	defer watcher.Stop()

	if !jsonMode {
		fmt.Printf("Watching %s for changes (ctrl-c to stop)\n", evalBudgetPath)
	}
	<-ctx.Done()
	return CLIExitSuccess
}

// =============================================================================
// OUTPUT
// =============================================================================

func outputEvalText(report *EvalReport) {
	fmt.Printf("Budget: %s (%s)\n", report.Budget, report.Domain)
	fmt.Println(strings.Repeat("=", 60))

	for _, res := range report.Results {
		fmt.Println()
		switch {
		case res.Covariance != nil:
			fmt.Printf("%s = %.9g + %.9gi\n", res.Name, res.Value, res.ValueIm)
			cov := res.Covariance
			fmt.Printf("  covariance: [%13.6e %13.6e]\n", cov[0][0], cov[0][1])
			fmt.Printf("              [%13.6e %13.6e]\n", cov[1][0], cov[1][1])
		case res.StdUncertainty != nil:
			fmt.Printf("%s = %.9g ± %.6g\n", res.Name, res.Value, *res.StdUncertainty)
		default:
			fmt.Printf("%s = %.9g\n", res.Name, res.Value)
		}
		if res.DegreesOfFreedom != nil {
			fmt.Printf("  degrees of freedom: %.5g\n", *res.DegreesOfFreedom)
		}

		if len(res.Contributions) > 0 {
			fmt.Println()
			fmt.Printf("  %-14s %13s %13s %13s %13s\n",
				"input", "value", "std unc", "sensitivity", "contribution")
			for _, con := range res.Contributions {
				fmt.Printf("  %-14s %13.6g %13.6g %13.6g %13.6g\n",
					con.Input, con.Value, con.Uncertainty, con.Sensitivity, con.Contribution)
			}
		}
	}
}
