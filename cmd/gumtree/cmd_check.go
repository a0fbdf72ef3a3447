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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/gumtree/budget"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	checkBudgetPath string
	checkJSON       bool
	checkCompact    bool
	checkQuiet      bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a budget file without evaluating it",
	Long: `Parse and validate a budget file, reporting every problem found.

Nothing is evaluated, so a valid check does not guarantee that every
output formula is defined at the given input values.

Examples:
  gumtree check -b budget.yaml
  gumtree check -b budget.yaml --json
  gumtree check -b budget.yaml --quiet && echo ok

Exit Codes:
  0 = Budget is valid
  1 = Budget has problems
  2 = Error (missing or unreadable file)`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkBudgetPath, "budget", "b", "",
		"Path to the budget file (YAML)")
	checkCmd.MarkFlagRequired("budget")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false,
		"Output as JSON")
	checkCmd.Flags().BoolVar(&checkCompact, "compact", false,
		"No indentation in JSON output")
	checkCmd.Flags().BoolVar(&checkQuiet, "quiet", false,
		"Only exit code, no output")

	rootCmd.AddCommand(checkCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runCheck(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: checkJSON, Compact: checkCompact, Quiet: checkQuiet}

	data, err := os.ReadFile(checkBudgetPath)
	if err != nil {
		os.Exit(OutputResult(cfg, "check", start, nil, false, err))
	}

	report := checkBudget(checkBudgetPath, data)

	if !cfg.JSON && !cfg.Quiet {
		outputCheckText(report)
	}
	os.Exit(OutputResult(cfg, "check", start, report, !report.Valid, nil))
}

// checkBudget validates one budget document and collects its problems.
func checkBudget(path string, data []byte) *CheckReport {
	report := &CheckReport{File: path}

	b, err := budget.Parse(data)
	if err != nil {
		report.Problems = splitProblems(err)
		return report
	}

	report.Valid = true
	report.Budget = b.Name
	report.Domain = string(b.Domain)
	report.Inputs = len(b.Inputs)
	report.Outputs = len(b.Outputs)
	return report
}

// splitProblems flattens a validation error into individual messages.
// Budget validation joins independent problems so a single run reports
// all of them.
func splitProblems(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, fe.Error())
		}
		return problems
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		errs := joined.Unwrap()
		problems := make([]string, 0, len(errs))
		for _, e := range errs {
			problems = append(problems, e.Error())
		}
		return problems
	}

	return []string{err.Error()}
}

// =============================================================================
// OUTPUT
// =============================================================================

func outputCheckText(report *CheckReport) {
	fmt.Println("Budget Check Results")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()
	fmt.Printf("File: %s\n", report.File)

	if report.Valid {
		fmt.Printf("Budget: %s (%s)\n", report.Budget, report.Domain)
		fmt.Printf("Inputs: %d   Outputs: %d\n", report.Inputs, report.Outputs)
		fmt.Println()
		fmt.Println("No problems found.")
		return
	}

	fmt.Println()
	fmt.Println("Problems:")
	fmt.Println()
	for _, p := range report.Problems {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Println()
	fmt.Printf("Problems found: %d\n", len(report.Problems))
}
