// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
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
	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
)

// --- Global Command Variables ---
var (
	contentType      string
	formatHint       string
	moduleType       string
	threshold        float64
	jsonOutput       bool
	showBlocks       bool
	secondPass       bool
	serverURL        string
	watchEvents      bool
	statsDaysBack    int
	feedbackSession  string
	feedbackViolID   string
	feedbackKind     string
	feedbackReason   string
	feedbackErrType  string
	feedbackErrMsg   string
	configDir        string
	personalityLevel string

	rootCmd = &cobra.Command{
		Use:   "redline",
		Short: "A cli to analyze and rewrite technical prose",
		Long: `Redline analyzes technical documents for style violations and
				rewrites flagged blocks through an assembly line of focused
				passes. Analysis and rewriting run in-process; feedback and
				status commands talk to a running styled service.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a document for style violations (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze, // Defined in cmd_analyze.go
	}

	rewriteCmd = &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Rewrite a text block through the assembly line (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRewrite, // Defined in cmd_rewrite.go
	}

	// --- Feedback ---
	feedbackCmd = &cobra.Command{
		Use:   "feedback",
		Short: "Submit validation feedback to a running styled service",
		RunE:  runFeedback, // Defined in cmd_feedback.go
	}
	feedbackStatsCmd = &cobra.Command{
		Use:   "stats [session_id]",
		Short: "Show feedback statistics for a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runFeedbackStats, // Defined in cmd_feedback.go
	}

	// --- Configuration ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the engine configuration",
	}
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration layers",
		RunE:  runConfigValidate, // Defined in cmd_config.go
	}

	// --- Service ---
	serveStatusCmd = &cobra.Command{
		Use:   "serve-status",
		Short: "Show the health of a running styled service",
		RunE:  runServeStatus, // Defined in cmd_status.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, standard, minimal, or machine (scripting)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&contentType, "content-type", "",
		"Override content type (technical, procedural, narrative, legal, marketing, general)")
	analyzeCmd.Flags().StringVar(&formatHint, "format", "auto",
		"Format hint: auto, plain, markdown, or asciidoc")
	analyzeCmd.Flags().StringVar(&moduleType, "module-type", "",
		"Modular compliance check: concept, procedure, or reference")
	analyzeCmd.Flags().Float64Var(&threshold, "threshold", 0,
		"Override the universal confidence threshold (0 keeps configured value)")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the raw analysis result as JSON")
	analyzeCmd.Flags().BoolVar(&showBlocks, "blocks", false, "Include structural blocks in the report")

	rootCmd.AddCommand(rewriteCmd)
	rewriteCmd.Flags().StringVar(&contentType, "content-type", "", "Override content type")
	rewriteCmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the confidence threshold")
	rewriteCmd.Flags().BoolVar(&secondPass, "second-pass", false, "Run the lighter second-pass station set")
	rewriteCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the raw rewrite result as JSON")

	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8077", "Base URL of the styled service")
	feedbackCmd.Flags().StringVar(&feedbackSession, "session", "", "Session id (interactive form when omitted)")
	feedbackCmd.Flags().StringVar(&feedbackViolID, "violation", "", "Violation id")
	feedbackCmd.Flags().StringVar(&feedbackKind, "kind", "", "Verdict: correct, incorrect, or partially_correct")
	feedbackCmd.Flags().StringVar(&feedbackErrType, "error-type", "", "Rule id of the reported issue (e.g. grammar.passive_voice)")
	feedbackCmd.Flags().StringVar(&feedbackErrMsg, "error-message", "", "Message of the reported issue")
	feedbackCmd.Flags().StringVar(&feedbackReason, "reason", "", "Optional reason")
	feedbackCmd.AddCommand(feedbackStatsCmd)
	feedbackStatsCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8077", "Base URL of the styled service")
	feedbackStatsCmd.Flags().IntVar(&statsDaysBack, "days", 30, "Insight window in days (1-365)")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configValidateCmd.Flags().StringVar(&configDir, "dir", "", "Config directory (default $CONFIG_DIR or ./config)")

	rootCmd.AddCommand(serveStatusCmd)
	serveStatusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8077", "Base URL of the styled service")
	serveStatusCmd.Flags().BoolVar(&watchEvents, "watch", false, "Stream live events after the health check")
}
