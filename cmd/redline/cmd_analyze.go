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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/analyzer"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("nothing to analyze")
	}
	hint, err := validation.SanitizeFormatHint(formatHint)
	if err != nil {
		return err
	}
	ct, err := validation.SanitizeContentType(contentType)
	if err != nil {
		return err
	}

	eng, err := buildEngine("")
	if err != nil {
		return err
	}
	defer eng.Close()

	sessionID := "cli-" + uuid.NewString()
	eng.fabric.Register(sessionID)

	var view *progressView
	if ux.ShouldShowProgress() && !jsonOutput {
		view = newProgressView(eng.fabric, sessionID)
		view.Start()
	}

	res, err := eng.analyzer.Analyze(cmd.Context(), analyzer.Request{
		Content:           text,
		FormatHint:        blocks.Format(hint),
		ContentType:       ct,
		ModuleType:        moduleType,
		ThresholdOverride: threshold,
		SessionID:         sessionID,
	})
	if view != nil {
		view.Finish()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printAnalysisReport(res, showBlocks)
	return nil
}
