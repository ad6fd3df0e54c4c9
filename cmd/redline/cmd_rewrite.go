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
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/pkg/validation"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rewrite"
)

func runRewrite(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("nothing to rewrite")
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

	res, err := eng.rewriter.Rewrite(cmd.Context(), rewrite.Request{
		Block: blocks.Block{
			ID:   "block-0",
			Type: blocks.TypeParagraph,
			End:  len(text),
			Text: text,
			Body: text,
		},
		ContentType: ct,
		Threshold:   threshold,
		SecondPass:  secondPass,
		SessionID:   sessionID,
	})
	if view != nil {
		view.Finish()
	}
	if err != nil {
		return fmt.Errorf("rewrite failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printRewriteReport(text, res)
	return nil
}

func printRewriteReport(original string, res *rewrite.Result) {
	ux.Title("Rewrite")
	ux.KeyValue("stations", strings.Join(res.Stations, ", "))
	ux.KeyValue("passes", fmt.Sprintf("%d", res.Passes))
	ux.KeyValue("issues", fmt.Sprintf("%d → %d (%d fixed)",
		res.InitialIssues, res.RemainingIssues, res.ErrorsFixed))
	ux.KeyValue("elapsed", res.ProcessingTime.String())
	fmt.Println()

	if res.Text == original {
		ux.Info("no changes needed")
		return
	}

	fmt.Println(res.Text)

	if len(res.Improvements) > 0 {
		fmt.Println()
		for _, d := range res.Improvements {
			ux.Info(fmt.Sprintf("%s: %q → %q", d.Label,
				truncate(d.Old, 60), truncate(d.New, 60)))
		}
	}
	if res.Diff != "" {
		fmt.Println()
		fmt.Println(ux.Styles.Muted.Render(res.Diff))
	}
}
