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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/feedback"
)

// apiClient is the shared HTTP client for talking to a styled service.
var apiClient = &http.Client{Timeout: 15 * time.Second}

func runFeedback(cmd *cobra.Command, args []string) error {
	sub := feedback.Submission{
		SessionID:    feedbackSession,
		ViolationID:  feedbackViolID,
		ErrorType:    feedbackErrType,
		ErrorMessage: feedbackErrMsg,
		Kind:         feedbackKind,
		UserReason:   feedbackReason,
	}

	if missingFeedbackFields(sub) {
		if !ux.IsInteractive() {
			return errors.New("--session, --violation, --error-type, --error-message, and --kind are required in non-interactive mode")
		}
		if err := feedbackForm(&sub).Run(); err != nil {
			return fmt.Errorf("feedback form: %w", err)
		}
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	resp, err := apiClient.Post(serverURL+"/api/feedback", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reaching %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	var out struct {
		FeedbackID  string `json:"feedback_id"`
		ViolationID string `json:"violation_id"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("feedback rejected (%d): %s", resp.StatusCode, out.Error)
	}

	ux.Success("feedback stored")
	ux.KeyValue("feedback_id", out.FeedbackID)
	ux.KeyValue("violation_id", out.ViolationID)
	return nil
}

func missingFeedbackFields(sub feedback.Submission) bool {
	return sub.SessionID == "" || sub.ViolationID == "" ||
		sub.ErrorType == "" || sub.ErrorMessage == "" || sub.Kind == ""
}

// feedbackForm prompts for the fields not supplied as flags.
func feedbackForm(sub *feedback.Submission) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session ID").
				Description("The analysis session the violation came from").
				Value(&sub.SessionID).
				Validate(requireField("session id")),
			huh.NewInput().
				Title("Violation ID").
				Value(&sub.ViolationID).
				Validate(requireField("violation id")),
			huh.NewInput().
				Title("Rule").
				Description("Rule id of the flagged issue, e.g. grammar.passive_voice").
				Value(&sub.ErrorType).
				Validate(requireField("rule id")),
			huh.NewInput().
				Title("Message").
				Description("The issue message as reported").
				Value(&sub.ErrorMessage).
				Validate(requireField("message")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Was this violation correct?").
				Options(
					huh.NewOption("Correct — a real style problem", "correct"),
					huh.NewOption("Incorrect — false positive", "incorrect"),
					huh.NewOption("Partially correct", "partially_correct"),
				).
				Value(&sub.Kind),
			huh.NewText().
				Title("Reason (optional)").
				CharLimit(500).
				Value(&sub.UserReason),
		),
	)
}

func requireField(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("session_id", args[0])
	q.Set("days_back", strconv.Itoa(statsDaysBack))

	resp, err := apiClient.Get(serverURL + "/api/feedback/stats?" + q.Encode())
	if err != nil {
		return fmt.Errorf("reaching %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stats request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		SessionID string         `json:"session_id"`
		Stats     feedback.Stats `json:"stats"`
		Insights  json.RawMessage `json:"insights"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	ux.Title("Feedback Statistics")
	ux.KeyValue("session", out.SessionID)
	ux.KeyValue("total", strconv.Itoa(out.Stats.Total))
	ux.KeyValue("correct", strconv.Itoa(out.Stats.Correct))
	ux.KeyValue("incorrect", strconv.Itoa(out.Stats.Incorrect))
	ux.KeyValue("partially correct", strconv.Itoa(out.Stats.PartiallyCorrect))
	ux.KeyValue("accuracy", fmt.Sprintf("%.1f%%", out.Stats.AccuracyRate*100))

	if len(out.Insights) > 0 && string(out.Insights) != "null" {
		fmt.Println()
		ux.Info("insights")
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, out.Insights, "", "  "); err == nil {
			fmt.Println(pretty.String())
		}
	}
	return nil
}
