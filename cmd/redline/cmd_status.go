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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
)

func runServeStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiClient.Get(serverURL + "/health")
	if err != nil {
		ux.Error(fmt.Sprintf("styled is unreachable at %s", serverURL))
		return err
	}
	defer resp.Body.Close()

	var health struct {
		Status    string            `json:"status"`
		Services  map[string]string `json:"services"`
		Timestamp string            `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	ux.Title("Service Status")
	ux.KeyValue("server", serverURL)
	ux.KeyValue("status", health.Status)
	ux.KeyValue("reported", health.Timestamp)

	names := make([]string, 0, len(health.Services))
	for name := range health.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := health.Services[name]
		icon := ux.IconSuccess
		if state != "ok" {
			icon = ux.IconWarning
		}
		ux.Info(fmt.Sprintf("%s %s: %s", icon.Render(), name, state))
	}

	if !watchEvents {
		return nil
	}
	return watchEventStream(cmd.Context())
}

// watchEventStream tails /events/stream with chain verification until
// interrupted.
func watchEventStream(ctx context.Context) error {
	sessionID := "cli-" + uuid.NewString()
	q := url.Values{}
	q.Set("session_id", sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		serverURL+"/events/stream?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open until ctx cancels.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("opening event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream refused (%d)", resp.StatusCode)
	}

	ux.Info(fmt.Sprintf("watching events for session %s (ctrl-c to stop)", sessionID))
	renderer := ux.NewStreamRenderer()
	defer renderer.Finish()

	reader := ux.NewStreamReader(resp.Body)
	return reader.Process(func(frame ux.EventFrame) error {
		renderer.Render(frame)
		return nil
	})
}
