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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/config"
)

func runConfigValidate(cmd *cobra.Command, args []string) error {
	dir := configDir
	if dir == "" {
		dir = config.Dir()
	}

	snap, err := config.NewLoader(dir).Load()
	if err != nil {
		ux.Error("configuration is invalid")
		return err
	}

	ux.Success("configuration is valid")
	ux.KeyValue("directory", dir)
	ux.KeyValue("fingerprint", snap.Fingerprint)
	ux.KeyValue("universal threshold", fmt.Sprintf("%.2f", snap.Thresholds.UniversalThreshold))
	ux.KeyValue("rule weight overrides", strconv.Itoa(len(snap.Weights.Rules)))
	ux.KeyValue("content type mixes", strconv.Itoa(len(snap.Weights.ContentTypes)))
	ux.KeyValue("anchor groups", strconv.Itoa(len(snap.Anchors.Groups)))
	ux.KeyValue("max stations", strconv.Itoa(snap.Thresholds.MaxStations))
	return nil
}
