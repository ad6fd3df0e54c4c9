// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("redline.styleengine.nlp")

const remoteTimeout = 10 * time.Second

// Remote talks to a spaCy-style sidecar over HTTP. The sidecar owns the
// heavy models; this client only moves JSON. Failures are returned to the
// caller, which degrades to SplitSentences rather than aborting analysis.
type Remote struct {
	httpClient *http.Client
	baseURL    string
}

var _ Toolkit = (*Remote)(nil)

// NewRemote builds a sidecar client for the given base URL.
func NewRemote(baseURL string) *Remote {
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing NLP sidecar client", "base_url", baseURL)
	return &Remote{
		httpClient: &http.Client{Timeout: remoteTimeout},
		baseURL:    baseURL,
	}
}

type remoteAnalyzeRequest struct {
	Text string `json:"text"`
}

// Analyze implements Toolkit by POSTing to the sidecar's /analyze route.
// The wire shape matches Analysis field-for-field.
func (r *Remote) Analyze(ctx context.Context, text string) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "Remote.Analyze",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("nlp.text_bytes", len(text)))

	payload, err := json.Marshal(remoteAnalyzeRequest{Text: text})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to marshal sidecar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/analyze", bytes.NewBuffer(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create sidecar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("NLP sidecar call failed", "error", err)
		return nil, fmt.Errorf("nlp sidecar call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read sidecar response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("nlp sidecar returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var an Analysis
	if err := json.Unmarshal(body, &an); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode sidecar response: %w", err)
	}
	normalize(&an)
	return &an, nil
}

// normalize repairs optional fields a sidecar may omit so downstream code
// never nil-checks Morph maps.
func normalize(an *Analysis) {
	for i := range an.Tokens {
		if an.Tokens[i].Morph == nil {
			an.Tokens[i].Morph = Morph{}
		}
	}
	for s := range an.Sentences {
		for i := range an.Sentences[s].Tokens {
			if an.Sentences[s].Tokens[i].Morph == nil {
				an.Sentences[s].Tokens[i].Morph = Morph{}
			}
		}
	}
	if an.Sentences == nil {
		an.Sentences = []Sentence{}
	}
	if an.Tokens == nil {
		an.Tokens = []Token{}
	}
	if an.Entities == nil {
		an.Entities = []Entity{}
	}
}
