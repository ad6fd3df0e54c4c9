// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultOpenAIModel is used when OPENAI_MODEL is unset.
	DefaultOpenAIModel = "gpt-4o-mini"

	// secretPath is the fallback key location under container secrets.
	secretPath = "/run/secrets/openai_api_key"

	// defaultChunkSize is the largest text sent in one completion; longer
	// inputs are split and rewritten chunk by chunk.
	defaultChunkSize = 6000
)

// OpenAI is the model-backed transformation backend.
//
// Description:
//
//	The API key is read from OPENAI_API_KEY or the container secret and
//	held in a memguard enclave; the plaintext copy inside the client is
//	the only other one in the process. Requests pass a token-bucket rate
//	limiter. Inputs longer than the chunk size are split with a
//	recursive character splitter and rewritten chunk by chunk.
//
// Thread Safety: safe for concurrent use.
type OpenAI struct {
	client  *openai.Client
	model   string
	key     *memguard.Enclave
	limiter *rate.Limiter
	log     *slog.Logger
	chunk   int
}

// OpenAIOption configures the OpenAI backend.
type OpenAIOption func(*OpenAI)

// WithOpenAILogger sets the backend's logger.
func WithOpenAILogger(log *slog.Logger) OpenAIOption {
	return func(o *OpenAI) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRateLimit replaces the default limiter (2 req/s, burst 4).
func WithRateLimit(l *rate.Limiter) OpenAIOption {
	return func(o *OpenAI) { o.limiter = l }
}

// WithChunkSize changes the chunking threshold.
func WithChunkSize(n int) OpenAIOption {
	return func(o *OpenAI) {
		if n > 0 {
			o.chunk = n
		}
	}
}

// NewOpenAI builds the OpenAI backend from the environment.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		raw, err := os.ReadFile(secretPath)
		if err != nil {
			return nil, fmt.Errorf("OPENAI_API_KEY not set and secret missing at %s", secretPath)
		}
		key = strings.TrimSpace(string(raw))
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = DefaultOpenAIModel
	}

	o := &OpenAI{
		client:  openai.NewClient(key),
		model:   model,
		key:     memguard.NewEnclave([]byte(key)),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		log:     slog.Default(),
		chunk:   defaultChunkSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *OpenAI) Transform(ctx context.Context, inst Instruction, text string, c Constraints) (Result, error) {
	chunks := []string{text}
	if len(text) > o.chunk {
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(o.chunk),
			textsplitter.WithChunkOverlap(0),
		)
		var err error
		chunks, err = splitter.SplitText(text)
		if err != nil {
			return Result{}, fmt.Errorf("splitting text for rewrite: %w", err)
		}
	}

	var parts []string
	for _, chunk := range chunks {
		out, err := o.complete(ctx, inst, chunk)
		if err != nil {
			return Result{}, err
		}
		parts = append(parts, out)
	}
	rewritten := strings.Join(parts, "\n\n")
	if len(chunks) == 1 {
		rewritten = parts[0]
	}

	if err := Verify(text, rewritten, c); err != nil {
		return Result{}, err
	}
	return Result{
		Text: rewritten,
		Deltas: []Delta{{
			Label: inst.Station,
			Start: 0,
			End:   len(text),
			Old:   text,
			New:   rewritten,
		}},
	}, nil
}

// complete performs one rate-limited chat completion.
func (o *OpenAI) complete(ctx context.Context, inst Instruction, text string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	issues, err := json.Marshal(inst.Issues)
	if err != nil {
		return "", fmt.Errorf("encoding issues: %w", err)
	}

	system := "You are a technical editor. Rewrite the user's text to fix " +
		"the listed issues. Preserve inline code spans byte for byte, keep " +
		"heading markers unchanged, and return only the rewritten text."
	user := fmt.Sprintf("Goal: %s\nIssues: %s\n\nText:\n%s", inst.Goal, issues, text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		o.log.Error("rewrite completion failed", "station", inst.Station, "error", err)
		return "", fmt.Errorf("rewrite completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("rewrite completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
