// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events is the session-scoped event fabric: a process-wide
// directory of sessions, each with a bounded outbound queue and a
// single dispatcher goroutine that preserves per-producer ordering at
// subscribers.
package events

import "time"

// Type identifies an event.
type Type string

const (
	// TypeAnalysisStart is emitted when an analysis begins.
	TypeAnalysisStart Type = "analysis_start"

	// TypeProgressUpdate carries coarse analysis progress.
	TypeProgressUpdate Type = "progress_update"

	// TypeAnalysisComplete is emitted with the finished analysis.
	TypeAnalysisComplete Type = "analysis_complete"

	// TypeAnalysisFailed is emitted when an analysis aborts.
	TypeAnalysisFailed Type = "analysis_failed"

	// TypeBlockProcessingStart opens a rewrite job for one block.
	TypeBlockProcessingStart Type = "block_processing_start"

	// TypeBlockProcessingComplete closes a successful rewrite job.
	TypeBlockProcessingComplete Type = "block_processing_complete"

	// TypeBlockProcessingError closes a failed or cancelled rewrite job.
	TypeBlockProcessingError Type = "block_processing_error"

	// TypeStationProgress carries per-station rewrite progress.
	TypeStationProgress Type = "station_progress_update"

	// TypeFeedbackNotification acknowledges a stored feedback submission.
	TypeFeedbackNotification Type = "feedback_notification"

	// TypeFeedbackError reports a failed feedback submission.
	TypeFeedbackError Type = "feedback_error"

	// TypeConfidenceUpdate carries per-issue confidence detail.
	TypeConfidenceUpdate Type = "confidence_update"

	// TypeConfidenceInsights carries aggregated feedback insights.
	TypeConfidenceInsights Type = "confidence_insights"

	// TypeValidationProgress reports long-running validation status.
	TypeValidationProgress Type = "validation_progress"

	// TypeThresholdChanged broadcasts a universal threshold change.
	TypeThresholdChanged Type = "threshold_changed"

	// TypeQueueDiagnostic reports dropped-event counts for a session.
	TypeQueueDiagnostic Type = "queue_diagnostic"

	// TypeError is the catch-all failure event.
	TypeError Type = "error"
)

// Channel groups event types for subscription.
type Channel string

const (
	// ChannelProgress carries analysis-level progress.
	ChannelProgress Channel = "progress"

	// ChannelStationProgress carries rewrite station progress.
	ChannelStationProgress Channel = "station_progress"

	// ChannelCompletion carries terminal events.
	ChannelCompletion Channel = "completion"

	// ChannelFeedback carries feedback acknowledgements and failures.
	ChannelFeedback Channel = "feedback_notification"

	// ChannelConfidence carries confidence updates and threshold changes.
	ChannelConfidence Channel = "confidence_update"

	// ChannelInsights carries aggregated insight events.
	ChannelInsights Channel = "insights"
)

// ChannelOf maps an event type onto its subscription channel.
func ChannelOf(t Type) Channel {
	switch t {
	case TypeAnalysisStart, TypeProgressUpdate, TypeValidationProgress, TypeQueueDiagnostic:
		return ChannelProgress
	case TypeStationProgress, TypeBlockProcessingStart:
		return ChannelStationProgress
	case TypeAnalysisComplete, TypeAnalysisFailed,
		TypeBlockProcessingComplete, TypeBlockProcessingError, TypeError:
		return ChannelCompletion
	case TypeFeedbackNotification, TypeFeedbackError:
		return ChannelFeedback
	case TypeConfidenceUpdate, TypeThresholdChanged:
		return ChannelConfidence
	case TypeConfidenceInsights:
		return ChannelInsights
	}
	return ChannelProgress
}

// droppable reports whether the fabric may shed the event under queue
// pressure. Terminal and failure events are never dropped.
func droppable(t Type) bool {
	switch t {
	case TypeAnalysisComplete, TypeAnalysisFailed,
		TypeBlockProcessingComplete, TypeBlockProcessingError,
		TypeError, TypeFeedbackError:
		return false
	}
	return true
}

// Event is one fabric message. Every field is JSON-serializable.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// SessionID names the receiving session.
	SessionID string `json:"session_id"`

	// Type is the event type.
	Type Type `json:"event_type"`

	// Timestamp is the emission time.
	Timestamp time.Time `json:"timestamp"`

	// Data is the event payload. Use the typed structs below.
	Data any `json:"data"`
}

// ProgressData is the payload of progress_update events.
type ProgressData struct {
	// Step names the pipeline phase ("parsing", "rules", "statistics").
	Step string `json:"step"`

	// Status is "processing", "complete", or "error".
	Status string `json:"status"`

	// Detail is a human-readable progress note.
	Detail string `json:"detail,omitempty"`

	// Progress is the overall percentage, 0-100.
	Progress int `json:"progress"`
}

// StationProgressData is the payload of station_progress_update events.
type StationProgressData struct {
	// BlockID names the block being rewritten.
	BlockID string `json:"block_id"`

	// Station is the station id.
	Station string `json:"station"`

	// Status is "processing", "complete", "error", or "cancelled".
	Status string `json:"status"`

	// Pass is the 1-based pass number.
	Pass int `json:"pass"`

	// Progress is the job's overall percentage, 0-100.
	Progress int `json:"progress"`

	// ErrorsFixed counts issues resolved by the station, set on complete.
	ErrorsFixed int `json:"errors_fixed,omitempty"`

	// PreviewText carries a short preview of the station output.
	PreviewText string `json:"preview_text,omitempty"`

	// Message is a human-readable status note.
	Message string `json:"message,omitempty"`
}

// ThresholdChangedData is the payload of threshold_changed broadcasts.
type ThresholdChangedData struct {
	// NewThreshold is the updated universal threshold.
	NewThreshold float64 `json:"new_threshold"`

	// ChangedBySessionID names the session that requested the change.
	ChangedBySessionID string `json:"changed_by_session_id"`
}

// QueueDiagnosticData is the payload of queue_diagnostic events.
type QueueDiagnosticData struct {
	// Dropped is the total number of events shed for the session so far.
	Dropped int64 `json:"dropped"`
}

// FeedbackNotificationData acknowledges a stored feedback submission.
type FeedbackNotificationData struct {
	FeedbackID  string `json:"feedback_id"`
	ViolationID string `json:"violation_id"`
	Status      string `json:"status"`
}
