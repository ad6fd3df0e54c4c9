// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package feedback collects user verdicts on reported issues, stores
// them behind a pluggable Store, and turns the accumulated record into
// insights and gentle confidence adjustments.
package feedback

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
)

// Feedback kinds.
const (
	KindCorrect          = "correct"
	KindIncorrect        = "incorrect"
	KindPartiallyCorrect = "partially_correct"
)

// MaxReasonBytes bounds the free-text reason.
const MaxReasonBytes = 1000

var (
	// ErrInvalidFeedback marks a submission that failed validation.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrStorageUnavailable marks a store that cannot serve requests.
	ErrStorageUnavailable = errors.New("feedback storage unavailable")

	// ErrNotFound marks a missing feedback record.
	ErrNotFound = errors.New("feedback not found")
)

// Submission is one user verdict as received from a client.
type Submission struct {
	SessionID    string `json:"session_id" validate:"required"`
	ViolationID  string `json:"violation_id" validate:"required"`
	ErrorType    string `json:"error_type" validate:"required"`
	ErrorMessage string `json:"error_message" validate:"required"`

	Kind string `json:"feedback_kind" validate:"required,oneof=correct incorrect partially_correct"`

	// ConfidenceRating is the user's own confidence in the verdict.
	ConfidenceRating *float64 `json:"confidence_rating,omitempty" validate:"omitempty,gte=0,lte=1"`

	UserReason string `json:"user_reason,omitempty"`

	// Confidence is the reported issue's final confidence, used for
	// bucketed insights.
	Confidence float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`

	// ContentType is the document classification at detection time.
	ContentType string `json:"content_type,omitempty"`
}

// Record is one stored feedback entry.
type Record struct {
	ID string `json:"feedback_id"`
	Submission
	IPHash    string    `json:"ip_hash,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Category derives the rule category from the error type
// ("grammar.passive_voice" -> "grammar").
func (r Record) Category() string {
	for i := 0; i < len(r.ErrorType); i++ {
		if r.ErrorType[i] == '.' {
			return r.ErrorType[:i]
		}
	}
	return r.ErrorType
}

// Stats summarizes one session's feedback.
type Stats struct {
	Total            int     `json:"total"`
	Correct          int     `json:"correct"`
	Incorrect        int     `json:"incorrect"`
	PartiallyCorrect int     `json:"partially_correct"`
	AccuracyRate     float64 `json:"accuracy_rate"`
}

// Store is the persistence contract behind the service.
type Store interface {
	// Store persists one record.
	Store(ctx context.Context, rec Record) error

	// StatsForSession summarizes one session.
	StatsForSession(ctx context.Context, sessionID string) (Stats, error)

	// SessionFeedback lists one session's records, oldest first.
	SessionFeedback(ctx context.Context, sessionID string) ([]Record, error)

	// Recent lists records created at or after since, oldest first.
	Recent(ctx context.Context, since time.Time) ([]Record, error)

	// Delete removes one record, reporting whether it existed.
	Delete(ctx context.Context, sessionID, feedbackID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// Service validates, enriches, and stores submissions.
//
// Thread Safety: writes serialize under the service's lock; reads are
// concurrent.
type Service struct {
	store    Store
	validate *validator.Validate
	salt     []byte
	sink     events.Sink
	log      *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSalt replaces the IP-hash salt (default FEEDBACK_IP_SALT).
func WithSalt(salt []byte) ServiceOption {
	return func(s *Service) { s.salt = salt }
}

// WithSink routes feedback notifications to a fabric.
func WithSink(sink events.Sink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the service's logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithClock replaces the clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service over a store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(),
		salt:     []byte(os.Getenv("FEEDBACK_IP_SALT")),
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores one submission, returning the stored
// record.
func (s *Service) Submit(ctx context.Context, sub Submission, clientIP, userAgent string) (*Record, error) {
	if err := s.validate.Struct(sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedback, firstValidationProblem(err))
	}
	if len(sub.UserReason) > MaxReasonBytes {
		return nil, fmt.Errorf("%w: user_reason exceeds %d bytes", ErrInvalidFeedback, MaxReasonBytes)
	}

	rec := Record{
		Submission: sub,
		UserAgent:  userAgent,
		CreatedAt:  s.now().UTC(),
	}
	rec.ID = feedbackID(sub.SessionID, sub.ViolationID, rec.CreatedAt)
	if clientIP != "" {
		rec.IPHash = s.HashIP(clientIP)
	}

	s.mu.Lock()
	err := s.store.Store(ctx, rec)
	s.mu.Unlock()
	if err != nil {
		s.emit(sub.SessionID, events.TypeFeedbackError, events.FeedbackNotificationData{
			ViolationID: sub.ViolationID, Status: "error",
		})
		return nil, fmt.Errorf("storing feedback: %w", err)
	}

	s.emit(sub.SessionID, events.TypeFeedbackNotification, events.FeedbackNotificationData{
		FeedbackID: rec.ID, ViolationID: rec.ViolationID, Status: "stored",
	})
	return &rec, nil
}

// StatsForSession summarizes one session.
func (s *Service) StatsForSession(ctx context.Context, sessionID string) (Stats, error) {
	return s.store.StatsForSession(ctx, sessionID)
}

// SessionFeedback lists one session's records.
func (s *Service) SessionFeedback(ctx context.Context, sessionID string) ([]Record, error) {
	return s.store.SessionFeedback(ctx, sessionID)
}

// Insights aggregates the lookback window. daysBack is clamped to
// [1, 365].
func (s *Service) Insights(ctx context.Context, daysBack int) (Insights, error) {
	if daysBack < 1 {
		daysBack = 1
	}
	if daysBack > 365 {
		daysBack = 365
	}
	since := s.now().UTC().AddDate(0, 0, -daysBack)
	records, err := s.store.Recent(ctx, since)
	if err != nil {
		return Insights{}, fmt.Errorf("loading feedback window: %w", err)
	}
	ins := ComputeInsights(records)
	ins.DaysBack = daysBack
	return ins, nil
}

// Delete removes one record.
func (s *Service) Delete(ctx context.Context, sessionID, feedbackID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, sessionID, feedbackID)
}

// HashIP returns the keyed one-way hash stored instead of a client
// address.
func (s *Service) HashIP(ip string) string {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

// Adjuster returns a confidence adjustment hook derived from the last
// daysBack of feedback: buckets with at least minSamples verdicts shift
// confidence toward their observed accuracy, bounded to +/-0.05.
func (s *Service) Adjuster(daysBack, minSamples int) confidence.AdjustFunc {
	if minSamples < 1 {
		minSamples = 5
	}
	return func(ruleID, contentType string) float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		since := s.now().UTC().AddDate(0, 0, -daysBack)
		records, err := s.store.Recent(ctx, since)
		if err != nil {
			return 0
		}

		var n int
		var acc float64
		for _, r := range records {
			if r.ErrorType != ruleID {
				continue
			}
			if contentType != "" && r.ContentType != "" && r.ContentType != contentType {
				continue
			}
			n++
			acc += verdictScore(r.Kind)
		}
		if n < minSamples {
			return 0
		}
		// Centered on 0.5 accuracy; full swing at 0 or 1.
		adj := (acc/float64(n) - 0.5) * 2 * confidence.MaxFeedbackAdjust
		if adj > confidence.MaxFeedbackAdjust {
			adj = confidence.MaxFeedbackAdjust
		}
		if adj < -confidence.MaxFeedbackAdjust {
			adj = -confidence.MaxFeedbackAdjust
		}
		return adj
	}
}

func (s *Service) emit(sessionID string, typ events.Type, data any) {
	if s.sink == nil || sessionID == "" {
		return
	}
	s.sink.Emit(sessionID, typ, data)
}

// feedbackID is the lowercase 12-hex prefix of SHA-256 over
// session|violation|timestamp.
func feedbackID(sessionID, violationID string, ts time.Time) string {
	sum := sha256.Sum256([]byte(sessionID + "|" + violationID + "|" + ts.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:12]
}

// verdictScore maps a kind to its accuracy contribution.
func verdictScore(kind string) float64 {
	switch kind {
	case KindCorrect:
		return 1
	case KindPartiallyCorrect:
		return 0.5
	}
	return 0
}

// firstValidationProblem flattens validator output to one readable
// field-level message.
func firstValidationProblem(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %s failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}
