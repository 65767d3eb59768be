// Package summary orchestrates tiered summary generation: cache lookup,
// external model attempt, extractive fallback, then a best-effort cache
// write. A valid non-empty input always yields a summary; which tier
// produced it is reported in the result's Model field.
package summary

import (
	"context"
	"strings"
	"time"

	"library_backend/aiclient"
	"library_backend/core"
	"library_backend/db"
	"library_backend/logging"
	"library_backend/summarizer"
)

// FallbackModel is the provenance sentinel recorded when the deterministic
// extractive summarizer produced the result.
const FallbackModel = "simple"

// CacheKey identifies a summarized item in the cache.
type CacheKey struct {
	ItemType string
	ItemID   int64
}

// Request carries one summarization call.
type Request struct {
	// Text is the content to summarize. Must not be empty or whitespace.
	Text string

	// MaxSentences caps the summary length. Non-positive values use the
	// default of 3.
	MaxSentences int

	// CacheKey enables cache read/write for this item. Nil disables
	// caching entirely.
	CacheKey *CacheKey

	// Force bypasses the cache read but not the cache write.
	Force bool
}

// Result is the outcome of a summarization call.
type Result struct {
	// Summary is the generated or cached summary text.
	Summary string

	// Model identifies the tier that produced the summary: an external
	// model name or FallbackModel.
	Model string

	// Cached is true when the summary came from the cache.
	Cached bool

	// CachedAt is the cache row timestamp, set only when Cached is true.
	CachedAt *time.Time
}

// Service is the summary pipeline orchestrator.
type Service struct {
	repo    *db.Repository
	ai      *aiclient.Client
	ttlDays int
	logger  *logging.Logger
}

// NewService creates a summary Service.
//
// repo may be nil for a cache-less service (every call generates fresh).
// ttlDays configures lazy cache expiry; 0 disables it.
func NewService(repo *db.Repository, ai *aiclient.Client, ttlDays int, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		repo:    repo,
		ai:      ai,
		ttlDays: ttlDays,
		logger:  logger.Named("summary"),
	}
}

// Summarize runs the tiered pipeline for one request.
//
// Empty or whitespace-only text is an input validation failure. Every other
// outcome succeeds: external backend problems silently degrade to the
// extractive tier, and a failing cache write is logged and swallowed.
func (s *Service) Summarize(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, core.NewValidationError("text", "must not be empty")
	}

	maxSentences := req.MaxSentences
	if maxSentences <= 0 {
		maxSentences = summarizer.DefaultMaxSentences
	}

	if req.CacheKey != nil && !req.Force && s.repo != nil {
		entry, err := s.repo.GetSummary(ctx, req.CacheKey.ItemType, req.CacheKey.ItemID, s.ttlDays)
		if err != nil {
			// A broken cache read degrades to regeneration
			s.logger.Warnw("cache read failed, regenerating",
				"item_type", req.CacheKey.ItemType,
				"item_id", req.CacheKey.ItemID,
				"error", err.Error())
		} else if entry != nil {
			cachedAt := entry.CreatedAt
			return Result{
				Summary:  entry.Summary,
				Model:    entry.Model,
				Cached:   true,
				CachedAt: &cachedAt,
			}, nil
		}
	}

	text, model := s.generate(ctx, req.Text, maxSentences)

	if req.CacheKey != nil && s.repo != nil {
		if err := s.repo.UpsertSummary(ctx, req.CacheKey.ItemType, req.CacheKey.ItemID, text, model); err != nil {
			// Best-effort caching: the generated summary is still returned
			s.logger.Warnw("cache write failed, skipping",
				"item_type", req.CacheKey.ItemType,
				"item_id", req.CacheKey.ItemID,
				"error", err.Error())
		}
	}

	return Result{Summary: text, Model: model}, nil
}

// generate tries the external model tier, then the extractive fallback.
func (s *Service) generate(ctx context.Context, text string, maxSentences int) (string, string) {
	if s.ai != nil {
		if summaryText, model, ok := s.ai.TrySummarize(ctx, text, maxSentences); ok {
			return summaryText, model
		}
	}

	return summarizer.Summarize(text, maxSentences), FallbackModel
}

// PurgeExpired eagerly removes expired cache rows using the service TTL.
// Returns the number of rows deleted.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.DeleteExpiredSummaries(ctx, s.ttlDays)
}

// PurgeByIDs removes specific cache rows. Missing ids are ignored.
func (s *Service) PurgeByIDs(ctx context.Context, ids []int64) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.DeleteSummaries(ctx, ids)
}
