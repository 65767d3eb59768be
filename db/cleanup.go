package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult contains statistics about a retention sweep.
type CleanupResult struct {
	// SummariesDeleted is the number of expired summary cache rows removed
	SummariesDeleted int64
	// Duration is how long the sweep took
	Duration time.Duration
}

// Cleanup removes expired summary cache rows and reclaims disk space.
// ttlDays <= 0 disables expiry; the sweep is then a no-op.
//
// Example:
//
//	result, err := repo.Cleanup(ctx, 30)
//	if err != nil {
//	    log.Printf("cleanup failed: %v", err)
//	}
func (r *Repository) Cleanup(ctx context.Context, ttlDays int) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	deleted, err := r.DeleteExpiredSummaries(ctx, ttlDays)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.SummariesDeleted = deleted

	// VACUUM must run outside a transaction. Its failure is not critical
	// since the rows are already gone.
	if deleted > 0 {
		if _, err := r.db.DB().ExecContext(ctx, "VACUUM"); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("cleanup succeeded but VACUUM failed: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CleanupSchedulerConfig holds configuration for the cleanup scheduler.
type CleanupSchedulerConfig struct {
	// TTLDays is the summary cache retention in days (0 disables expiry)
	TTLDays int
	// Interval is how often to run the sweep
	Interval time.Duration
	// OnCleanup is called after each run (optional), useful for logging
	OnCleanup func(result CleanupResult, err error)
}

// StartCleanupScheduler starts a background goroutine that periodically
// sweeps expired summary cache rows. An initial sweep runs immediately;
// the scheduler stops when the context is cancelled.
//
// Example:
//
//	repo.StartCleanupScheduler(ctx, db.CleanupSchedulerConfig{
//	    TTLDays:  30,
//	    Interval: 24 * time.Hour,
//	    OnCleanup: func(result db.CleanupResult, err error) {
//	        if err != nil {
//	            logger.Errorw("cache sweep failed", "error", err)
//	        }
//	    },
//	})
func (r *Repository) StartCleanupScheduler(ctx context.Context, config CleanupSchedulerConfig) {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}

	go func() {
		result, err := r.Cleanup(ctx, config.TTLDays)
		if config.OnCleanup != nil {
			config.OnCleanup(result, err)
		}

		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := r.Cleanup(ctx, config.TTLDays)
				if config.OnCleanup != nil {
					config.OnCleanup(result, err)
				}
			}
		}
	}()
}
