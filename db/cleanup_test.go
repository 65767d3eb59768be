package db

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCleanupRemovesExpired(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := repo.UpsertSummary(ctx, ItemTypeBook, i, "s", "m"); err != nil {
			t.Fatalf("UpsertSummary() error = %v", err)
		}
	}
	backdateSummary(t, repo, ItemTypeBook, 1, 60)
	backdateSummary(t, repo, ItemTypeBook, 2, 45)

	result, err := repo.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if result.SummariesDeleted != 2 {
		t.Errorf("SummariesDeleted = %d, want 2", result.SummariesDeleted)
	}
	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestCleanupNothingExpired(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 1, "s", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	result, err := repo.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if result.SummariesDeleted != 0 {
		t.Errorf("SummariesDeleted = %d, want 0", result.SummariesDeleted)
	}
}

func TestStartCleanupSchedulerRunsImmediately(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 1, "s", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	backdateSummary(t, repo, ItemTypeBook, 1, 60)

	var mu sync.Mutex
	var results []CleanupResult
	done := make(chan struct{})

	repo.StartCleanupScheduler(ctx, CleanupSchedulerConfig{
		TTLDays:  30,
		Interval: time.Hour,
		OnCleanup: func(result CleanupResult, err error) {
			if err != nil {
				t.Errorf("Cleanup error: %v", err)
			}
			mu.Lock()
			results = append(results, result)
			if len(results) == 1 {
				close(done)
			}
			mu.Unlock()
		},
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for initial sweep")
	}

	mu.Lock()
	defer mu.Unlock()
	if results[0].SummariesDeleted != 1 {
		t.Errorf("SummariesDeleted = %d, want 1", results[0].SummariesDeleted)
	}
}
