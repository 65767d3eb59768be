package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newTestRepository creates a migrated temp-file database and a repository
// over it.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	database, err := NewDatabaseWithConfig(DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		MigrationsPath: "file://migrations",
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return NewRepository(database)
}

// backdateSummary rewrites a cache row's timestamp to age days in the past.
func backdateSummary(t *testing.T, repo *Repository, itemType string, itemID int64, days int) {
	t.Helper()

	stamp := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Format(sqliteTimeLayout)
	_, err := repo.db.DB().Exec(
		"UPDATE summary_cache SET created_at = ? WHERE item_type = ? AND item_id = ?",
		stamp, itemType, itemID)
	if err != nil {
		t.Fatalf("Failed to backdate summary: %v", err)
	}
}

func TestGetSummaryMiss(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetSummary(context.Background(), ItemTypeBook, 1, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got != nil {
		t.Errorf("Expected miss, got %+v", got)
	}
}

func TestUpsertAndGetSummary(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 42, "A summary.", "test-model"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	got, err := repo.GetSummary(ctx, ItemTypeBook, 42, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got == nil {
		t.Fatal("Expected hit, got miss")
	}
	if got.Summary != "A summary." {
		t.Errorf("Summary = %q, want %q", got.Summary, "A summary.")
	}
	if got.Model != "test-model" {
		t.Errorf("Model = %q, want %q", got.Model, "test-model")
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestUpsertSummaryReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeChapter, 7, "First.", "model-a"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	if err := repo.UpsertSummary(ctx, ItemTypeChapter, 7, "Second.", "model-b"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	got, err := repo.GetSummary(ctx, ItemTypeChapter, 7, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got.Summary != "Second." || got.Model != "model-b" {
		t.Errorf("Got %q/%q, want last writer", got.Summary, got.Model)
	}

	var count int
	if err := repo.db.DB().QueryRow("SELECT COUNT(*) FROM summary_cache").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after upsert, got %d", count)
	}
}

func TestGetSummaryNamespaceIsolation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 1, "Book one.", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	if err := repo.UpsertSummary(ctx, ItemTypeChapter, 1, "Chapter one.", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	book, err := repo.GetSummary(ctx, ItemTypeBook, 1, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if book == nil || book.Summary != "Book one." {
		t.Errorf("Expected book summary, got %+v", book)
	}

	chapter, err := repo.GetSummary(ctx, ItemTypeChapter, 1, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if chapter == nil || chapter.Summary != "Chapter one." {
		t.Errorf("Expected chapter summary, got %+v", chapter)
	}
}

func TestGetSummaryLazyExpiry(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 5, "Old summary.", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	backdateSummary(t, repo, ItemTypeBook, 5, 31)

	got, err := repo.GetSummary(ctx, ItemTypeBook, 5, 30)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got != nil {
		t.Errorf("Expected expired row to miss, got %+v", got)
	}

	// The stale row was deleted, not just hidden
	var count int
	if err := repo.db.DB().QueryRow("SELECT COUNT(*) FROM summary_cache").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected stale row deleted, %d rows remain", count)
	}
}

func TestGetSummaryTTLDisabled(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 5, "Old but kept.", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	backdateSummary(t, repo, ItemTypeBook, 5, 365)

	got, err := repo.GetSummary(ctx, ItemTypeBook, 5, 0)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got == nil {
		t.Fatal("Expected hit with TTL disabled")
	}
}

func TestGetSummaryUnparseableTimestampTreatedFresh(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 9, "Odd timestamp.", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	if _, err := repo.db.DB().Exec(
		"UPDATE summary_cache SET created_at = 'not-a-timestamp' WHERE item_type = ? AND item_id = ?",
		ItemTypeBook, int64(9)); err != nil {
		t.Fatalf("Failed to corrupt timestamp: %v", err)
	}

	got, err := repo.GetSummary(ctx, ItemTypeBook, 9, 30)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got == nil {
		t.Fatal("Expected unparseable timestamp to be treated as fresh")
	}
	if got.Summary != "Odd timestamp." {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestDeleteSummaries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := repo.UpsertSummary(ctx, ItemTypeBook, i, "s", "m"); err != nil {
			t.Fatalf("UpsertSummary() error = %v", err)
		}
	}

	first, err := repo.GetSummary(ctx, ItemTypeBook, 1, 0)
	if err != nil || first == nil {
		t.Fatalf("GetSummary() = %v, %v", first, err)
	}

	deleted, err := repo.DeleteSummaries(ctx, []int64{first.ID, 99999})
	if err != nil {
		t.Fatalf("DeleteSummaries() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if deleted, err := repo.DeleteSummaries(ctx, nil); err != nil || deleted != 0 {
		t.Errorf("DeleteSummaries(nil) = %d, %v, want 0, nil", deleted, err)
	}
}

func TestDeleteExpiredSummaries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Two stale, one fresh, one with a corrupt timestamp
	for i := int64(1); i <= 4; i++ {
		if err := repo.UpsertSummary(ctx, ItemTypeBook, i, "s", "m"); err != nil {
			t.Fatalf("UpsertSummary() error = %v", err)
		}
	}
	backdateSummary(t, repo, ItemTypeBook, 1, 40)
	backdateSummary(t, repo, ItemTypeBook, 2, 35)
	if _, err := repo.db.DB().Exec(
		"UPDATE summary_cache SET created_at = 'garbage' WHERE item_id = 3"); err != nil {
		t.Fatalf("Failed to corrupt timestamp: %v", err)
	}

	deleted, err := repo.DeleteExpiredSummaries(ctx, 30)
	if err != nil {
		t.Fatalf("DeleteExpiredSummaries() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	var count int
	if err := repo.db.DB().QueryRow("SELECT COUNT(*) FROM summary_cache").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 surviving rows, got %d", count)
	}
}

func TestDeleteExpiredSummariesTTLDisabled(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertSummary(ctx, ItemTypeBook, 1, "s", "m"); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}
	backdateSummary(t, repo, ItemTypeBook, 1, 400)

	deleted, err := repo.DeleteExpiredSummaries(ctx, 0)
	if err != nil {
		t.Fatalf("DeleteExpiredSummaries() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 with expiry disabled", deleted)
	}
}

func TestChapterLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	got, err := repo.GetChapter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if got != nil {
		t.Errorf("Expected miss, got %+v", got)
	}

	id, err := repo.UpsertChapter(ctx, Chapter{
		MangaID:       1,
		ChapterNumber: 1,
		Title:         "The Beginning",
		ContentRef:    "page_001.png,page_002.png",
		ContentKind:   ContentKindImageSequence,
		PageCount:     2,
	})
	if err != nil {
		t.Fatalf("UpsertChapter() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("Expected positive row id, got %d", id)
	}

	got, err = repo.GetChapter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if got == nil {
		t.Fatal("Expected hit")
	}
	if got.Title != "The Beginning" || got.PageCount != 2 || got.ContentKind != ContentKindImageSequence {
		t.Errorf("Unexpected chapter: %+v", got)
	}

	deleted, err := repo.DeleteChapter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("DeleteChapter() error = %v", err)
	}
	if !deleted {
		t.Error("Expected deletion")
	}

	deleted, err = repo.DeleteChapter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("DeleteChapter() error = %v", err)
	}
	if deleted {
		t.Error("Expected no-op deleting a missing chapter")
	}
}

func TestUpsertChapterReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	firstID, err := repo.UpsertChapter(ctx, Chapter{
		MangaID: 3, ChapterNumber: 2,
		ContentRef:  "chapter.pdf",
		ContentKind: ContentKindDocument,
		PageCount:   1,
	})
	if err != nil {
		t.Fatalf("UpsertChapter() error = %v", err)
	}

	secondID, err := repo.UpsertChapter(ctx, Chapter{
		MangaID: 3, ChapterNumber: 2,
		Title:       "Replaced",
		ContentRef:  "page_001.png",
		ContentKind: ContentKindImageSequence,
		PageCount:   1,
	})
	if err != nil {
		t.Fatalf("UpsertChapter() error = %v", err)
	}
	if firstID != secondID {
		t.Errorf("Expected stable row id on replace, got %d then %d", firstID, secondID)
	}

	got, err := repo.GetChapter(ctx, 3, 2)
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if got.ContentKind != ContentKindImageSequence || got.Title != "Replaced" {
		t.Errorf("Unexpected chapter after replace: %+v", got)
	}
}

func TestListChaptersOrdered(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, n := range []int{3, 1, 2} {
		if _, err := repo.UpsertChapter(ctx, Chapter{
			MangaID: 8, ChapterNumber: n,
			ContentRef:  "page_001.png",
			ContentKind: ContentKindImageSequence,
			PageCount:   1,
		}); err != nil {
			t.Fatalf("UpsertChapter() error = %v", err)
		}
	}
	// Another manga's chapter must not leak into the listing
	if _, err := repo.UpsertChapter(ctx, Chapter{
		MangaID: 9, ChapterNumber: 1,
		ContentRef:  "page_001.png",
		ContentKind: ContentKindImageSequence,
		PageCount:   1,
	}); err != nil {
		t.Fatalf("UpsertChapter() error = %v", err)
	}

	chapters, err := repo.ListChapters(ctx, 8)
	if err != nil {
		t.Fatalf("ListChapters() error = %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(chapters))
	}
	for i, ch := range chapters {
		if ch.ChapterNumber != i+1 {
			t.Errorf("chapters[%d].ChapterNumber = %d, want %d", i, ch.ChapterNumber, i+1)
		}
	}
}

func TestRepositoryClosedDatabase(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Every method must report an error instead of panicking
	if _, err := repo.GetSummary(ctx, ItemTypeBook, 1, 0); err == nil {
		t.Error("GetSummary() expected error after close")
	}
	if err := repo.UpsertSummary(ctx, ItemTypeBook, 1, "s", "m"); err == nil {
		t.Error("UpsertSummary() expected error after close")
	}
	if _, err := repo.DeleteSummaries(ctx, []int64{1}); err == nil {
		t.Error("DeleteSummaries() expected error after close")
	}
	if _, err := repo.DeleteExpiredSummaries(ctx, 30); err == nil {
		t.Error("DeleteExpiredSummaries() expected error after close")
	}
	if _, err := repo.GetChapter(ctx, 1, 1); err == nil {
		t.Error("GetChapter() expected error after close")
	}
	if _, err := repo.UpsertChapter(ctx, Chapter{MangaID: 1, ChapterNumber: 1}); err == nil {
		t.Error("UpsertChapter() expected error after close")
	}
	if _, err := repo.DeleteChapter(ctx, 1, 1); err == nil {
		t.Error("DeleteChapter() expected error after close")
	}
	if _, err := repo.ListChapters(ctx, 1); err == nil {
		t.Error("ListChapters() expected error after close")
	}
}
