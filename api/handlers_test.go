package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"library_backend/chapteringest"
	"library_backend/db"
	"library_backend/pdfextract"
	"library_backend/summary"
)

// newTestServer builds the full handler stack over a temp database and
// storage root, with the external model tier disabled.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	database, err := db.NewDatabaseWithConfig(db.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		MigrationsPath: "file://../db/migrations",
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	repo := db.NewRepository(database)
	summaries := summary.NewService(repo, nil, 0, nil)

	store, err := chapteringest.NewPageStore(filepath.Join(t.TempDir(), "chapters"))
	if err != nil {
		t.Fatalf("Failed to create page store: %v", err)
	}

	extractor := pdfextract.NewExtractor(pdfextract.ExtractorConfig{
		LookPath: func(string) (string, error) {
			return "", errors.New("not found")
		},
	})
	processor := chapteringest.NewProcessor(repo, store, extractor, nil)

	handlers := NewHandlers(summaries, processor, repo, nil)
	server := NewServer(DefaultServerConfig(), handlers, nil)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// multipartUpload builds a chapter upload request body.
func multipartUpload(t *testing.T, fields map[string]string, files [][2]string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s) error = %v", key, err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file[0], file[1])
		if err != nil {
			t.Fatalf("CreateFormFile error = %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("part.Write error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close error = %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body := `{"text": "A hero leaves home. A hero returns changed.", "item_type": "book", "item_id": 1}`
	resp, err := http.Post(ts.URL+"/api/summaries", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(RequestIDHeader); got == "" {
		t.Error("Expected request id header")
	}

	var first SummarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if first.Summary == "" {
		t.Error("Expected non-empty summary")
	}
	if first.Model != summary.FallbackModel {
		t.Errorf("Model = %q, want %q", first.Model, summary.FallbackModel)
	}
	if first.Cached {
		t.Error("First call should not be cached")
	}

	// Same cache key hits the cache
	resp2, err := http.Post(ts.URL+"/api/summaries", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp2.Body.Close()

	var second SummarizeResponse
	if err := json.NewDecoder(resp2.Body).Decode(&second); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if !second.Cached {
		t.Error("Second call should be cached")
	}
	if second.CachedAt == nil {
		t.Error("Expected cached_at on cache hit")
	}
}

func TestSummarizeEndpointEmptyText(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/summaries", "application/json", strings.NewReader(`{"text": "  "}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if errResp.Error == "" {
		t.Error("Expected error message")
	}
}

func TestSummarizeEndpointBadJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/summaries", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestIngestChapterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t,
		map[string]string{
			"chapter_number": "1",
			"title":          "Opening",
			"format":         "images",
		},
		[][2]string{
			{"files", "zz_last.png"},
			{"files", "aa_first.png"},
		},
		pngBytes(t))

	resp, err := http.Post(ts.URL+"/api/manga/7/chapters", contentType, body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Status = %d, want 201", resp.StatusCode)
	}

	var chapter ChapterResponse
	if err := json.NewDecoder(resp.Body).Decode(&chapter); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if chapter.MangaID != 7 || chapter.ChapterNumber != 1 {
		t.Errorf("Unexpected chapter identity: %+v", chapter)
	}
	if chapter.ContentKind != db.ContentKindImageSequence {
		t.Errorf("ContentKind = %q", chapter.ContentKind)
	}
	if chapter.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", chapter.PageCount)
	}
	if chapter.ContentRef != "page_001.png,page_002.png" {
		t.Errorf("ContentRef = %q", chapter.ContentRef)
	}
}

func TestIngestChapterEndpointValidation(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t,
		map[string]string{
			"chapter_number": "0",
			"format":         "images",
		},
		[][2]string{{"files", "a.png"}},
		pngBytes(t))

	resp, err := http.Post(ts.URL+"/api/manga/7/chapters", contentType, body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestListChaptersEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for _, n := range []string{"2", "1"} {
		body, contentType := multipartUpload(t,
			map[string]string{"chapter_number": n, "format": "images"},
			[][2]string{{"files", "a.png"}},
			pngBytes(t))
		resp, err := http.Post(ts.URL+"/api/manga/3/chapters", contentType, body)
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("Ingest status = %d", resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/manga/3/chapters")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var list ChaptersResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("Count = %d, want 2", list.Count)
	}
	if list.Chapters[0].ChapterNumber != 1 || list.Chapters[1].ChapterNumber != 2 {
		t.Errorf("Chapters out of order: %+v", list.Chapters)
	}
}

func TestDeleteChapterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t,
		map[string]string{"chapter_number": "1", "format": "images"},
		[][2]string{{"files", "a.png"}},
		pngBytes(t))
	resp, err := http.Post(ts.URL+"/api/manga/5/chapters", contentType, body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete,
		ts.URL+"/api/manga/5/chapters/1", nil)
	if err != nil {
		t.Fatalf("NewRequest error = %v", err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", resp.StatusCode)
	}

	// Deleting again reports not found
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestPurgeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/admin/summary-cache/purge", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var purge PurgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&purge); err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if purge.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", purge.Deleted)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/summaries")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", resp.StatusCode)
	}
}
