// Package api exposes the library backend over HTTP: summary generation,
// chapter ingestion and cache administration as JSON endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"library_backend/chapteringest"
	"library_backend/core"
	"library_backend/db"
	"library_backend/logging"
	"library_backend/summary"
)

// MaxUploadBytes caps the in-memory portion of a multipart chapter upload.
const MaxUploadBytes = 256 << 20

// Handlers holds the HTTP handlers and their backing services.
type Handlers struct {
	summaries *summary.Service
	processor *chapteringest.Processor
	repo      *db.Repository
	logger    *logging.Logger
}

// NewHandlers creates the API handler set.
func NewHandlers(summaries *summary.Service, processor *chapteringest.Processor, repo *db.Repository, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		summaries: summaries,
		processor: processor,
		repo:      repo,
		logger:    logger.Named("api"),
	}
}

// SummarizeRequest is the JSON body for POST /api/summaries.
type SummarizeRequest struct {
	Text         string `json:"text"`
	MaxSentences int    `json:"max_sentences,omitempty"`
	ItemType     string `json:"item_type,omitempty"`
	ItemID       int64  `json:"item_id,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// SummarizeResponse is the JSON response for POST /api/summaries.
type SummarizeResponse struct {
	Summary  string     `json:"summary"`
	Model    string     `json:"model"`
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cached_at,omitempty"`
}

// HandleSummarize handles POST /api/summaries.
func (h *Handlers) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	svcReq := summary.Request{
		Text:         req.Text,
		MaxSentences: req.MaxSentences,
		Force:        req.Force,
	}
	if req.ItemType != "" {
		svcReq.CacheKey = &summary.CacheKey{ItemType: req.ItemType, ItemID: req.ItemID}
	}

	result, err := h.summaries.Summarize(r.Context(), svcReq)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SummarizeResponse{
		Summary:  result.Summary,
		Model:    result.Model,
		Cached:   result.Cached,
		CachedAt: result.CachedAt,
	})
}

// ChapterResponse is the JSON shape of an ingested chapter.
type ChapterResponse struct {
	MangaID       int64  `json:"manga_id"`
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title,omitempty"`
	ContentRef    string `json:"content_ref"`
	ContentKind   string `json:"content_kind"`
	PageCount     int    `json:"page_count"`
}

// HandleIngestChapter handles POST /api/manga/{mangaID}/chapters.
//
// The request is multipart/form-data with fields chapter_number, title and
// format ("pdf" or "images") plus one or more "files" parts. File part order
// is the page order for image uploads.
func (h *Handlers) HandleIngestChapter(w http.ResponseWriter, r *http.Request) {
	mangaID, err := strconv.ParseInt(r.PathValue("mangaID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid manga id")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	chapterNumber, err := strconv.Atoi(r.FormValue("chapter_number"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid chapter_number")
		return
	}

	var files []chapteringest.UploadFile
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to open upload %s: %v", header.Filename, err))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload %s: %v", header.Filename, err))
			return
		}
		files = append(files, chapteringest.UploadFile{Name: header.Filename, Data: data})
	}

	result, err := h.processor.Ingest(r.Context(), chapteringest.IngestRequest{
		MangaID:       mangaID,
		ChapterNumber: chapterNumber,
		Title:         r.FormValue("title"),
		Format:        chapteringest.Format(r.FormValue("format")),
		Files:         files,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, ChapterResponse{
		MangaID:       mangaID,
		ChapterNumber: chapterNumber,
		Title:         r.FormValue("title"),
		ContentRef:    result.ContentRef,
		ContentKind:   result.ContentKind,
		PageCount:     result.PageCount,
	})
}

// ChaptersResponse is the JSON response for the chapter list endpoint.
type ChaptersResponse struct {
	Chapters []ChapterResponse `json:"chapters"`
	Count    int               `json:"count"`
}

// HandleListChapters handles GET /api/manga/{mangaID}/chapters.
func (h *Handlers) HandleListChapters(w http.ResponseWriter, r *http.Request) {
	mangaID, err := strconv.ParseInt(r.PathValue("mangaID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid manga id")
		return
	}

	chapters, err := h.repo.ListChapters(r.Context(), mangaID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response := ChaptersResponse{Chapters: []ChapterResponse{}, Count: len(chapters)}
	for _, ch := range chapters {
		response.Chapters = append(response.Chapters, ChapterResponse{
			MangaID:       ch.MangaID,
			ChapterNumber: ch.ChapterNumber,
			Title:         ch.Title,
			ContentRef:    ch.ContentRef,
			ContentKind:   ch.ContentKind,
			PageCount:     ch.PageCount,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteChapter handles DELETE /api/manga/{mangaID}/chapters/{chapterNumber}.
func (h *Handlers) HandleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	mangaID, err := strconv.ParseInt(r.PathValue("mangaID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid manga id")
		return
	}
	chapterNumber, err := strconv.Atoi(r.PathValue("chapterNumber"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid chapter number")
		return
	}

	if err := h.processor.Delete(r.Context(), mangaID, chapterNumber); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PurgeRequest is the JSON body for POST /api/admin/summary-cache/purge.
// An empty or absent ids list purges all expired rows instead.
type PurgeRequest struct {
	IDs []int64 `json:"ids,omitempty"`
}

// PurgeResponse reports how many cache rows were removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandlePurgeSummaryCache handles POST /api/admin/summary-cache/purge.
func (h *Handlers) HandlePurgeSummaryCache(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
	}

	var deleted int64
	var err error
	if len(req.IDs) > 0 {
		deleted, err = h.summaries.PurgeByIDs(r.Context(), req.IDs)
	} else {
		deleted, err = h.summaries.PurgeExpired(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PurgeResponse{Deleted: deleted})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// writeServiceError maps service errors onto HTTP status codes.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw("request failed", "error", err.Error())
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorw("failed to encode response", "error", err.Error())
	}
}

// ErrorResponse is the JSON error body shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}
