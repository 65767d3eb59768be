package chapteringest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Page image decode support for validation
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"library_backend/core"
	"library_backend/db"
	"library_backend/logging"
	"library_backend/pdfextract"
)

// Format identifies the shape of an uploaded chapter payload.
type Format string

const (
	// FormatPDF is a single uploaded PDF document.
	FormatPDF Format = "pdf"
	// FormatImages is an ordered sequence of page images.
	FormatImages Format = "images"
)

// UploadFile is one uploaded file in its original order.
type UploadFile struct {
	// Name is the original filename, used for extension detection only.
	// It never influences page order.
	Name string
	// Data is the file content.
	Data []byte
}

// IngestRequest carries one chapter upload or replacement.
type IngestRequest struct {
	MangaID       int64
	ChapterNumber int
	Title         string
	Format        Format
	Files         []UploadFile
}

// IngestResult is the stored chapter shape.
type IngestResult struct {
	// ContentRef is a single filename (document) or a comma-joined
	// ordered page list (image sequence).
	ContentRef string
	// ContentKind is db.ContentKindDocument or db.ContentKindImageSequence.
	ContentKind string
	// PageCount is the number of readable pages (1 for document chapters).
	PageCount int
}

// Processor normalizes chapter uploads into metadata rows plus page files.
type Processor struct {
	repo      *db.Repository
	store     *PageStore
	extractor *pdfextract.Extractor
	logger    *logging.Logger
}

// NewProcessor creates a chapter ingestion Processor.
func NewProcessor(repo *db.Repository, store *PageStore, extractor *pdfextract.Extractor, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		repo:      repo,
		store:     store,
		extractor: extractor,
		logger:    logger.Named("chapteringest"),
	}
}

// Ingest normalizes an upload into a chapter. Re-ingesting an existing
// (mangaID, chapterNumber) replaces its pages and metadata wholesale; no
// stale pages survive a shorter replacement.
//
// PDF uploads are rasterized into an image sequence when the extraction
// adapter is available; when it is absent or fails, the original document is
// stored as a single-page document chapter. That degradation is never an
// error.
func (p *Processor) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if req.MangaID <= 0 {
		return IngestResult{}, core.NewValidationError("mangaId", "must be positive")
	}
	if req.ChapterNumber <= 0 {
		return IngestResult{}, core.NewValidationError("chapterNumber", "must be positive")
	}
	if len(req.Files) == 0 {
		return IngestResult{}, core.NewValidationError("files", "at least one file is required")
	}

	var result IngestResult
	var err error

	switch req.Format {
	case FormatImages:
		result, err = p.ingestImages(req)
	case FormatPDF:
		result, err = p.ingestPDF(ctx, req)
	default:
		return IngestResult{}, core.NewValidationError("format", fmt.Sprintf("unknown format %q", req.Format))
	}
	if err != nil {
		return IngestResult{}, err
	}

	_, err = p.repo.UpsertChapter(ctx, db.Chapter{
		MangaID:       req.MangaID,
		ChapterNumber: req.ChapterNumber,
		Title:         req.Title,
		ContentRef:    result.ContentRef,
		ContentKind:   result.ContentKind,
		PageCount:     result.PageCount,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to store chapter metadata: %w", err)
	}

	p.logger.Infow("chapter ingested",
		"manga_id", req.MangaID,
		"chapter_number", req.ChapterNumber,
		"content_kind", result.ContentKind,
		"page_count", result.PageCount)

	return result, nil
}

// ingestImages accepts an ordered image list. Each accepted file is renamed
// to its zero-padded position; unsupported or undecodable files are skipped.
// Zero accepted files rejects the whole chapter with no partial write.
func (p *Processor) ingestImages(req IngestRequest) (IngestResult, error) {
	var pages []PageFile

	for _, file := range req.Files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		if !IsSupportedImageExt(ext) {
			p.logger.Warnw("skipping unsupported page file",
				"manga_id", req.MangaID,
				"chapter_number", req.ChapterNumber,
				"file", file.Name)
			continue
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(file.Data)); err != nil {
			p.logger.Warnw("skipping undecodable page file",
				"manga_id", req.MangaID,
				"chapter_number", req.ChapterNumber,
				"file", file.Name,
				"error", err.Error())
			continue
		}

		pages = append(pages, PageFile{
			Name: PageFileName(len(pages)+1, ext),
			Data: file.Data,
		})
	}

	if len(pages) == 0 {
		return IngestResult{}, core.NewValidationError("files", "no usable image files in upload")
	}

	if err := p.store.Replace(req.MangaID, req.ChapterNumber, pages); err != nil {
		return IngestResult{}, fmt.Errorf("failed to write chapter pages: %w", err)
	}

	names := make([]string, len(pages))
	for i, page := range pages {
		names[i] = page.Name
	}

	return IngestResult{
		ContentRef:  strings.Join(names, ","),
		ContentKind: db.ContentKindImageSequence,
		PageCount:   len(pages),
	}, nil
}

// ingestPDF rasterizes the document into pages when possible, otherwise
// stores the original document as a single-page chapter.
func (p *Processor) ingestPDF(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if len(req.Files) != 1 {
		return IngestResult{}, core.NewValidationError("files", "pdf format requires exactly one file")
	}
	doc := req.Files[0]

	if p.extractor != nil && p.extractor.Available() {
		pages, err := p.extractPDFPages(ctx, req, doc)
		if err != nil {
			p.logger.Warnw("pdf extraction failed, storing as document",
				"manga_id", req.MangaID,
				"chapter_number", req.ChapterNumber,
				"error", err.Error())
		} else {
			if err := p.store.Replace(req.MangaID, req.ChapterNumber, pages); err != nil {
				return IngestResult{}, fmt.Errorf("failed to write chapter pages: %w", err)
			}

			names := make([]string, len(pages))
			for i, page := range pages {
				names[i] = page.Name
			}
			return IngestResult{
				ContentRef:  strings.Join(names, ","),
				ContentKind: db.ContentKindImageSequence,
				PageCount:   len(pages),
			}, nil
		}
	}

	// Document mode: the original file becomes the chapter's single page
	docName := SanitizeDocumentName(doc.Name)
	if err := p.store.Replace(req.MangaID, req.ChapterNumber, []PageFile{{Name: docName, Data: doc.Data}}); err != nil {
		return IngestResult{}, fmt.Errorf("failed to write chapter document: %w", err)
	}

	return IngestResult{
		ContentRef:  docName,
		ContentKind: db.ContentKindDocument,
		PageCount:   1,
	}, nil
}

// extractPDFPages writes the upload to a scratch file, verifies its
// structure, and rasterizes it. A document that fails the structure check is
// rejected before the rasterizer runs; a rasterized page count that differs
// from the document's declared count is logged but kept.
func (p *Processor) extractPDFPages(ctx context.Context, req IngestRequest, doc UploadFile) ([]PageFile, error) {
	tmpFile, err := os.CreateTemp("", "chapter-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(doc.Data); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close scratch file: %w", err)
	}

	declared, err := p.extractor.PageCount(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("pdf structure check failed: %w", err)
	}

	images, err := p.extractor.ExtractPages(ctx, tmpPath)
	if err != nil {
		return nil, err
	}
	if declared > 0 && len(images) != declared {
		p.logger.Warnw("rasterized page count differs from document",
			"manga_id", req.MangaID,
			"chapter_number", req.ChapterNumber,
			"declared_pages", declared,
			"rasterized_pages", len(images))
	}

	pages := make([]PageFile, len(images))
	for i, data := range images {
		pages[i] = PageFile{Name: PageFileName(i+1, ".png"), Data: data}
	}
	return pages, nil
}

// Delete removes a chapter's metadata row and its backing directory
// together. Returns core.ErrNotFound when the chapter does not exist.
func (p *Processor) Delete(ctx context.Context, mangaID int64, chapterNumber int) error {
	deleted, err := p.repo.DeleteChapter(ctx, mangaID, chapterNumber)
	if err != nil {
		return fmt.Errorf("failed to delete chapter metadata: %w", err)
	}
	if !deleted {
		return core.ErrNotFound
	}

	if err := p.store.Delete(mangaID, chapterNumber); err != nil {
		return err
	}

	p.logger.Infow("chapter deleted",
		"manga_id", mangaID,
		"chapter_number", chapterNumber)
	return nil
}
