// Package chapteringest normalizes uploaded chapter content (a single PDF or
// an ordered image set) into chapter metadata plus a deterministic page
// directory on disk.
package chapteringest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// supportedImageExts are the page image extensions accepted during ingestion.
// Files with other extensions are skipped, not fatal.
var supportedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// PageFileName builds the zero-padded positional filename for a page, so
// lexical sort order equals reading order regardless of original filenames.
// Positions are 1-based.
//
// Example:
//
//	PageFileName(1, ".png") // "page_001.png"
func PageFileName(position int, ext string) string {
	return fmt.Sprintf("page_%03d%s", position, strings.ToLower(ext))
}

// IsSupportedImageExt reports whether ext (with leading dot, any case) is an
// accepted page image extension.
func IsSupportedImageExt(ext string) bool {
	_, ok := supportedImageExts[strings.ToLower(ext)]
	return ok
}

// ChapterDirName builds the relative storage directory for a chapter. This
// path is the join key between chapter metadata and page files.
//
// Example:
//
//	ChapterDirName(12, 3) // "manga_12/chapter_3"
func ChapterDirName(mangaID int64, chapterNumber int) string {
	return filepath.Join(
		fmt.Sprintf("manga_%d", mangaID),
		fmt.Sprintf("chapter_%d", chapterNumber),
	)
}

// SanitizeDocumentName reduces an uploaded filename to a safe base name for
// document-mode storage. Path separators and parent references are dropped;
// an unusable name falls back to "chapter.pdf".
func SanitizeDocumentName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "chapter.pdf"
	}
	return base
}
