package chapteringest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// PageFile is one file to be written into a chapter directory.
type PageFile struct {
	// Name is the final filename inside the chapter directory.
	Name string
	// Data is the file content.
	Data []byte
}

// PageStore owns the chapter directories under a storage root and serializes
// writes per chapter. Replacement is staged into a temporary directory and
// renamed over the old one, so a replaced chapter never mixes old and new
// pages even if the process dies mid-write.
type PageStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPageStore creates a PageStore rooted at root, creating it if needed.
func NewPageStore(root string) (*PageStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &PageStore{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the storage root path.
func (s *PageStore) Root() string {
	return s.root
}

// ChapterDir returns the absolute directory for a chapter.
func (s *PageStore) ChapterDir(mangaID int64, chapterNumber int) string {
	return filepath.Join(s.root, ChapterDirName(mangaID, chapterNumber))
}

// chapterLock returns the mutex serializing writes for one chapter.
func (s *PageStore) chapterLock(mangaID int64, chapterNumber int) *sync.Mutex {
	key := ChapterDirName(mangaID, chapterNumber)

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Replace atomically replaces the chapter directory contents with the given
// files. Any previous pages are discarded wholesale; there is no partial
// replacement.
func (s *PageStore) Replace(mangaID int64, chapterNumber int, files []PageFile) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to write")
	}

	lock := s.chapterLock(mangaID, chapterNumber)
	lock.Lock()
	defer lock.Unlock()

	// Stage under the root so the final rename stays on one filesystem
	stagingDir := filepath.Join(s.root, ".staging", uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	// After a successful rename the staging dir no longer exists and this
	// is a no-op; on failure it cleans up the partial write.
	defer os.RemoveAll(stagingDir)

	for _, file := range files {
		path := filepath.Join(stagingDir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write page file %s: %w", file.Name, err)
		}
	}

	finalDir := s.ChapterDir(mangaID, chapterNumber)
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return fmt.Errorf("failed to create chapter parent directory: %w", err)
	}
	if err := os.RemoveAll(finalDir); err != nil {
		return fmt.Errorf("failed to clear previous chapter directory: %w", err)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return fmt.Errorf("failed to move staged chapter into place: %w", err)
	}

	return nil
}

// Delete removes a chapter directory and everything in it.
// Deleting a chapter that has no directory is not an error.
func (s *PageStore) Delete(mangaID int64, chapterNumber int) error {
	lock := s.chapterLock(mangaID, chapterNumber)
	lock.Lock()
	defer lock.Unlock()

	dir := s.ChapterDir(mangaID, chapterNumber)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete chapter directory %s: %w", dir, err)
	}
	return nil
}

// ListPages returns the filenames in a chapter directory in lexical order,
// which equals reading order for ingested pages.
func (s *PageStore) ListPages(mangaID int64, chapterNumber int) ([]string, error) {
	dir := s.ChapterDir(mangaID, chapterNumber)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list chapter directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
