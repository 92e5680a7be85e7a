package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileStore validates and persists uploaded PDFs into the upload directory
// with sanitized, collision-free filenames.
type FileStore struct {
	dir         string
	maxFileSize int64
}

var unsafeFilenameRe = regexp.MustCompile(`[^\w\-.]`)

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, maxFileSize int64) *FileStore {
	return &FileStore{dir: dir, maxFileSize: maxFileSize}
}

// SaveUpload validates the upload and writes it to disk, returning the
// stored path. Only .pdf files within the size limit are accepted.
func (fs *FileStore) SaveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return "", fmt.Errorf("only PDF files allowed, received: %s", header.Filename)
	}
	if fs.maxFileSize > 0 && header.Size > fs.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", header.Size, fs.maxFileSize)
	}

	destPath := filepath.Join(fs.dir, fs.safeFilename(header.Filename))
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return destPath, nil
}

// Remove deletes a stored PDF by name, ignoring files that are already gone.
func (fs *FileStore) Remove(name string) error {
	path := filepath.Join(fs.dir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path resolves a stored file name, rejecting traversal outside the store.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, filepath.Base(name))
}

// safeFilename strips unsafe characters and appends a counter when the name
// already exists, so re-uploads never clobber indexed files.
func (fs *FileStore) safeFilename(filename string) string {
	safe := unsafeFilenameRe.ReplaceAllString(filepath.Base(filename), "_")
	base := strings.TrimSuffix(safe, filepath.Ext(safe))
	ext := filepath.Ext(safe)

	final := safe
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(fs.dir, final)); os.IsNotExist(err) {
			return final
		}
		final = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
}
