package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrFileTooLarge      = errors.New("file exceeds the size limit")
	ErrNotAnImage        = errors.New("file is not a decodable image")
)

// maxDimension bounds the stored edge length; larger uploads are
// downscaled preserving aspect ratio.
const maxDimension = 512

// PhotoStore keeps profile photos on local disk under random names so an
// uploaded filename never reaches the filesystem.
type PhotoStore struct {
	dir          string
	maxSizeBytes int64
	allowedExts  map[string]bool
}

func NewPhotoStore(dir string, maxSizeBytes int64, allowedExts []string) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}

	exts := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		exts[strings.ToLower(ext)] = true
	}
	return &PhotoStore{dir: dir, maxSizeBytes: maxSizeBytes, allowedExts: exts}, nil
}

// Save validates, re-encodes and persists an upload, returning the stored
// filename. Re-encoding strips any non-image payload smuggled past the
// extension check.
func (s *PhotoStore) Save(originalName string, size int64, data []byte) (string, error) {
	if size > s.maxSizeBytes {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !s.allowedExts[ext] {
		return "", ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrNotAnImage
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	// imaging.Save picks the encoder from the extension.
	filename := uuid.NewString() + ext
	path := filepath.Join(s.dir, filename)
	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}

	return filename, nil
}

// Delete removes a stored photo. A missing file is not an error since the
// row is the source of truth.
func (s *PhotoStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// Path resolves a stored filename inside the photo directory, rejecting
// anything that would escape it.
func (s *PhotoStore) Path(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid photo filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}
