package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentStore persists onboarding documents (policies, guides, forms)
// on local disk under random names.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

func (s *DocumentStore) Save(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	filename := uuid.NewString() + ext
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}
	return filename, nil
}

func (s *DocumentStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Path(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid document filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}
