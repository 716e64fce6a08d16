package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

// Storage categories. Keys are "<category>/<file id>"; each category maps to
// a subdirectory under the base path.
const (
	CategoryUploads   = "uploads"
	CategoryTemplates = "templates"
	CategoryExternal  = "external"
	CategoryExports   = "exports"
)

// Key builds a storage key for a file id within a category.
func Key(category, fileID string) string {
	return category + "/" + fileID
}

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	for _, category := range []string{CategoryUploads, CategoryTemplates, CategoryExternal, CategoryExports} {
		if err := os.MkdirAll(filepath.Join(basePath, category), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "create file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return domain.WrapError(domain.ErrStorage, "write file", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open file", fmt.Errorf("key=%s", key))
		}
		return nil, domain.WrapError(domain.ErrStorage, "open file", err)
	}
	return f, nil
}

// resolve rejects keys that would escape the base path.
func (s *Storage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve storage key", fmt.Errorf("key=%s", key))
	}
	return filepath.Join(s.basePath, cleaned), nil
}
