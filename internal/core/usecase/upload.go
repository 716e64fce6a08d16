package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
)

type UploadUseCase struct {
	storage ports.ObjectStorage
}

func NewUploadUseCase(storage ports.ObjectStorage) *UploadUseCase {
	return &UploadUseCase{storage: storage}
}

// Upload stores one source document and returns its opaque file id. The id
// keeps the sanitized original filename so later pipeline stages can infer the
// document type from its extension.
func (uc *UploadUseCase) Upload(ctx context.Context, category, filename string, body io.Reader) (string, error) {
	switch category {
	case localfs.CategoryUploads, localfs.CategoryTemplates, localfs.CategoryExternal:
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unknown category %q", category))
	}
	if filename == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("missing filename"))
	}

	fileID := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, localfs.Key(category, fileID), body); err != nil {
		return "", fmt.Errorf("save to object storage: %w", err)
	}
	return fileID, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
