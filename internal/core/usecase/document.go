package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
)

// maxDocumentBytes bounds how much of a stored document is loaded for a
// single engine call.
const maxDocumentBytes = 20 << 20

func loadDocument(ctx context.Context, storage ports.ObjectStorage, category, fileID string) (ports.DocumentData, error) {
	reader, err := storage.Open(ctx, localfs.Key(category, fileID))
	if err != nil {
		return ports.DocumentData{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxDocumentBytes+1))
	if err != nil {
		return ports.DocumentData{}, domain.WrapError(domain.ErrStorage, "read document", err)
	}
	if len(data) > maxDocumentBytes {
		return ports.DocumentData{}, domain.WrapError(domain.ErrInvalidInput, "read document",
			fmt.Errorf("document %s exceeds size limit", fileID))
	}
	if len(data) == 0 {
		return ports.DocumentData{}, domain.WrapError(domain.ErrInvalidInput, "read document",
			errors.New("document is empty"))
	}

	mimeType, err := detectMimeType(fileID)
	if err != nil {
		return ports.DocumentData{}, err
	}
	return ports.DocumentData{Filename: fileID, MimeType: mimeType, Data: data}, nil
}

// detectMimeType maps the file extension onto the provider media types the
// engine accepts for visual analysis.
func detectMimeType(fileID string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileID)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".webp":
		return "image/webp", nil
	case ".pdf":
		return "application/pdf", nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "detect document type",
			fmt.Errorf("unsupported document type for %s, expected PNG, JPEG, WEBP or PDF", fileID))
	}
}
