// Package plantext pulls plain text out of stored plan documents for the
// conversion pipeline. PDF and UTF-8 text documents are supported; anything
// else is rejected up front rather than sent to the reasoning engine.
package plantext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
)

var pdfMagic = []byte("%PDF-")

type Extractor struct {
	storage ports.ObjectStorage
	// maxBytes bounds how much of a stored document is read into memory.
	maxBytes int64
}

func New(storage ports.ObjectStorage, maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Extractor{storage: storage, maxBytes: maxBytes}
}

func (e *Extractor) Extract(ctx context.Context, fileID string) (string, error) {
	reader, err := e.storage.Open(ctx, localfs.Key(localfs.CategoryExternal, fileID))
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, e.maxBytes+1))
	if err != nil {
		return "", domain.WrapError(domain.ErrStorage, "read plan document", err)
	}
	if int64(len(data)) > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "read plan document", errors.New("document exceeds size limit"))
	}
	if len(data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "read plan document", errors.New("document is empty"))
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return extractPDF(data)
	}
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode plan document",
			errors.New("unsupported document encoding, expected PDF or UTF-8 text"))
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode plan document", errors.New("document contains no text"))
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	var b strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text", fmt.Errorf("page %d: %w", page, err))
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text", errors.New("pdf contains no extractable text"))
	}
	return text, nil
}
