package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

var documentExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// DocumentIngester reads plain text documents. Their text skips transcription.
type DocumentIngester struct {
	MinBytes int64
}

func (d *DocumentIngester) Ingest(_ context.Context, in models.Input) (*Ingested, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("%w: document input requires a path", ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(in.Path))
	if !documentExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported document type %q", ErrInvalidInput, ext)
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", ErrInvalidInput, in.Path, err)
	}
	if int64(len(data)) < d.MinBytes || strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidInput, in.Path)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", ErrInvalidInput, in.Path)
	}

	return &Ingested{
		Text: strings.TrimSpace(string(data)),
		Metadata: models.SourceMetadata{
			Kind:      models.InputDocument,
			Title:     titleFromPath(in.Path),
			Source:    in.Path,
			SizeBytes: int64(len(data)),
		},
	}, nil
}
