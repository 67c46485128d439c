package storage

import (
	"context"
	"io"
)

// FileStorage persists uploaded assets (announcement and guideline images)
// and returns a public URL for each saved file.
type FileStorage interface {
	SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}
