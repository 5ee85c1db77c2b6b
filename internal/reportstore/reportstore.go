package reportstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("report not found")

// Entry describes one saved report.
type Entry struct {
	Name     string
	Size     int64
	MIMEType string
	SavedAt  time.Time
}

type ReportStore interface {
	// Save writes r under name, replacing any earlier report of that name,
	// and returns where it was stored.
	Save(ctx context.Context, name, mimeType string, r io.Reader) (location string, err error)
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]Entry, error)
}
