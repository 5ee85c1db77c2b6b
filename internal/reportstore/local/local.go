package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vbonduro/librarydesk/internal/reportstore"
)

type LocalReportStore struct {
	basePath string
	logger   *slog.Logger
}

func NewLocalReportStore(basePath string, logger *slog.Logger) (*LocalReportStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalReportStore{basePath: basePath, logger: logger}, nil
}

// Save streams r into a temporary file next to the target and renames it
// into place once synced. The temporary file is removed on every failure.
func (s *LocalReportStore) Save(ctx context.Context, name, mimeType string, r io.Reader) (location string, err error) {
	target, err := s.safeJoin(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(s.basePath, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			if cerr := f.Close(); cerr != nil {
				s.logger.Error("failed to close report after write error", "error", cerr)
			}
		}
		if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			s.logger.Error("failed to remove temporary report", "path", tmp, "error", rerr)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync file: %w", err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err = os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}

	s.logger.Info("report saved", "path", target, "mime_type", mimeType)
	return target, nil
}

func (s *LocalReportStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(name)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", reportstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, extToMIMEType(filePath), nil
}

func (s *LocalReportStore) Delete(ctx context.Context, name string) error {
	filePath, err := s.safeJoin(name)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return reportstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns saved reports, newest first. Temporary files are skipped.
func (s *LocalReportStore) List(ctx context.Context) ([]reportstore.Entry, error) {
	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	var out []reportstore.Entry
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, reportstore.Entry{
			Name:     de.Name(),
			Size:     info.Size(),
			MIMEType: extToMIMEType(de.Name()),
			SavedAt:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// safeJoin resolves name relative to basePath and rejects directory traversal.
func (s *LocalReportStore) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func extToMIMEType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
