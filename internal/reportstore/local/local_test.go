package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/logging"
	"github.com/vbonduro/librarydesk/internal/reportstore"
)

func newStore(t *testing.T) (*LocalReportStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "reports")
	store, err := NewLocalReportStore(dir, logging.Discard())
	require.NoError(t, err)
	return store, dir
}

func TestLocalReportStoreSaveAndOpen(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	data := []byte("%PDF-1.4 fake")

	loc, err := store.Save(ctx, "qr_codes.pdf", "application/pdf", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "qr_codes.pdf"), loc)

	reader, mimeType, err := store.Open(ctx, "qr_codes.pdf")
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "application/pdf", mimeType)

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalReportStoreReplaces(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "loans_report.xlsx", "", bytes.NewReader([]byte("old")))
	require.NoError(t, err)
	_, err = store.Save(ctx, "loans_report.xlsx", "", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].Size)
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n > 0 {
		f.n = 0
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestLocalReportStoreFailedSaveLeavesNothing(t *testing.T) {
	store, dir := newStore(t)

	_, err := store.Save(context.Background(), "inventory_report.xlsx", "", &failingReader{n: 1})
	require.Error(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalReportStoreDeleteAndNotFound(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "a.pdf", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "a.pdf"))

	_, _, err = store.Open(ctx, "a.pdf")
	assert.ErrorIs(t, err, reportstore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "a.pdf"), reportstore.ErrNotFound)
}

func TestLocalReportStorePathTraversal(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "../escape.pdf", "", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
	_, _, err = store.Open(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, "../x"))
}
