package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hugh/go-helpdesk/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	loc, err := store.Put(context.Background(), "reports/2024-03.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "2024-03.pdf"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(got))
}

func TestLocalStore_KeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	loc, err := store.Put(context.Background(), "../../etc/evil.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etc", "evil.pdf"), loc)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "reports/a.pdf", ObjectKey("reports/", "a.pdf"))
	assert.Equal(t, "reports/a.pdf", ObjectKey("/reports", "a.pdf"))
	assert.Equal(t, "a.pdf", ObjectKey("", "a.pdf"))
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), config.ReportsConfig{Storage: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), config.ReportsConfig{Storage: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.ReportsConfig{Storage: "s3"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.ReportsConfig{Storage: "gcs"})
	assert.Error(t, err)
}
