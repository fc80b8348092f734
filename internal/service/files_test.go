package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newFiles(t *testing.T, maxBytes int64) (*FileService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	fs := NewFileService(store, FileOptions{
		MaxBytes:     maxBytes,
		AllowedTypes: []string{"image/png", "text/plain"},
		URLExpiry:    15 * time.Minute,
	}, zerolog.Nop())
	return fs, store
}

func TestFileService_Upload(t *testing.T) {
	fs, store := newFiles(t, 1024)
	ctx := context.Background()
	owner := model.User{ID: "u-1", Role: model.RoleUser}
	fs.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	info, err := fs.Upload(ctx, owner, "avatars", "me.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Key, "avatars/2024/03/09/"))
	assert.True(t, strings.HasSuffix(info.Key, ".png"))
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "u-1", info.UploadedBy)
	assert.Equal(t, "me.png", info.Filename)

	data, ok := store.Bytes(info.Key)
	require.True(t, ok)
	assert.Equal(t, pngHeader, data)

	got, err := fs.Info(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UploadedBy)

	url, exp, err := fs.DownloadURL(ctx, info.Key)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, fs.now().Add(15*time.Minute), exp)
}

func TestFileService_UploadRejects(t *testing.T) {
	fs, _ := newFiles(t, 16)
	ctx := context.Background()
	owner := model.User{ID: "u-1"}

	_, err := fs.Upload(ctx, owner, "", "big.txt", strings.NewReader(strings.Repeat("a", 17)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = fs.Upload(ctx, owner, "", "doc.pdf", strings.NewReader("%PDF-1.4\n"))
	assert.ErrorIs(t, err, ErrFileTypeNotAllowed)

	_, err = fs.Upload(ctx, owner, "../etc", "a.txt", strings.NewReader("hi"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = fs.Upload(ctx, owner, "", "a.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidation)

	info, err := fs.Upload(ctx, owner, "", "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Key, "uploads/"))
}

func TestFileService_ListPages(t *testing.T) {
	fs, _ := newFiles(t, 1024)
	ctx := context.Background()
	owner := model.User{ID: "u-1"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		at := base.Add(time.Duration(i) * time.Hour)
		fs.now = func() time.Time { return at }
		_, err := fs.Upload(ctx, owner, "docs", "n.txt", strings.NewReader("note"))
		require.NoError(t, err)
	}

	page, err := fs.List(ctx, "docs", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "n.txt", page.Items[0].Filename)

	page, err = fs.List(ctx, "docs", 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = fs.List(ctx, "other", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = fs.List(ctx, "docs", 1, maxListLimit)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	_, err = fs.List(ctx, "docs", 1, maxListLimit+1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFileService_Delete(t *testing.T) {
	fs, _ := newFiles(t, 1024)
	ctx := context.Background()
	owner := model.User{ID: "u-1", Role: model.RoleUser}
	other := model.User{ID: "u-2", Role: model.RoleUser}
	admin := model.User{ID: "u-3", Role: model.RoleAdmin}

	a, err := fs.Upload(ctx, owner, "", "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	b, err := fs.Upload(ctx, owner, "", "b.txt", strings.NewReader("two"))
	require.NoError(t, err)

	assert.ErrorIs(t, fs.Delete(ctx, other, a.Key), ErrForbidden)
	require.NoError(t, fs.Delete(ctx, owner, a.Key))
	require.NoError(t, fs.Delete(ctx, admin, b.Key))

	_, err = fs.Info(ctx, a.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fs.Delete(ctx, owner, "uploads/missing.txt"), ErrNotFound)
	_, err = fs.Info(ctx, "uploads/../secret")
	assert.ErrorIs(t, err, ErrValidation)
}
