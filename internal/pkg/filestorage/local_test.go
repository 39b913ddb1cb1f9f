package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["avatar"][0]
}

func TestSaveAndDeleteAvatar(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "uploads/", 1024)
	require.NoError(t, err)
	ls.now = func() time.Time { return time.UnixMilli(1700000000000) }

	public, err := ls.SaveAvatar(7, fileHeader(t, "me.PNG", "image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(public, "/uploads/avatars/7-1700000000000-"), public)
	assert.True(t, strings.HasSuffix(public, ".png"))

	stored := filepath.Join(dir, "avatars", filepath.Base(public))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, ls.DeleteAvatar(public))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ls.DeleteAvatar("https://cdn.example.com/a.png"))
}

func TestSaveAvatar_Rejects(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads", 4)
	require.NoError(t, err)

	_, err = ls.SaveAvatar(1, fileHeader(t, "a.txt", "text/plain", []byte("x")))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = ls.SaveAvatar(1, fileHeader(t, "a.png", "image/png", []byte("too large")))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
