package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadDeleteURL(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: dir, BaseURL: "/api/v1/files"})
	require.NoError(t, err)

	blob, err := s.Upload(context.Background(), "users", "avatar.png", bytes.NewReader([]byte("fake-png-bytes")), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(blob.ID, "users/"))
	assert.True(t, strings.HasSuffix(blob.ID, ".png"), "расширение исходного файла сохраняется")
	assert.Equal(t, "/api/v1/files/"+blob.ID, blob.URL)

	data, err := os.ReadFile(filepath.Join(dir, blob.ID))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png-bytes"), data)

	require.NoError(t, s.Delete(context.Background(), blob.ID))
	_, err = os.Stat(filepath.Join(dir, blob.ID))
	assert.True(t, os.IsNotExist(err))

	// Повторное удаление не ошибка
	assert.NoError(t, s.Delete(context.Background(), blob.ID))
}

func TestNewStorage_UnknownType(t *testing.T) {
	_, err := NewStorage(Config{Type: "ftp"})
	assert.Error(t, err)
}
