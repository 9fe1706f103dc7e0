package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-meetings-backend/pkg/models"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	pdfBytes = []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")
)

func newStore(t *testing.T, maxBytes int64) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "uploads"), maxBytes, nil)
	require.NoError(t, err)
	return s
}

func TestSaveImage(t *testing.T) {
	s := newStore(t, 0)
	assert.Equal(t, DefaultMaxFileBytes, s.MaxBytes())

	att, err := s.Save(FieldImages, "合影.PNG", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentImage, att.Kind)
	assert.Equal(t, "合影.PNG", att.OriginalName)
	assert.Equal(t, int64(len(pngBytes)), att.SizeBytes)
	assert.True(t, strings.HasPrefix(att.StoredFilename, "images-"))
	assert.True(t, strings.HasSuffix(att.StoredFilename, ".png"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), att.StoredFilename))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSaveUsesDetectedExtensionWhenMissing(t *testing.T) {
	s := newStore(t, 0)
	att, err := s.Save(FieldFiles, "report", bytes.NewReader(pdfBytes))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentFile, att.Kind)
	assert.True(t, strings.HasPrefix(att.StoredFilename, "files-"))
	assert.True(t, strings.HasSuffix(att.StoredFilename, ".pdf"))
}

func TestSaveIgnoresClientExtension(t *testing.T) {
	s := newStore(t, 0)

	att, err := s.Save(FieldImages, "x.html", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(att.StoredFilename))
	assert.Equal(t, "x.html", att.OriginalName)

	att, err = s.Save(FieldFiles, "minutes.png", bytes.NewReader(pdfBytes))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(att.StoredFilename))
}

func TestSaveRejects(t *testing.T) {
	s := newStore(t, 64)

	_, err := s.Save(FieldFiles, "notes.txt", strings.NewReader("plain text is not allowed"))
	assert.True(t, models.IsValidationError(err))

	_, err = s.Save(FieldImages, "big.png", bytes.NewReader(append(pngBytes, make([]byte, 64)...)))
	assert.True(t, models.IsValidationError(err))

	_, err = s.Save("avatar", "a.png", bytes.NewReader(pngBytes))
	assert.True(t, models.IsValidationError(err))

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListAndRemove(t *testing.T) {
	s := newStore(t, 0)
	a, err := s.Save(FieldImages, "a.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	b, err := s.Save(FieldFiles, "b.pdf", bytes.NewReader(pdfBytes))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), tempPrefix+"partial"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub"), 0o755))

	names, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.StoredFilename, b.StoredFilename}, names)

	s.Remove(a.StoredFilename, "missing.png")
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{b.StoredFilename}, names)
}

func TestKindForField(t *testing.T) {
	k, ok := KindForField(FieldImages)
	assert.True(t, ok)
	assert.Equal(t, models.AttachmentImage, k)
	_, ok = KindForField("other")
	assert.False(t, ok)
}
