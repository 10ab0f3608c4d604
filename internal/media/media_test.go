package media

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func TestDetectMIME(t *testing.T) {
	t.Parallel()
	pngData := tinyPNG(t)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"a.PNG", nil, "image/png"},
		{"a.jpg", nil, "image/jpeg"},
		{"a.jpeg", nil, "image/jpeg"},
		{"a.heic", nil, "image/heic"},
		{"noext", pngData, "image/png"},
		{"notes.txt", []byte("hello"), "text/plain"},
		{"empty", nil, "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectMIME(tt.name, tt.data), tt.name)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	var verr *ValidationError

	err := Validate(&File{Name: "doc.pdf", MIME: "application/pdf", Data: []byte("x")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonInvalidType, verr.Reason)
	assert.Equal(t, "doc.pdf", verr.Filename)

	big := &File{Name: "big.jpg", MIME: "image/jpeg", Data: make([]byte, MaxUploadBytes+1)}
	err = Validate(big)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonTooLarge, verr.Reason)

	exact := &File{Name: "ok.jpg", MIME: "image/jpeg", Data: make([]byte, MaxUploadBytes)}
	assert.NoError(t, Validate(exact))

	assert.NoError(t, Validate(&File{Name: "x.jpg", MIME: "image/jpg", Data: []byte{1}}))
}

func TestOpenRejectsOversizedBeforeReading(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(11*1024*1024))
	require.NoError(t, f.Close())

	got, err := Open(path)
	assert.Nil(t, got)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonTooLarge, verr.Reason)
}

func TestOpenRejectsWrongType(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, err := Open(path)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ReasonInvalidType, verr.Reason)
}

func TestOpenAndPreview(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "front.png")
	require.NoError(t, os.WriteFile(path, tinyPNG(t), 0644))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "front.png", f.Name)
	assert.Equal(t, "image/png", f.MIME)

	p, err := NewPreview(f)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.DataURL, "data:image/png;base64,"))
	assert.Equal(t, 4, p.Width)
	assert.Equal(t, 3, p.Height)
}

func TestPreviewRejectsOversized(t *testing.T) {
	t.Parallel()
	f := &File{Name: "big.png", MIME: "image/png", Data: make([]byte, 11*1024*1024)}
	p, err := NewPreview(f)
	assert.Error(t, err)
	assert.Empty(t, p.DataURL)
}

func TestFormatMB(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.50", FormatMB(1536*1024))
	assert.Equal(t, "0.00", FormatMB(0))
}
