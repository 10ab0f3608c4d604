// Package media models an uploaded image file held in memory and the
// allow-list and size checks applied when a user picks one.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest file accepted for upload.
const MaxUploadBytes = 10 * 1024 * 1024

// AllowedTypes is the MIME allow-list for image answers.
var AllowedTypes = []string{"image/png", "image/jpeg", "image/jpg", "image/heic"}

var extTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".heic": "image/heic",
}

// File is an in-memory file chosen by the user.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Size returns the file size in bytes.
func (f *File) Size() int64 { return int64(len(f.Data)) }

// SizeMB returns the size in MiB formatted to two decimals.
func (f *File) SizeMB() string { return FormatMB(f.Size()) }

// FormatMB formats a byte count as MiB with two decimals.
func FormatMB(n int64) string { return fmt.Sprintf("%.2f", float64(n)/1024/1024) }

// ValidationError is returned when a file is not acceptable as an image
// answer. Reason is the user-facing wording.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Filename == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

const (
	ReasonInvalidType = "Invalid file type. Please upload a PNG, JPG, JPEG, or HEIC image."
	ReasonTooLarge    = "File size must be less than 10MB."
)

// DetectMIME resolves a file's MIME type from its extension, falling back to
// content sniffing.
func DetectMIME(name string, data []byte) string {
	if t, ok := extTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	t := http.DetectContentType(data)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// Allowed reports whether mime is on the allow-list.
func Allowed(mime string) bool {
	for _, t := range AllowedTypes {
		if strings.EqualFold(t, mime) {
			return true
		}
	}
	return false
}

// CheckSize validates a byte count against MaxUploadBytes.
func CheckSize(name string, size int64) error {
	if size > MaxUploadBytes {
		return &ValidationError{Filename: name, Reason: ReasonTooLarge}
	}
	return nil
}

// Validate applies the allow-list and size limit.
func Validate(f *File) error {
	if !Allowed(f.MIME) {
		return &ValidationError{Filename: f.Name, Reason: ReasonInvalidType}
	}
	return CheckSize(f.Name, f.Size())
}

// Open reads and validates a file from disk. Type and size are checked from
// the name and os.Stat before any content is read.
func Open(path string) (*File, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	if t, ok := extTypes[strings.ToLower(filepath.Ext(name))]; ok && !Allowed(t) {
		return nil, &ValidationError{Filename: name, Reason: ReasonInvalidType}
	}
	if err := CheckSize(name, info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	f := &File{Name: name, MIME: DetectMIME(name, data), Data: data}
	if err := Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Preview is a display-ready representation of an accepted file.
type Preview struct {
	DataURL string
	Width   int // zero when the format cannot be decoded here
	Height  int
}

// NewPreview builds the data-URL preview for an accepted file.
func NewPreview(f *File) (Preview, error) {
	if err := Validate(f); err != nil {
		return Preview{}, err
	}
	p := Preview{
		DataURL: "data:" + f.MIME + ";base64," + base64.StdEncoding.EncodeToString(f.Data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		p.Width, p.Height = cfg.Width, cfg.Height
	}
	return p, nil
}
