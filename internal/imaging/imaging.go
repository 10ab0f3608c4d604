// Package imaging normalizes image answers before upload: every image is
// re-encoded as JPEG, and large images are also scaled down.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"virtualcare/internal/logging"
	"virtualcare/internal/media"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// ProcessingError reports an image that could not be decoded or encoded.
type ProcessingError struct {
	Filename string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("failed to process image %s: %v", e.Filename, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Pipeline holds the compression policy.
type Pipeline struct {
	// MaxBytesBeforeResize gates resizing; smaller files are only re-encoded.
	MaxBytesBeforeResize int64
	// MaxDimension bounds the longest side of a resized image.
	MaxDimension int
	// Quality is the JPEG quality, 1-100.
	Quality int
}

// DefaultPipeline returns the standard policy: resize above 1 MiB to at most
// 1200px, JPEG quality 80.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		MaxBytesBeforeResize: 1024 * 1024,
		MaxDimension:         1200,
		Quality:              80,
	}
}

// Prepare converts f to a JPEG named after the original with a .jpg
// extension. The input is not modified.
func (p *Pipeline) Prepare(ctx context.Context, f *media.File) (*media.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, &ProcessingError{Filename: f.Name, Err: err}
	}

	resized := false
	if f.Size() > p.MaxBytesBeforeResize {
		if w, h, ok := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), p.MaxDimension); ok {
			src = scale(src, w, h)
			resized = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(src), &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, &ProcessingError{Filename: f.Name, Err: err}
	}

	out := &media.File{
		Name: JPEGName(f.Name),
		MIME: "image/jpeg",
		Data: buf.Bytes(),
	}

	logging.Get(logging.CategoryImaging).Info("image compressed",
		zap.String("name", f.Name),
		zap.String("format", format),
		zap.Bool("resized", resized),
		zap.String("original_mb", f.SizeMB()),
		zap.String("new_mb", out.SizeMB()),
	)
	return out, nil
}

// JPEGName replaces the extension of name with .jpg.
func JPEGName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// fitWithin returns dimensions scaled so the longest side is at most max,
// preserving aspect ratio. ok is false when no downscale is needed.
func fitWithin(w, h, max int) (int, int, bool) {
	if w <= max && h <= max {
		return w, h, false
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh, true
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max, true
}

func scale(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// flatten composites src over white so transparent regions do not turn
// black in the JPEG.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
