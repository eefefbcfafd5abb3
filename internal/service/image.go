package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

// ImageResizer bounds the longer edge of an image and re-encodes it as JPEG.
type ImageResizer struct {
	MaxEdge int
	Quality int
}

func NewImageResizer(maxEdge, quality int) *ImageResizer {
	return &ImageResizer{MaxEdge: maxEdge, Quality: quality}
}

// CheckImage reads only the image header. It fails for unknown formats and for
// images over config.MaxImagePixels.
func CheckImage(data []byte) error {
	head, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if int64(head.Width)*int64(head.Height) > config.MaxImagePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels",
			domain.ErrUnsupportedImage, head.Width, head.Height, config.MaxImagePixels)
	}
	return nil
}

// Prepare is an ImagePreparer. It never modifies data.
func (r *ImageResizer) Prepare(data []byte) ([]byte, error) {
	if err := CheckImage(data); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}

	img := src
	b := src.Bounds()
	if w, h := ScaledSize(b.Dx(), b.Dy(), r.MaxEdge); w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ScaledSize keeps the aspect ratio and shrinks so neither edge exceeds maxEdge.
func ScaledSize(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
