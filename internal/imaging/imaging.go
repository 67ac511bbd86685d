// Package imaging normalizes equipment type photos before they are stored.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/erazemk/arzenal/internal/apperr"
)

const (
	// MaxUploadSize caps the raw upload read from a request body.
	MaxUploadSize = 10 << 20
	// MaxDimension is the longest stored edge in pixels.
	MaxDimension = 1024
	// JPEGQuality is used for every stored photo.
	JPEGQuality = 85
	// StoredMIME is the type of every stored photo.
	StoredMIME = "image/jpeg"
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed equipment photo.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process sniffs the upload, rejects anything other than JPEG or PNG with a
// validation error, fits it within MaxDimension and re-encodes it as JPEG.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, apperr.Validation("image exceeds %d bytes", MaxUploadSize)
	}

	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return nil, apperr.Validation("unsupported image format %s, only JPEG and PNG are accepted", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("decoding image: %v", err)
	}
	img = fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: StoredMIME, Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so its longer edge is maxDim, keeping the aspect ratio.
// Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, h*maxDim/w
	if h > w {
		newW, newH = w*maxDim/h, maxDim
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
