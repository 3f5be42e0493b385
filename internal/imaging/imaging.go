// Package imaging normalises quilt photos before they are stored.
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
)

const (
	// MaxDimension bounds the width and height of a stored photo.
	MaxDimension = 1024
	// ThumbnailSize is the edge of the square thumbnail.
	ThumbnailSize = 256
	// JPEGQuality is used for every encoded output.
	JPEGQuality = 85
	// MaxUploadBytes bounds an uploaded photo.
	MaxUploadBytes = 8 << 20
)

// AllowedMIME lists the accepted input types, sniffed from content.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed upload. Both images are JPEG.
type Photo struct {
	Image     []byte
	Thumbnail []byte
	MIME      string
}

// Process validates r as JPEG or PNG by content, downscales it to fit
// MaxDimension and renders a square thumbnail.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)
	}

	if detected := http.DetectContentType(data); !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format %s, only JPEG and PNG are accepted", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	full, err := encode(fit(img, MaxDimension))
	if err != nil {
		return nil, err
	}
	thumb, err := encode(Thumbnail(img, ThumbnailSize))
	if err != nil {
		return nil, err
	}
	return &Photo{Image: full, Thumbnail: thumb, MIME: "image/jpeg"}, nil
}

// Thumbnail crops the centre square of img and scales it to size x size.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}

// fit scales img down so neither edge exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w > h {
		h, w = max(h*maxDim/w, 1), maxDim
	} else {
		w, h = max(w*maxDim/h, 1), maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
