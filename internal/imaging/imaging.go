// Package imaging inspects stored photos and renders thumbnails of them.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// DefaultThumbnailSize is the bounding box used when the caller gives none.
const DefaultThumbnailSize = 256

// MaxThumbnailSize caps the bounding box a caller may ask for.
const MaxThumbnailSize = 1024

// JPEGQuality is the compression quality for thumbnails.
const JPEGQuality = 85

// ErrUnsupported is returned for data that is not a decodable image.
var ErrUnsupported = errors.New("unsupported image format")

// decodable lists the MIME types Thumbnail can read.
var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Sniff returns the MIME type detected from the leading bytes of data.
// Photos are stored as uploaded, so this is what responses advertise.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// Thumbnail decodes data, downscales it so neither side exceeds maxDim
// and re-encodes it as JPEG. Images already within bounds keep their size.
func Thumbnail(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultThumbnailSize
	}
	if maxDim > MaxThumbnailSize {
		maxDim = MaxThumbnailSize
	}

	if detected := Sniff(data); !decodable[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("gif", "GIF8?a", gif.Decode, gif.DecodeConfig)
}
