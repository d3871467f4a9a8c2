package intake

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultPreviewMaxDimension is the longest edge of a generated preview.
const DefaultPreviewMaxDimension = 1024

const previewJPEGQuality = 85

// BuildPreview returns displayable preview bytes for an image.
// Decodable formats are downscaled to maxDimension and JPEG-encoded; anything
// else (HEIC) is returned unchanged.
func BuildPreview(data []byte, mimeType string, maxDimension int) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Str("mime_type", mimeType).Msg("Preview uses original bytes")
		return data, mimeType
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()

	// Small images keep their bytes so transparency and animation survive.
	if origWidth <= maxDimension && origHeight <= maxDimension {
		return data, mimeType
	}

	newWidth, newHeight := ScaleToFit(origWidth, origHeight, maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	out, err := EncodeJPEG(resized)
	if err != nil {
		log.Warn().Err(err).Msg("Preview encoding failed, using original bytes")
		return data, mimeType
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", len(out)).
		Msg("Preview generated")

	return out, "image/jpeg"
}

// ScaleToFit keeps the aspect ratio while bounding the longest edge.
func ScaleToFit(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width >= height {
		h := height * maxDimension / width
		if h < 1 {
			h = 1
		}
		return maxDimension, h
	}
	w := width * maxDimension / height
	if w < 1 {
		w = 1
	}
	return w, maxDimension
}

// EncodeJPEG encodes img at preview quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
