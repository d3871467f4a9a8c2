// Package intake turns user-picked files into image slots: raw bytes ready for
// transfer, a detected MIME type, a downscaled preview held in a ref-counted
// registry, and a best-effort EXIF summary.
package intake

import (
	"bytes"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	// Registered decoders for DecodeConfig and preview generation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions maps file extensions to the MIME type sent to Gemini.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

const fallbackMIMEType = "application/octet-stream"

// DetectMIMEType resolves the MIME type of an image from its name, falling back
// to content sniffing. It returns "" when the content is not an image.
func DetectMIMEType(name string, data []byte) string {
	if len(data) == 0 {
		return ""
	}

	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}

	ext := strings.ToLower(filepath.Ext(name))
	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		// A known image extension is trusted unless the bytes are clearly something else.
		if strings.HasPrefix(sniffed, "image/") || sniffed == fallbackMIMEType || decodable(data) {
			return mimeType
		}
		return ""
	}

	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return "image/" + format
	}
	return ""
}

func decodable(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}
