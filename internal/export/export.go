// Package export delivers generated livery images: the fixed-name download,
// a local directory sink, an S3 sink, and a zip of the session history.
package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileName is the name every downloaded result is saved under.
const FileName = "generated_livery.png"

// ErrInvalidDataURI is returned for anything that is not a base64 data URI.
var ErrInvalidDataURI = errors.New("invalid data URI")

// DecodeDataURI splits a base64 data URI into its MIME type and bytes.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrInvalidDataURI)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mimeType, data, nil
}

// ExtensionFor returns the file extension for an image MIME type.
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// Sink stores an exported image and returns where it went.
type Sink interface {
	Export(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// FileSink writes exports into a local directory.
type FileSink struct {
	Dir string
}

// Export writes data to Dir/name, creating Dir when needed.
func (s FileSink) Export(_ context.Context, name, mimeType string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Msg("Result exported")
	return path, nil
}

// ExportDataURI decodes uri and hands it to sink under FileName.
func ExportDataURI(ctx context.Context, sink Sink, uri string) (string, error) {
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	return sink.Export(ctx, FileName, mimeType, data)
}
