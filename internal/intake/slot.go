package intake

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ImageSlot is one loaded input image. The slot owns Data and its Preview handle.
type ImageSlot struct {
	Name     string
	MIMEType string
	Data     []byte
	Preview  Handle
	Size     int64
	Metadata *Metadata
}

// Encoded returns the transfer payload: standard base64 of Data.
func (s *ImageSlot) Encoded() string {
	if s == nil || len(s.Data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.Data)
}

// HasPayload reports whether the slot holds image bytes.
func (s *ImageSlot) HasPayload() bool {
	return s != nil && len(s.Data) > 0
}

// Select reads an image from r and registers its preview. The caller owns the
// returned slot's Preview handle and must Release it when the slot is replaced.
func (r *Registry) Select(name string, rd io.Reader) (*ImageSlot, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, &DecodeError{Name: name, Reason: "read failed", Err: err}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Name: name, Reason: "file is empty"}
	}

	mimeType := DetectMIMEType(name, data)
	if mimeType == "" {
		return nil, &DecodeError{Name: name, Reason: "not an image"}
	}

	previewData, previewMIME := BuildPreview(data, mimeType, DefaultPreviewMaxDimension)
	handle := r.Acquire(previewData, previewMIME)

	metadata, err := ExtractMetadata(data)
	if err != nil {
		log.Debug().Err(err).Str("file", name).Msg("No EXIF metadata")
		metadata = nil
	}

	log.Info().
		Str("file", name).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Str("preview", handle.ID).
		Msg("Image loaded")

	return &ImageSlot{
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
		Preview:  handle,
		Size:     int64(len(data)),
		Metadata: metadata,
	}, nil
}

// SelectFile is Select for a path on disk.
func (r *Registry) SelectFile(path string) (*ImageSlot, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Name: name, Reason: "open failed", Err: err}
	}
	defer f.Close()

	slot, err := r.Select(name, f)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", path, err)
	}
	return slot, nil
}
