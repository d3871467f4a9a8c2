package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// HistoryItem is one archived result to put in a history zip.
type HistoryItem struct {
	ID        string
	CreatedAt time.Time
	ImageURI  string
}

type manifestEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	File      string    `json:"file"`
	MIMEType  string    `json:"mimeType"`
	Bytes     int       `json:"bytes"`
}

// WriteHistoryZip writes every item's image plus a manifest.json to w. Items
// keep their given order. Images are stored uncompressed since they already are.
func WriteHistoryZip(w io.Writer, items []HistoryItem) error {
	zw := zip.NewWriter(w)
	manifest := make([]manifestEntry, 0, len(items))

	for i, item := range items {
		mimeType, data, err := DecodeDataURI(item.ImageURI)
		if err != nil {
			return fmt.Errorf("history item %s: %w", item.ID, err)
		}
		name := fmt.Sprintf("%02d_%s%s", i+1, item.ID, ExtensionFor(mimeType))

		header := &zip.FileHeader{Name: name, Method: zip.Store}
		header.Modified = item.CreatedAt
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create ZIP entry for %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("write to ZIP for %s: %w", name, err)
		}

		manifest = append(manifest, manifestEntry{
			ID:        item.ID,
			CreatedAt: item.CreatedAt,
			File:      name,
			MIMEType:  mimeType,
			Bytes:     len(data),
		})
	}

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: "manifest.json", Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create ZIP manifest: %w", err)
	}
	enc := json.NewEncoder(entry)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("write ZIP manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close ZIP writer: %w", err)
	}
	return nil
}
