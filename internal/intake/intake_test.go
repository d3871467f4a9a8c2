package intake

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestDetectMIMEType(t *testing.T) {
	png := pngBytes(t, 2, 2)
	binary := []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70, 0x68, 0x65, 0x69, 0x63, 0x00, 0x01}

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"extension wins", "photo.jpg", png, "image/jpeg"},
		{"sniffed png", "upload.bin", png, "image/png"},
		{"uppercase extension", "SHOT.PNG", png, "image/png"},
		{"heic binary", "IMG_0001.HEIC", binary, "image/heic"},
		{"text with image name", "notes.png", []byte("just some text"), ""},
		{"text", "notes.txt", []byte("just some text"), ""},
		{"empty", "a.png", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.file, tt.data); got != tt.want {
				t.Errorf("DetectMIMEType(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestSelect_DecodeErrors(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name   string
		file   string
		reader *bytes.Reader
		fail   bool
	}{
		{name: "empty", file: "a.png", reader: bytes.NewReader(nil)},
		{name: "not an image", file: "a.txt", reader: bytes.NewReader([]byte("hello world"))},
		{name: "read failure", file: "a.png", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.fail {
				_, err = reg.Select(tt.file, failingReader{})
			} else {
				_, err = reg.Select(tt.file, tt.reader)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decodeErr.Name != tt.file {
				t.Errorf("expected name %s, got %s", tt.file, decodeErr.Name)
			}
		})
	}

	if reg.Len() != 0 {
		t.Errorf("failed selections must not leak previews, have %d", reg.Len())
	}
}

func TestSelect_SmallImage(t *testing.T) {
	reg := NewRegistry()
	data := pngBytes(t, 4, 3)

	slot, err := reg.Select("ref.png", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slot.HasPayload() || slot.MIMEType != "image/png" || slot.Size != int64(len(data)) {
		t.Errorf("unexpected slot %+v", slot)
	}
	if slot.Encoded() == "" || !strings.HasPrefix(slot.Encoded(), "iVBOR") {
		t.Errorf("unexpected payload %q", slot.Encoded())
	}
	if !strings.HasPrefix(slot.Preview.URL, PreviewRoute) {
		t.Errorf("unexpected preview URL %s", slot.Preview.URL)
	}

	preview, ok := reg.Lookup(slot.Preview.ID)
	if !ok {
		t.Fatal("preview not registered")
	}
	if !bytes.Equal(preview.Data, data) {
		t.Error("small images should keep original bytes")
	}
}

func TestSelect_LargeImageIsDownscaled(t *testing.T) {
	reg := NewRegistry()
	slot, err := reg.Select("big.png", bytes.NewReader(pngBytes(t, 2048, 1024)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	preview, _ := reg.Lookup(slot.Preview.ID)
	if preview.MIMEType != "image/jpeg" {
		t.Fatalf("expected jpeg preview, got %s", preview.MIMEType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(preview.Data))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if cfg.Width != 1024 || cfg.Height != 512 {
		t.Errorf("expected 1024x512, got %dx%d", cfg.Width, cfg.Height)
	}
	if slot.MIMEType != "image/png" {
		t.Error("payload MIME type must describe the original bytes")
	}
}

func TestSelectFile(t *testing.T) {
	reg := NewRegistry()
	path := filepath.Join(t.TempDir(), "target.png")
	if err := os.WriteFile(path, pngBytes(t, 2, 2), 0o644); err != nil {
		t.Fatal(err)
	}

	slot, err := reg.SelectFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Name != "target.png" {
		t.Errorf("expected base name, got %s", slot.Name)
	}

	_, err = reg.SelectFile(filepath.Join(t.TempDir(), "missing.png"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError for missing file, got %v", err)
	}
}

func TestScaleToFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 1024, 100, 50},
		{2048, 1024, 1024, 1024, 512},
		{1000, 3000, 1024, 341, 1024},
		{5000, 1, 1024, 1024, 1},
	}
	for _, tt := range tests {
		gotW, gotH := ScaleToFit(tt.w, tt.h, tt.max)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("ScaleToFit(%d,%d,%d) = %d,%d want %d,%d", tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestMetadata_Camera(t *testing.T) {
	var nilMeta *Metadata
	if nilMeta.Camera() != "" {
		t.Error("nil metadata should have no camera")
	}
	m := &Metadata{CameraMake: "FUJIFILM", CameraModel: "X-T5"}
	if m.Camera() != "FUJIFILM X-T5" {
		t.Errorf("got %q", m.Camera())
	}
}
