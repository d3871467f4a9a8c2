package intake

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fpang/livery-studio/internal/jobs"
	"github.com/rs/zerolog/log"
)

// PreviewRoute is the URL prefix previews are served under.
const PreviewRoute = "/api/previews/"

// Handle is a releasable reference to a preview held by a Registry.
type Handle struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	ETag string `json:"etag"`
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Preview is the displayable image behind a Handle.
type Preview struct {
	Data     []byte
	MIMEType string
	ETag     string
}

type previewEntry struct {
	preview Preview
	refs    int
}

// Registry owns preview bytes and frees them once every holder has released
// its handle.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*previewEntry
}

// NewRegistry creates an empty preview registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*previewEntry)}
}

// Acquire stores preview bytes and returns a handle with one reference.
func (r *Registry) Acquire(data []byte, mimeType string) Handle {
	id := jobs.GenerateID(jobs.PrefixPreview)
	etag := fmt.Sprintf("\"%016x\"", xxhash.Sum64(data))

	r.mu.Lock()
	r.entries[id] = &previewEntry{
		preview: Preview{Data: data, MIMEType: mimeType, ETag: etag},
		refs:    1,
	}
	r.mu.Unlock()

	log.Debug().Str("preview", id).Int("bytes", len(data)).Msg("Preview acquired")
	return Handle{ID: id, URL: PreviewRoute + id, ETag: etag}
}

// Retain adds a reference to a live preview. It returns false if the preview
// has already been freed.
func (r *Registry) Retain(h Handle) bool {
	if h.IsZero() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h.ID]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release drops one reference. The bytes are freed at zero. Releasing an
// unknown or zero handle is a no-op.
func (r *Registry) Release(h Handle) {
	if h.IsZero() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h.ID]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, h.ID)
		log.Debug().Str("preview", h.ID).Msg("Preview released")
	}
}

// Lookup returns the preview for an ID.
func (r *Registry) Lookup(id string) (Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Preview{}, false
	}
	return e.preview, true
}

// Refs returns the live reference count for a handle, zero once freed.
func (r *Registry) Refs(h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[h.ID]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of live previews.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
