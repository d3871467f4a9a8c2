package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/fpang/livery-studio/internal/compare"
	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/intake"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/go-chi/chi/v5"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// GET /api/state
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, studio.NewView(s.studio.Snapshot()))
}

// GET /api/events
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.broker.Serve(w, r, studio.NewView(s.studio.Snapshot()))
}

func slotParam(w http.ResponseWriter, r *http.Request) (studio.Slot, bool) {
	slot := studio.Slot(chi.URLParam(r, "slot"))
	if !slot.Valid() {
		httpError(w, http.StatusBadRequest, "slot must be 'reference' or 'target'")
		return "", false
	}
	return slot, true
}

// respondSelectError maps an image load failure. The studio has already
// logged it to the activity log.
func respondSelectError(w http.ResponseWriter, err error) {
	var decodeErr *intake.DecodeError
	if errors.As(err, &decodeErr) {
		httpError(w, http.StatusUnprocessableEntity, decodeErr.Error())
		return
	}
	httpError(w, http.StatusInternalServerError, err.Error())
}

// POST /api/images/{slot} (multipart field "file")
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if err := s.studio.Select(slot, header.Filename, file); err != nil {
		respondSelectError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studio.NewView(s.studio.Snapshot()))
}

// POST /api/pick/{slot}
// Opens a native OS file picker and loads the chosen image.
func (s *server) handlePick(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	path, err := s.pick(fmt.Sprintf("Select %s image", slot))
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"canceled": true})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	if err := s.studio.SelectFile(slot, path); err != nil {
		respondSelectError(w, err)
		return
	}
	log.Info().Str("slot", string(slot)).Str("path", path).Msg("Image picked via native dialog")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"canceled": false,
		"state":    studio.NewView(s.studio.Snapshot()),
	})
}

func pickImageFile(title string) (string, error) {
	patterns := make([]string, 0, len(intake.SupportedImageExtensions))
	for ext := range intake.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{{Name: "Images", Patterns: patterns}},
	)
}

// GET /api/previews/{id}
func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	preview, ok := s.studio.Registry().Lookup(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "preview not found")
		return
	}
	w.Header().Set("ETag", preview.ETag)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.Header.Get("If-None-Match") == preview.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", preview.MIMEType)
	w.Write(preview.Data)
}

type settingsRequest struct {
	AdaptationLevel    *int    `json:"adaptationLevel"`
	PendingInstruction *string `json:"pendingInstruction"`
	APIKey             *string `json:"apiKey"`
}

// PUT /api/settings
// Absent fields are left unchanged.
func (s *server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AdaptationLevel != nil {
		s.studio.SetAdaptationLevel(*req.AdaptationLevel)
	}
	if req.PendingInstruction != nil {
		s.studio.SetPendingInstruction(*req.PendingInstruction)
	}
	if req.APIKey != nil {
		s.studio.SetAPIKey(*req.APIKey)
	}
	respondJSON(w, http.StatusOK, studio.NewView(s.studio.Snapshot()))
}

// POST /api/generate
// Returns 202 with the run ID; progress and the outcome arrive as state events.
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	run, err := s.studio.Start(s.ctx)
	if err != nil {
		var validationErr *studio.ValidationError
		switch {
		case errors.Is(err, studio.ErrBusy):
			httpError(w, http.StatusConflict, err.Error())
		case errors.As(err, &validationErr):
			httpError(w, http.StatusUnprocessableEntity, validationErr.Error())
		default:
			httpError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"runId": run.ID})
}

func respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, studio.ErrNotFound) {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	httpError(w, http.StatusInternalServerError, err.Error())
}

// POST /api/instructions/{id}/recall
func (s *server) handleRecall(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.RecallInstruction(chi.URLParam(r, "id")); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studio.NewView(s.studio.Snapshot()))
}

// POST /api/history/{id}/restore
func (s *server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.RestoreHistory(chi.URLParam(r, "id")); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, studio.NewView(s.studio.Snapshot()))
}

func writeImage(w http.ResponseWriter, uri, disposition string) {
	mimeType, data, err := export.DecodeDataURI(uri)
	if err != nil {
		log.Error().Err(err).Msg("Stored result is not a valid data URI")
		httpError(w, http.StatusInternalServerError, "stored result is unreadable")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.Write(data)
}

// GET /api/result
func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	state := s.studio.Snapshot()
	if state.Result == "" {
		httpError(w, http.StatusNotFound, "no result yet")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeImage(w, state.Result, "")
}

// GET /api/result/download
func (s *server) handleResultDownload(w http.ResponseWriter, r *http.Request) {
	state := s.studio.Snapshot()
	if state.Result == "" {
		httpError(w, http.StatusNotFound, "no result yet")
		return
	}
	writeImage(w, state.Result, fmt.Sprintf("attachment; filename=%q", export.FileName))
}

// GET /api/history/{id}/image
func (s *server) handleHistoryImage(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.studio.Snapshot().Record(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "history record not found")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	writeImage(w, rec.ResultImage, "")
}

// GET /api/result/compare.png?split=50
// Renders the displayed target preview and result side by side at split.
func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	split := compare.DefaultSplit
	if raw := r.URL.Query().Get("split"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "split must be a number")
			return
		}
		split = parsed
	}

	state := s.studio.Snapshot()
	if state.Result == "" {
		httpError(w, http.StatusNotFound, "no result yet")
		return
	}
	preview, ok := s.studio.Registry().Lookup(state.TargetPreview.ID)
	if !ok {
		httpError(w, http.StatusNotFound, "target preview not available")
		return
	}

	before, _, err := image.Decode(bytes.NewReader(preview.Data))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "target preview is unreadable")
		return
	}
	_, resultData, err := export.DecodeDataURI(state.Result)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "stored result is unreadable")
		return
	}
	after, _, err := image.Decode(bytes.NewReader(resultData))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "result image is unreadable")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, compare.Compose(before, after, split)); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode comparison")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// POST /api/result/export
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	state := s.studio.Snapshot()
	if state.Result == "" {
		httpError(w, http.StatusNotFound, "no result yet")
		return
	}
	location, err := export.ExportDataURI(r.Context(), s.sink, state.Result)
	if err != nil {
		log.Error().Err(err).Msg("Export failed")
		httpError(w, http.StatusInternalServerError, "export failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"location": location})
}

// GET /api/history/export.zip
func (s *server) handleHistoryZip(w http.ResponseWriter, r *http.Request) {
	history := s.studio.Snapshot().History
	if len(history) == 0 {
		httpError(w, http.StatusNotFound, "history is empty")
		return
	}
	items := make([]export.HistoryItem, 0, len(history))
	for _, rec := range history {
		items = append(items, export.HistoryItem{ID: rec.ID, CreatedAt: rec.CreatedAt, ImageURI: rec.ResultImage})
	}

	var buf bytes.Buffer
	if err := export.WriteHistoryZip(&buf, items); err != nil {
		log.Error().Err(err).Msg("History zip failed")
		httpError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="livery_history.zip"`)
	w.Write(buf.Bytes())
}
