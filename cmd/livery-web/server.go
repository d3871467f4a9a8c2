package main

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes bounds a single image upload.
const maxUploadBytes = 32 << 20

// pickFunc opens a native file dialog and returns the chosen path.
type pickFunc func(title string) (string, error)

type server struct {
	router *chi.Mux
	studio *studio.Studio
	broker *Broker
	sink   export.Sink
	pick   pickFunc

	// ctx outlives requests; generations started over HTTP run under it.
	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
}

func newServer(parent context.Context, st *studio.Studio, sink export.Sink) *server {
	ctx, cancel := context.WithCancel(parent)
	s := &server{
		router: chi.NewRouter(),
		studio: st,
		broker: NewBroker(),
		sink:   sink,
		pick:   pickImageFile,
		ctx:    ctx,
		cancel: cancel,
	}
	s.unsub = st.Subscribe(func(state studio.State) {
		s.broker.Publish(studio.NewView(state))
	})
	s.routes()
	return s
}

func (s *server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	// SSE must not sit behind the gzip writer, which buffers.
	r.Get("/api/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(gzipMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Post("/images/{slot}", s.handleUpload)
			r.Post("/pick/{slot}", s.handlePick)
			r.Get("/previews/{id}", s.handlePreview)
			r.Put("/settings", s.handleSettings)
			r.Post("/generate", s.handleGenerate)
			r.Post("/instructions/{id}/recall", s.handleRecall)
			r.Post("/history/{id}/restore", s.handleRestore)
			r.Get("/history/{id}/image", s.handleHistoryImage)
			r.Get("/history/export.zip", s.handleHistoryZip)
			r.Get("/result", s.handleResult)
			r.Get("/result/download", s.handleResultDownload)
			r.Get("/result/compare.png", s.handleCompare)
			r.Post("/result/export", s.handleExport)
		})

		frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to access embedded frontend")
		}
		r.Get("/*", spaHandler(frontendSub))
	})
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops event delivery and cancels running generations.
func (s *server) Close() {
	s.unsub()
	s.cancel()
	s.broker.Shutdown(context.Background())
}

func gzipMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func spaHandler(static fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(static))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path != "" {
			if f, err := static.Open(path); err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/events" {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only local pages may call the API.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
