// Package server exposes the classification pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/monitoring"
	"github.com/crowdsense/vibesense/internal/store"
)

// VibeClassifier is the pipeline surface the server needs.
type VibeClassifier interface {
	ClassifyVenue(ctx context.Context, venueID string, force bool) (*model.VibeProfile, error)
	ClassifyAll(ctx context.Context) (int, error)
}

// Server serves venue vibe profiles and classification triggers.
type Server struct {
	store      store.Store
	classifier VibeClassifier
	collector  *monitoring.Collector
	router     chi.Router
}

// New builds the HTTP server with routing and middleware configured.
func New(st store.Store, classifier VibeClassifier, collector *monitoring.Collector) *Server {
	s := &Server{
		store:      st,
		classifier: classifier,
		collector:  collector,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Route("/venues/{venueID}/vibe", func(r chi.Router) {
		r.Get("/", s.handleGetProfile)
		r.Post("/", s.handleClassify)
	})
	r.Post("/vibe/classify-all", s.handleClassifyAll)

	s.router = r
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueID")
	profile, err := s.store.GetVibeProfile(r.Context(), venueID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no vibe profile for venue"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueID")
	force := r.URL.Query().Get("force") == "true"

	profile, err := s.classifier.ClassifyVenue(r.Context(), venueID, force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "venue could not be classified (no photos or classification failed)",
		})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleClassifyAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.classifier.ClassifyAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"classified": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Error("server: request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
