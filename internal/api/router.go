// Package api is the JSON HTTP surface of the practice service.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
)

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	Store   library.Store // nil disables the lesson routes (503)
	Version string
}

// NewRouter wires every API route onto a gorilla/mux router.
func NewRouter(store library.Store, version string) *mux.Router {
	s := &Server{Store: store, Version: version}
	r := mux.NewRouter()
	r.Use(recoverMiddleware, logMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", handleMetrics).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/youtube/transcript", s.handleYouTubeTranscript).Methods(http.MethodGet)
	a.HandleFunc("/youtube/transcript/{videoId}", s.handleYouTubeTranscriptByID).Methods(http.MethodGet)
	a.HandleFunc("/youtube/metadata", s.handleYouTubeMetadata).Methods(http.MethodGet)
	a.HandleFunc("/tiktok/transcript", s.handleTikTokTranscript).Methods(http.MethodGet)

	a.HandleFunc("/compare-text", s.handleCompare).Methods(http.MethodPost)
	a.HandleFunc("/process-segments", s.handleProcessSegments).Methods(http.MethodPost)
	a.HandleFunc("/translate", s.handleTranslate).Methods(http.MethodPost)
	a.HandleFunc("/writing-feedback", s.handleWritingFeedback).Methods(http.MethodPost)
	a.HandleFunc("/text-to-speech", s.handleTextToSpeech).Methods(http.MethodPost)
	a.HandleFunc("/speech-to-text", s.handleSpeechToText).Methods(http.MethodPost)

	a.HandleFunc("/lessons", s.handleListLessons).Methods(http.MethodGet)
	a.HandleFunc("/lessons", s.handleSaveLesson).Methods(http.MethodPost)
	a.HandleFunc("/lessons/{id}", s.handleGetLesson).Methods(http.MethodGet)
	a.HandleFunc("/lessons/{id}", s.handleDeleteLesson).Methods(http.MethodDelete)
	a.HandleFunc("/lessons/{id}/attempts", s.handleListAttempts).Methods(http.MethodGet)
	a.HandleFunc("/lessons/{id}/attempts", s.handleAddAttempt).Methods(http.MethodPost)
	a.HandleFunc("/lessons/{id}/writing", s.handleListWriting).Methods(http.MethodGet)
	a.HandleFunc("/lessons/{id}/writing", s.handleSubmitWriting).Methods(http.MethodPost)
	a.HandleFunc("/lessons/{id}/progress", s.handleGetProgress).Methods(http.MethodGet)
	a.HandleFunc("/lessons/{id}/listened", s.handleMarkListened).Methods(http.MethodPost)

	for _, router := range []*mux.Router{r, a} {
		router.NotFoundHandler = http.HandlerFunc(notFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}
	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{Error: "route not found"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: "method not allowed"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("api request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				writeError(w, r, fmt.Errorf("panic: %v", p), nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
