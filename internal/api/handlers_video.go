package api

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/sources"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]any{
		"status":  "ok",
		"version": s.Version,
		"llm":     engine.LLMEnabled(),
		"library": s.Store != nil,
	})
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, engine.FormatMetrics())
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalid("%s must be a boolean", name)
	}
	return b, nil
}

func (s *Server) youTubeTranscript(w http.ResponseWriter, r *http.Request, rawURL string) {
	if rawURL == "" {
		writeError(w, r, invalid("url is required"), nil)
		return
	}
	id, err := sources.ExtractVideoID(rawURL)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	refine, err := queryBool(r, "refine")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	noCache, err := queryBool(r, "nocache")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	q := r.URL.Query()
	lang := cmp.Or(q.Get("lang"), q.Get("language"))

	ref := engine.VideoRef{Platform: engine.PlatformYouTube, ID: id, URL: sources.WatchURL(id)}
	res, err := toolutil.TranscriptFor(r.Context(), ref, lang, refine, noCache, nil)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, res)
}

func (s *Server) handleYouTubeTranscript(w http.ResponseWriter, r *http.Request) {
	s.youTubeTranscript(w, r, r.URL.Query().Get("url"))
}

func (s *Server) handleYouTubeTranscriptByID(w http.ResponseWriter, r *http.Request) {
	s.youTubeTranscript(w, r, mux.Vars(r)["videoId"])
}

func (s *Server) handleYouTubeMetadata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := q.Get("url")
	if rawURL == "" {
		writeError(w, r, invalid("url is required"), nil)
		return
	}
	noCache, err := queryBool(r, "nocache")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out, err := toolutil.ResolveMetadata(r.Context(), rawURL, cmp.Or(q.Get("lang"), q.Get("language")), noCache)
	if errors.Is(err, toolutil.ErrVideoTooLong) {
		writeError(w, r, err, out)
		return
	}
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, out)
}

func (s *Server) handleTikTokTranscript(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := q.Get("url")
	if rawURL == "" {
		writeError(w, r, invalid("url is required"), nil)
		return
	}
	ref, err := sources.ParseVideoURL(rawURL)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if ref.Platform != engine.PlatformTikTok {
		writeError(w, r, fmt.Errorf("%w: not a TikTok URL: %q", engine.ErrInvalidURL, rawURL), nil)
		return
	}
	noCache, err := queryBool(r, "nocache")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	res, err := toolutil.TranscriptFor(r.Context(), ref, cmp.Or(q.Get("language"), q.Get("lang")), false, noCache, nil)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, res)
}
