package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

func (s *Server) store(w http.ResponseWriter, r *http.Request) (library.Store, bool) {
	if s.Store == nil {
		writeError(w, r, engine.ErrNotConfigured, nil)
		return nil, false
	}
	return s.Store, true
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := library.ListFilter{
		Platform: engine.Platform(q.Get("platform")),
		Level:    library.Level(q.Get("level")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, invalid("limit must be an integer"), nil)
			return
		}
		f.Limit = n
	}
	lessons, err := st.ListLessons(r.Context(), f)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, lessons)
}

func (s *Server) handleSaveLesson(w http.ResponseWriter, r *http.Request) {
	var in toolutil.LessonInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	lesson, err := toolutil.SaveLesson(r.Context(), s.Store, in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: lesson})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	lesson, err := st.GetLesson(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, lesson)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	if err := st.DeleteLesson(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	attempts, err := st.ListAttempts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, attempts)
}

func (s *Server) handleAddAttempt(w http.ResponseWriter, r *http.Request) {
	var in toolutil.AttemptInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	in.LessonID = mux.Vars(r)["id"]
	res, err := toolutil.RecordAttempt(r.Context(), s.Store, in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: res})
}

func (s *Server) handleListWriting(w http.ResponseWriter, r *http.Request) {
	answers, err := toolutil.ListWriting(r.Context(), s.Store, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, answers)
}

func (s *Server) handleSubmitWriting(w http.ResponseWriter, r *http.Request) {
	var in toolutil.WritingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	in.LessonID = mux.Vars(r)["id"]
	answer, err := toolutil.SubmitWriting(r.Context(), s.Store, in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: answer})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := toolutil.LessonProgress(r.Context(), s.Store, mux.Vars(r)["id"], false)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, p)
}

func (s *Server) handleMarkListened(w http.ResponseWriter, r *http.Request) {
	p, err := toolutil.LessonProgress(r.Context(), s.Store, mux.Vars(r)["id"], true)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, p)
}
