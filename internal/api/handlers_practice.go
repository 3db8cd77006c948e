package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/speech"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

const webSpeechSource = "web_speech_api"

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var in engine.CompareInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	res, err := toolutil.CompareSpeech(r.Context(), in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, res)
}

func (s *Server) handleProcessSegments(w http.ResponseWriter, r *http.Request) {
	var in engine.SplitSegmentsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	segs, err := toolutil.SplitSegments(r.Context(), in.Segments)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, engine.SplitSegmentsOutput{Segments: segs})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var in engine.TranslateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, r, invalid("text is required"), nil)
		return
	}
	writeData(w, dialogue.Translate(r.Context(), in.Text, in.Context, in.TargetLanguage))
}

func (s *Server) handleWritingFeedback(w http.ResponseWriter, r *http.Request) {
	var in engine.WritingFeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	fb, err := toolutil.WritingFeedback(r.Context(), in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, fb)
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var in speech.SynthesizeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	audio, err := speech.Synthesize(r.Context(), in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data) //nolint:errcheck
}

// handleSpeechToText accepts multipart "audio". A non-empty
// webSpeechTranscript field, recognised in the browser, is returned as is.
func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, speech.MaxAudioUpload+maxJSONBody)
	if err := r.ParseMultipartForm(speech.MaxAudioUpload); err != nil {
		writeError(w, r, invalid("parse multipart form: %v", err), nil)
		return
	}
	if t := strings.TrimSpace(r.FormValue("webSpeechTranscript")); t != "" {
		writeData(w, speech.Transcription{Transcript: t, Source: webSpeechSource})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, r, invalid("audio file is required"), nil)
		return
	}
	defer file.Close()
	data, err := readUpload(file)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	res, err := speech.Transcribe(r.Context(), header.Filename, data, r.FormValue("language"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeData(w, res)
}

func readUpload(f multipart.File) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(f, speech.MaxAudioUpload+1))
	if err != nil {
		return nil, invalid("read audio: %v", err)
	}
	if len(data) > speech.MaxAudioUpload {
		return nil, invalid("audio exceeds %d bytes", speech.MaxAudioUpload)
	}
	return data, nil
}
