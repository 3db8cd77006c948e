package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/"+DefaultVoiceID, r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello there", body["text"])
		assert.Equal(t, DefaultModelID, body["model_id"])
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	prev := elevenLabsBase
	elevenLabsBase = srv.URL
	defer func() { elevenLabsBase = prev }()
	engine.Init(engine.Config{ElevenLabsAPIKey: "secret"})
	defer engine.Init(engine.Config{})

	audio, err := Synthesize(context.Background(), SynthesizeInput{Text: "  Hello there "})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
	assert.Equal(t, []byte("ID3fake-mp3"), audio.Data)
}

func TestSynthesizeErrors(t *testing.T) {
	engine.Init(engine.Config{})
	_, err := Synthesize(context.Background(), SynthesizeInput{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = Synthesize(context.Background(), SynthesizeInput{Text: "hi"})
	assert.ErrorIs(t, err, engine.ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()
	prev := elevenLabsBase
	elevenLabsBase = srv.URL
	defer func() { elevenLabsBase = prev }()
	engine.Init(engine.Config{ElevenLabsAPIKey: "bad"})
	defer engine.Init(engine.Config{})

	_, err = Synthesize(context.Background(), SynthesizeInput{Text: "hi", VoiceID: "voice"})
	var ue *engine.UpstreamError
	require.True(t, errors.As(err, &ue), "err = %v", err)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Contains(t, ue.Body, "invalid api key")
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.webm", hdr.Filename)
		assert.Equal(t, "RIFFaudio", string(data))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  hello world "}`))
	}))
	defer srv.Close()

	engine.Init(engine.Config{OpenAIAPIKey: "sk-test", OpenAIAPIBase: srv.URL + "/v1/"})
	defer engine.Init(engine.Config{})

	out, err := Transcribe(context.Background(), "uploads/clip.webm", []byte("RIFFaudio"), "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Transcript)
	assert.Equal(t, "whisper", out.Source)
}

func TestTranscribeErrors(t *testing.T) {
	engine.Init(engine.Config{})
	_, err := Transcribe(context.Background(), "a.webm", nil, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = Transcribe(context.Background(), "a.webm", []byte("x"), "")
	assert.ErrorIs(t, err, engine.ErrNotConfigured)
}
