package speech

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// ErrEmptyInput marks a request with no text or no audio.
var ErrEmptyInput = errors.New("empty input")

const (
	whisperModel    = "whisper-1"
	MaxAudioUpload  = 25 * 1024 * 1024 // Whisper's upload limit
	defaultAudioExt = ".webm"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// Transcription is the text recognised in an audio clip.
type Transcription struct {
	Transcript string `json:"transcript"`
	Source     string `json:"source"`
}

// Transcribe sends audio to OpenAI Whisper and returns the recognised text.
// lang defaults to English.
func Transcribe(ctx context.Context, filename string, audio []byte, lang string) (Transcription, error) {
	if len(audio) == 0 {
		return Transcription{}, fmt.Errorf("stt: %w", ErrEmptyInput)
	}
	if engine.Cfg.OpenAIAPIKey == "" {
		return Transcription{}, fmt.Errorf("whisper: %w", engine.ErrNotConfigured)
	}
	engine.IncrSTTRequests()

	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "audio" + defaultAudioExt
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return Transcription{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Transcription{}, err
	}
	fields := map[string]string{
		"model":           whisperModel,
		"language":        cmp.Or(lang, "en"),
		"response_format": "json",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return Transcription{}, err
		}
	}
	if err := w.Close(); err != nil {
		return Transcription{}, err
	}

	base := strings.TrimRight(cmp.Or(engine.Cfg.OpenAIAPIBase, defaultOpenAIBase), "/")
	data, _, err := post(ctx, "whisper", base+"/audio/transcriptions", w.FormDataContentType(),
		map[string]string{"Authorization": "Bearer " + engine.Cfg.OpenAIAPIKey},
		buf.Bytes(), 1024*1024)
	if err != nil {
		return Transcription{}, err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Transcription{}, fmt.Errorf("whisper: parse response: %w", err)
	}
	return Transcription{Transcript: strings.TrimSpace(out.Text), Source: "whisper"}, nil
}
