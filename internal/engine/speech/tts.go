package speech

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

const (
	DefaultVoiceID = "JBFqnCBsd6RMkjVDRZzb"
	DefaultModelID = "eleven_multilingual_v2"

	maxTextChars = 5000
	maxAudioOut  = 20 * 1024 * 1024
)

var elevenLabsBase = "https://api.elevenlabs.io"

// SynthesizeInput is a text-to-speech request.
type SynthesizeInput struct {
	Text    string `json:"text" jsonschema:"Text to speak"`
	VoiceID string `json:"voiceId,omitempty" jsonschema:"ElevenLabs voice id"`
	ModelID string `json:"modelId,omitempty" jsonschema:"ElevenLabs model id"`
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesize renders text as MP3 through ElevenLabs.
func Synthesize(ctx context.Context, in SynthesizeInput) (Audio, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Audio{}, fmt.Errorf("tts: %w", ErrEmptyInput)
	}
	if engine.Cfg.ElevenLabsAPIKey == "" {
		return Audio{}, fmt.Errorf("elevenlabs: %w", engine.ErrNotConfigured)
	}
	engine.IncrTTSRequests()

	voice := cmp.Or(in.VoiceID, DefaultVoiceID)
	payload, err := json.Marshal(map[string]string{
		"text":     engine.TruncateRunes(text, maxTextChars, ""),
		"model_id": cmp.Or(in.ModelID, DefaultModelID),
	})
	if err != nil {
		return Audio{}, err
	}
	u := elevenLabsBase + "/v1/text-to-speech/" + url.PathEscape(voice) + "?output_format=mp3_44100_128"
	data, ct, err := post(ctx, "elevenlabs", u, "application/json",
		map[string]string{"xi-api-key": engine.Cfg.ElevenLabsAPIKey, "Accept": "audio/mpeg"},
		payload, maxAudioOut)
	if err != nil {
		return Audio{}, err
	}
	if len(data) == 0 {
		return Audio{}, errors.New("elevenlabs: empty audio")
	}
	if !strings.HasPrefix(ct, "audio/") {
		ct = "audio/mpeg"
	}
	return Audio{Data: data, ContentType: ct}, nil
}
