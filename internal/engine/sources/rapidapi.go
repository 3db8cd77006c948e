package sources

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// RapidAPI transcript proxies for YouTube and TikTok.

const (
	DefaultRapidAPIYouTubeHost = "youtube-transcript3.p.rapidapi.com"
	DefaultRapidAPITikTokHost  = "tiktok-video-transcript.p.rapidapi.com"
)

// rapidAPIScheme is swapped to http:// by tests.
var rapidAPIScheme = "https://"

// flexFloat decodes both 1.5 and "1.5"; the proxies disagree on number encoding.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return fmt.Errorf("flexFloat %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type rapidCue struct {
	Text     string    `json:"text"`
	Offset   flexFloat `json:"offset"`
	Start    flexFloat `json:"start"`
	Duration flexFloat `json:"duration"`
}

func (c rapidCue) start() float64 {
	if c.Start != 0 {
		return float64(c.Start)
	}
	return float64(c.Offset)
}

// RapidAPIEnabled reports whether a RapidAPI key is configured.
func RapidAPIEnabled() bool {
	return engine.Cfg.RapidAPIKey != ""
}

func rapidAPIGet(ctx context.Context, host, pathAndQuery string) ([]byte, error) {
	if !RapidAPIEnabled() {
		return nil, fmt.Errorf("rapidapi: %w", engine.ErrNotConfigured)
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rapidAPIScheme+host+pathAndQuery, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-rapidapi-key", engine.Cfg.RapidAPIKey)
		req.Header.Set("x-rapidapi-host", host)
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	engine.IncrFetch(err != nil)
	if err != nil {
		return nil, fmt.Errorf("rapidapi %s: %w", host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("rapidapi %s: read: %w", host, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &engine.UpstreamError{Provider: "rapidapi " + host, Status: resp.StatusCode, Body: engine.TruncateRunes(string(body), 256, "")}
	}
	return body, nil
}

// FetchRapidAPIYouTubeTranscript loads caption cues from the RapidAPI YouTube proxy.
func FetchRapidAPIYouTubeTranscript(ctx context.Context, videoID, lang string) ([]engine.Cue, error) {
	host := engine.Cfg.RapidAPIYouTubeHost
	if host == "" {
		host = DefaultRapidAPIYouTubeHost
	}
	q := url.Values{}
	q.Set("videoId", videoID)
	if lang != "" {
		q.Set("lang", lang)
	}
	body, err := rapidAPIGet(ctx, host, "/api/transcript?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out struct {
		Success    *bool      `json:"success"`
		Error      string     `json:"error"`
		Transcript []rapidCue `json:"transcript"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("rapidapi youtube: decode: %w", err)
	}
	if out.Success != nil && !*out.Success {
		return nil, fmt.Errorf("rapidapi youtube: %s", cmp.Or(out.Error, "unsuccessful"))
	}

	cues := make([]engine.Cue, 0, len(out.Transcript))
	for _, c := range out.Transcript {
		text := engine.CleanCaption(c.Text)
		if text == "" {
			continue
		}
		cues = append(cues, engine.Cue{Text: text, Start: c.start(), Duration: max(float64(c.Duration), 0)})
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("rapidapi youtube: %w", engine.ErrNoTranscript)
	}
	return cues, nil
}

// TikTokTranscript is the RapidAPI TikTok reply: either plain text or timed cues.
type TikTokTranscript struct {
	Title string
	Text  string
	Cues  []engine.Cue
}

// FetchTikTokTranscript transcribes a TikTok video through RapidAPI.
func FetchTikTokTranscript(ctx context.Context, videoURL, language string) (TikTokTranscript, error) {
	host := engine.Cfg.RapidAPITikTokHost
	if host == "" {
		host = DefaultRapidAPITikTokHost
	}
	if language == "" {
		language = "EN"
	}
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("language", strings.ToUpper(language))
	q.Set("timestamps", "true")
	body, err := rapidAPIGet(ctx, host, "/transcribe?"+q.Encode())
	if err != nil {
		return TikTokTranscript{}, err
	}
	return parseTikTokTranscript(body)
}

func parseTikTokTranscript(body []byte) (TikTokTranscript, error) {
	var raw struct {
		Error      json.RawMessage `json:"error"`
		Title      string          `json:"title"`
		Text       json.RawMessage `json:"text"`
		Transcript []rapidCue      `json:"transcript"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return TikTokTranscript{}, fmt.Errorf("tiktok transcript: decode: %w", err)
	}
	if len(raw.Error) > 0 && string(raw.Error) != "null" && string(raw.Error) != "false" && string(raw.Error) != `""` {
		return TikTokTranscript{}, fmt.Errorf("tiktok transcript: API error: %s", engine.TruncateRunes(string(raw.Error), 200, ""))
	}

	out := TikTokTranscript{Title: raw.Title}
	var text string
	if len(raw.Text) > 0 && json.Unmarshal(raw.Text, &text) == nil {
		out.Text = strings.TrimSpace(text)
	}
	for _, c := range raw.Transcript {
		t := strings.TrimSpace(c.Text)
		if t == "" {
			continue
		}
		d := float64(c.Duration)
		if d <= 0 {
			d = 5
		}
		out.Cues = append(out.Cues, engine.Cue{Text: t, Start: c.start(), Duration: d})
	}
	if out.Text == "" && len(out.Cues) == 0 {
		return out, fmt.Errorf("tiktok transcript: %w", engine.ErrNoTranscript)
	}
	return out, nil
}
