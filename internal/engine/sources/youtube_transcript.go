package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// YouTube caption fetching, three routes tried in order:
//   watch page ytInitialPlayerResponse → caption track XML   (works from any IP)
//   /next → engagement panel → /get_transcript               (works from datacenter IPs)
//   ANDROID Innertube /player → captionTracks                (works from non-blocked IPs)

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts timed cues from a /get_transcript JSON response.
func parseTranscriptSegments(resp ytGetTranscriptResp) []engine.Cue {
	var cues []engine.Cue
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := engine.CleanCaption(sb.String())
			if text == "" {
				continue
			}
			start := msToSeconds(r.StartMs)
			end := max(msToSeconds(r.EndMs), start)
			cues = append(cues, engine.Cue{Text: text, Start: start, Duration: end - start})
		}
	}
	return cues
}

func msToSeconds(ms string) float64 {
	v, err := parseFinite(ms)
	if err != nil {
		return 0
	}
	return v / 1000
}

// parseFinite is strconv.ParseFloat without NaN and ±Inf, which JSON cannot encode.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// fetchCaptionsViaEngagementPanel fetches a transcript via:
//  1. POST /next → get engagementPanels containing transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
func fetchCaptionsViaEngagementPanel(ctx context.Context, videoID string) ([]engine.Cue, error) {
	visitorData := generateVisitorData()

	nextData, err := postInnerTube(ctx, ytNextURL, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, webHeaders(visitorData))
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	transcriptData, err := postInnerTube(ctx, ytGetTranscriptURL, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": ytWebClientCtx{
				ClientName:    "WEB",
				ClientVersion: ytWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, webHeaders(visitorData))
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	cues := parseTranscriptSegments(transcriptResp)
	if len(cues) == 0 {
		return nil, errors.New("empty transcript segments")
	}
	return cues, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Skips tracks that require PoToken.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func fetchTimedText(ctx context.Context, baseURL string) ([]engine.Cue, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	engine.IncrFetch(err != nil)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &engine.UpstreamError{Provider: "timedtext", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

func parseTimedText(body []byte) ([]engine.Cue, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty timedtext body")
	}
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	cues := make([]engine.Cue, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanCaption(line.Text)
		if text == "" {
			continue
		}
		if !isFinite(line.Start) || !isFinite(line.Dur) {
			return nil, fmt.Errorf("timedtext: non-finite timing on %q", text)
		}
		cues = append(cues, engine.Cue{Text: text, Start: line.Start, Duration: max(line.Dur, 0)})
	}
	return cues, nil
}

func captionsFromPlayer(ctx context.Context, playerResp *innertubePlayerResp, langs []string) ([]engine.Cue, error) {
	if playerResp.Captions == nil {
		if playerResp.PlayabilityStatus != nil && playerResp.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", playerResp.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks")
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}
	cues, err := fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, errors.New("caption track is empty")
	}
	return cues, nil
}

// fetchCaptionsViaPlayer uses the ANDROID Innertube /player endpoint.
func fetchCaptionsViaPlayer(ctx context.Context, videoID string, langs []string) ([]engine.Cue, error) {
	data, err := postInnerTube(ctx, ytInnertubeURL, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, androidHeaders())
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(data, &playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return captionsFromPlayer(ctx, &playerResp, langs)
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// fetchWatchPage downloads the watch page HTML.
func fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	body, err := engine.FetchPage(ctx, ytWatchBase+videoID)
	engine.IncrFetch(err != nil)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	return body, nil
}

// parseInitialPlayerResponse extracts ytInitialPlayerResponse from watch page HTML.
func parseInitialPlayerResponse(body []byte) (*innertubePlayerResp, error) {
	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := engine.ExtractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &playerResp, nil
}

func fetchCaptionsViaPageScrape(ctx context.Context, videoID string, langs []string) ([]engine.Cue, error) {
	body, err := fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}
	playerResp, err := parseInitialPlayerResponse(body)
	if err != nil {
		return nil, err
	}
	return captionsFromPlayer(ctx, playerResp, langs)
}

// FetchYouTubeCaptions returns timed caption cues for a YouTube video, trying the
// watch page, then the engagement panel, then the ANDROID player.
func FetchYouTubeCaptions(ctx context.Context, videoID string, langs []string) ([]engine.Cue, error) {
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	cues, err := fetchCaptionsViaPageScrape(ctx, videoID, langs)
	if err == nil {
		return cues, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Warn("youtube: page scrape failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("err", err))

	cues, err = fetchCaptionsViaEngagementPanel(ctx, videoID)
	if err == nil {
		return cues, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Warn("youtube: engagement panel failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	return fetchCaptionsViaPlayer(ctx, videoID, langs)
}
