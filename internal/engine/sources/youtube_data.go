package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// YouTube Data API v3 videos.list: title, channel, description and duration.

var ytDataAPIBase = "https://www.googleapis.com/youtube/v3"

type ytVideosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration like PT1H2M3S to seconds.
// Returns 0 for anything it cannot parse.
func ParseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	mult := []int{86400, 3600, 60, 1}
	total := 0
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		n, _ := strconv.Atoi(part)
		total += n * mult[i]
	}
	return total
}

// YouTubeDataAPIEnabled reports whether a Data API key is configured.
func YouTubeDataAPIEnabled() bool {
	return engine.Cfg.YouTubeAPIKey != ""
}

// FetchVideoDetails loads video metadata via the Data API.
// Automatically falls back to the secondary key on quota errors (403).
func FetchVideoDetails(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	if !YouTubeDataAPIEnabled() {
		return engine.VideoMetadata{}, fmt.Errorf("youtube data API: %w", engine.ErrNotConfigured)
	}
	keys := []string{engine.Cfg.YouTubeAPIKey}
	if engine.Cfg.YouTubeAPIKeyFallback != "" {
		keys = append(keys, engine.Cfg.YouTubeAPIKeyFallback)
	}
	var lastErr error
	for i, key := range keys {
		md, err := doFetchVideoDetails(ctx, videoID, key)
		if err == nil {
			return md, nil
		}
		lastErr = err
		if !isQuotaError(err) || i == len(keys)-1 {
			break
		}
		slog.Debug("youtube data API key failed, trying fallback", slog.Any("err", err))
	}
	return engine.VideoMetadata{}, lastErr
}

func isQuotaError(err error) bool {
	var ue *engine.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusForbidden
}

func doFetchVideoDetails(ctx context.Context, videoID, apiKey string) (engine.VideoMetadata, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", videoID)
	params.Set("key", apiKey)

	apiURL := ytDataAPIBase + "/videos?" + params.Encode()
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	engine.IncrFetch(err != nil)
	if err != nil {
		return engine.VideoMetadata{}, fmt.Errorf("youtube data API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return engine.VideoMetadata{}, &engine.UpstreamError{Provider: "youtube data API", Status: resp.StatusCode, Body: string(body)}
	}

	var result ytVideosResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return engine.VideoMetadata{}, fmt.Errorf("decode youtube data API: %w", err)
	}
	if len(result.Items) == 0 {
		return engine.VideoMetadata{}, fmt.Errorf("youtube data API: video %s not found", videoID)
	}

	item := result.Items[0]
	md := engine.VideoMetadata{
		VideoID:      videoID,
		Title:        item.Snippet.Title,
		Author:       item.Snippet.ChannelTitle,
		Description:  item.Snippet.Description,
		ThumbnailURL: ThumbnailURL(videoID),
		EmbedURL:     EmbedURL(videoID),
		Duration:     ParseISODuration(item.ContentDetails.Duration),
	}
	for _, size := range []string{"high", "medium", "default"} {
		if th, ok := item.Snippet.Thumbnails[size]; ok && th.URL != "" {
			md.ThumbnailURL = th.URL
			break
		}
	}
	return md, nil
}
