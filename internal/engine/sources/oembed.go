package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// oEmbed endpoints need no key and return title, author and thumbnail.
var (
	youtubeOEmbedURL = "https://www.youtube.com/oembed"
	tiktokOEmbedURL  = "https://www.tiktok.com/oembed"
)

type oembedResp struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FetchYouTubeOEmbed loads title and author for a YouTube video. No duration.
func FetchYouTubeOEmbed(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	o, err := fetchOEmbed(ctx, youtubeOEmbedURL, WatchURL(videoID))
	if err != nil {
		return engine.VideoMetadata{}, fmt.Errorf("youtube oembed: %w", err)
	}
	md := engine.VideoMetadata{
		VideoID:      videoID,
		Title:        o.Title,
		Author:       o.AuthorName,
		ThumbnailURL: o.ThumbnailURL,
		EmbedURL:     EmbedURL(videoID),
	}
	if md.ThumbnailURL == "" {
		md.ThumbnailURL = ThumbnailURL(videoID)
	}
	return md, nil
}

// FetchTikTokOEmbed loads the caption title of a TikTok video.
// TikTok rejects plain Go TLS fingerprints, so this goes through GetBrowserLike.
func FetchTikTokOEmbed(ctx context.Context, videoURL string) (engine.VideoMetadata, error) {
	o, err := fetchOEmbed(ctx, tiktokOEmbedURL, videoURL)
	if err != nil {
		return engine.VideoMetadata{}, fmt.Errorf("tiktok oembed: %w", err)
	}
	return engine.VideoMetadata{
		Title:        o.Title,
		Author:       o.AuthorName,
		ThumbnailURL: o.ThumbnailURL,
	}, nil
}

func fetchOEmbed(ctx context.Context, endpoint, videoURL string) (oembedResp, error) {
	u := endpoint + "?format=json&url=" + url.QueryEscape(videoURL)
	data, status, err := engine.GetBrowserLike(ctx, u, 256*1024)
	engine.IncrFetch(err != nil || status != http.StatusOK)
	if err != nil {
		return oembedResp{}, err
	}
	if status != http.StatusOK {
		return oembedResp{}, &engine.UpstreamError{Provider: "oembed", Status: status}
	}
	var o oembedResp
	if err := json.Unmarshal(data, &o); err != nil {
		return oembedResp{}, fmt.Errorf("decode: %w", err)
	}
	if o.Title == "" {
		return oembedResp{}, fmt.Errorf("empty title")
	}
	return o, nil
}
