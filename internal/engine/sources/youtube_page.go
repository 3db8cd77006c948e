package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// FetchWatchPageMetadata reads video metadata from the watch page without an API key.
// videoDetails in ytInitialPlayerResponse carries the full description; the
// <meta> tags are the fallback when the player blob is missing.
func FetchWatchPageMetadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	body, err := fetchWatchPage(ctx, videoID)
	if err != nil {
		return engine.VideoMetadata{}, err
	}
	return parseWatchPageMetadata(videoID, body)
}

func parseWatchPageMetadata(videoID string, body []byte) (engine.VideoMetadata, error) {
	md := engine.VideoMetadata{
		VideoID:      videoID,
		ThumbnailURL: ThumbnailURL(videoID),
		EmbedURL:     EmbedURL(videoID),
	}

	if pr, err := parseInitialPlayerResponse(body); err == nil && pr.VideoDetails != nil {
		md.Title = pr.VideoDetails.Title
		md.Author = pr.VideoDetails.Author
		md.Description = pr.VideoDetails.ShortDescription
		md.Duration, _ = strconv.Atoi(pr.VideoDetails.LengthSeconds)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return md, fmt.Errorf("parse watch page: %w", err)
	}
	meta := func(sel string) string {
		v, _ := doc.Find(sel).First().Attr("content")
		return strings.TrimSpace(v)
	}
	if md.Title == "" {
		md.Title = meta(`meta[property="og:title"]`)
	}
	if md.Title == "" {
		md.Title = strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), " - YouTube")
	}
	if md.Description == "" {
		md.Description = meta(`meta[name="description"]`)
	}
	if md.Description == "" {
		md.Description = meta(`meta[property="og:description"]`)
	}
	if md.Author == "" {
		md.Author = meta(`span[itemprop="author"] link[itemprop="name"]`)
	}
	if md.Duration == 0 {
		md.Duration = ParseISODuration(meta(`meta[itemprop="duration"]`))
	}

	if md.Title == "" && md.Description == "" {
		return md, errors.New("watch page has no title or description")
	}
	return md, nil
}
