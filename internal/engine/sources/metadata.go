package sources

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// Placeholder metadata used when every provider fails.
const (
	DefaultVideoTitle  = "Video Title"
	DefaultVideoAuthor = "Unknown Creator"
)

// LookupMetadata tries the Data API (when keyed), the watch page, then oEmbed.
// Returns the joined provider errors when all of them fail.
func LookupMetadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	type provider struct {
		name string
		fn   func(context.Context, string) (engine.VideoMetadata, error)
	}
	providers := []provider{
		{"watch page", FetchWatchPageMetadata},
		{"oembed", FetchYouTubeOEmbed},
	}
	if YouTubeDataAPIEnabled() {
		providers = append([]provider{{"data api", FetchVideoDetails}}, providers...)
	}

	var errs []error
	for _, p := range providers {
		md, err := p.fn(ctx, videoID)
		if err == nil {
			return withLimits(md), nil
		}
		if ctx.Err() != nil {
			return engine.VideoMetadata{}, ctx.Err()
		}
		slog.Warn("metadata: provider failed", slog.String("provider", p.name),
			slog.String("id", videoID), slog.Any("err", err))
		errs = append(errs, err)
	}
	return engine.VideoMetadata{}, errors.Join(errs...)
}

// FetchMetadata is LookupMetadata with placeholder values instead of a provider error.
// The only error returned is context cancellation.
func FetchMetadata(ctx context.Context, videoID string) (engine.VideoMetadata, error) {
	engine.IncrMetadataRequests()
	md, err := LookupMetadata(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return engine.VideoMetadata{}, ctx.Err()
		}
		md = engine.VideoMetadata{VideoID: videoID}
	}
	if md.Title == "" {
		md.Title = DefaultVideoTitle
	}
	if md.Author == "" {
		md.Author = DefaultVideoAuthor
	}
	if md.ThumbnailURL == "" {
		md.ThumbnailURL = ThumbnailURL(videoID)
	}
	if md.EmbedURL == "" {
		md.EmbedURL = EmbedURL(videoID)
	}
	return md, nil
}

func withLimits(md engine.VideoMetadata) engine.VideoMetadata {
	limit := engine.Cfg.MaxVideoSeconds
	md.IsTooLong = limit > 0 && md.Duration > limit
	return md
}
