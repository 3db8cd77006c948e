package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func TestParseISODuration(t *testing.T) {
	tests := map[string]int{
		"PT1H2M3S": 3723,
		"PT2M":     120,
		"PT45S":    45,
		"P1DT1S":   86401,
		"PT":       0,
		"":         0,
		"bogus":    0,
	}
	for in, want := range tests {
		if got := ParseISODuration(in); got != want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFetchVideoDetailsKeyFallback(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("key") == "primary" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"message":"quotaExceeded"}}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"dQw4w9WgXcQ","snippet":{"title":"Never Gonna","channelTitle":"Rick","description":"Desc."},"contentDetails":{"duration":"PT3M33S"}}]}`)
	}))
	defer srv.Close()

	prev := ytDataAPIBase
	ytDataAPIBase = srv.URL
	defer func() { ytDataAPIBase = prev }()
	engine.Init(engine.Config{YouTubeAPIKey: "primary", YouTubeAPIKeyFallback: "secondary"})
	defer engine.Init(engine.Config{})

	md, err := FetchVideoDetails(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if md.Title != "Never Gonna" || md.Author != "Rick" || md.Duration != 213 {
		t.Errorf("md = %+v", md)
	}
	if md.ThumbnailURL != ThumbnailURL("dQw4w9WgXcQ") || md.EmbedURL != EmbedURL("dQw4w9WgXcQ") {
		t.Errorf("urls = %q %q", md.ThumbnailURL, md.EmbedURL)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchVideoDetailsNotConfigured(t *testing.T) {
	engine.Init(engine.Config{})
	if _, err := FetchVideoDetails(context.Background(), "dQw4w9WgXcQ"); !errors.Is(err, engine.ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestParseWatchPageMetadata(t *testing.T) {
	t.Run("player response", func(t *testing.T) {
		page := `<html><head><meta name="description" content="short"></head><body><script>var ytInitialPlayerResponse = {"videoDetails":{"title":"From Player","author":"Chan","shortDescription":"Full description. Second line.","lengthSeconds":"95"}};</script></body></html>`
		md, err := parseWatchPageMetadata("dQw4w9WgXcQ", []byte(page))
		if err != nil {
			t.Fatal(err)
		}
		if md.Title != "From Player" || md.Description != "Full description. Second line." || md.Duration != 95 || md.Author != "Chan" {
			t.Errorf("md = %+v", md)
		}
	})

	t.Run("meta tags", func(t *testing.T) {
		page := `<html><head><title>Ignored - YouTube</title>
<meta property="og:title" content="OG Title">
<meta name="description" content="Meta description here.">
<meta itemprop="duration" content="PT1M5S">
</head><body><span itemprop="author"><link itemprop="name" content="Meta Author"></span></body></html>`
		md, err := parseWatchPageMetadata("dQw4w9WgXcQ", []byte(page))
		if err != nil {
			t.Fatal(err)
		}
		if md.Title != "OG Title" || md.Description != "Meta description here." || md.Duration != 65 || md.Author != "Meta Author" {
			t.Errorf("md = %+v", md)
		}
	})

	t.Run("empty page", func(t *testing.T) {
		if _, err := parseWatchPageMetadata("dQw4w9WgXcQ", []byte("<html></html>")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestFetchYouTubeOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("url"), "dQw4w9WgXcQ") {
			http.Error(w, "bad url", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"title":"oEmbed Title","author_name":"oEmbed Author"}`)
	}))
	defer srv.Close()

	prev := youtubeOEmbedURL
	youtubeOEmbedURL = srv.URL
	defer func() { youtubeOEmbedURL = prev }()
	engine.Init(engine.Config{})

	md, err := FetchYouTubeOEmbed(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if md.Title != "oEmbed Title" || md.Author != "oEmbed Author" || md.ThumbnailURL != ThumbnailURL("dQw4w9WgXcQ") || md.Duration != 0 {
		t.Errorf("md = %+v", md)
	}
}

type failTransport struct{}

func (failTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}

func TestFetchMetadataPlaceholders(t *testing.T) {
	engine.Init(engine.Config{
		YouTubeAPIKey: "k",
		HTTPClient:    &http.Client{Transport: failTransport{}},
	})
	defer engine.Init(engine.Config{})

	md, err := FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if md.Title != DefaultVideoTitle || md.Author != DefaultVideoAuthor {
		t.Errorf("md = %+v", md)
	}
	if md.ThumbnailURL != "https://img.youtube.com/vi/dQw4w9WgXcQ/0.jpg" {
		t.Errorf("thumbnail = %q", md.ThumbnailURL)
	}
	if _, err := LookupMetadata(context.Background(), "dQw4w9WgXcQ"); err == nil {
		t.Error("LookupMetadata should surface provider errors")
	}
}

func TestWithLimits(t *testing.T) {
	engine.Init(engine.Config{MaxVideoSeconds: 120})
	defer engine.Init(engine.Config{})
	if md := withLimits(engine.VideoMetadata{Duration: 121}); !md.IsTooLong {
		t.Error("121s should be too long")
	}
	if md := withLimits(engine.VideoMetadata{Duration: 120}); md.IsTooLong {
		t.Error("120s should be allowed")
	}
	if md := withLimits(engine.VideoMetadata{}); md.IsTooLong {
		t.Error("unknown duration should be allowed")
	}
}
