package sources

import (
	"errors"
	"testing"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch v after other params", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"music host", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts", "https://www.youtube.com/shorts/abcDEF_12-3", "abcDEF_12-3", false},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"empty", "", "", true},
		{"partial", "https://www.youtube.com/watch?v=", "", true},
		{"short id", "https://youtu.be/abc", "", true},
		{"other host", "https://vimeo.com/123456", "", true},
		{"garbage", "::::", "", true},
		{"channel", "https://www.youtube.com/@somechannel", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, engine.ErrInvalidURL) {
					t.Fatalf("ExtractVideoID(%q) err = %v, want ErrInvalidURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID(%q): %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractVideoIDIdempotent(t *testing.T) {
	for _, id := range []string{"dQw4w9WgXcQ", "abcDEF_12-3", "-_-_-_-_-_-"} {
		got, err := ExtractVideoID(WatchURL(id))
		if err != nil || got != id {
			t.Errorf("ExtractVideoID(WatchURL(%q)) = %q, %v", id, got, err)
		}
		got, err = ExtractVideoID(EmbedURL(id))
		if err != nil || got != id {
			t.Errorf("ExtractVideoID(EmbedURL(%q)) = %q, %v", id, got, err)
		}
	}
}

func TestValidateTikTokURL(t *testing.T) {
	valid := []string{
		"https://www.tiktok.com/@user/video/7234567890123456789",
		"https://vm.tiktok.com/ZMabc123/",
		"http://m.tiktok.com/v/123.html",
	}
	for _, u := range valid {
		if err := ValidateTikTokURL(u); err != nil {
			t.Errorf("ValidateTikTokURL(%q) = %v, want nil", u, err)
		}
	}
	invalid := []string{
		"",
		"https://www.tiktok.com/",
		"https://www.tiktok.com",
		"ftp://www.tiktok.com/@user/video/1",
		"https://tiktok.example.com/@user/video/1",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	for _, u := range invalid {
		if err := ValidateTikTokURL(u); !errors.Is(err, engine.ErrInvalidURL) {
			t.Errorf("ValidateTikTokURL(%q) = %v, want ErrInvalidURL", u, err)
		}
	}
}

func TestParseVideoURL(t *testing.T) {
	ref, err := ParseVideoURL("https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Platform != engine.PlatformYouTube || ref.ID != "dQw4w9WgXcQ" || ref.URL != WatchURL("dQw4w9WgXcQ") {
		t.Errorf("youtube ref = %+v", ref)
	}

	ref, err = ParseVideoURL("https://www.tiktok.com/@user/video/1")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Platform != engine.PlatformTikTok || ref.ID != "" {
		t.Errorf("tiktok ref = %+v", ref)
	}

	if _, err := ParseVideoURL("https://www.tiktok.com/"); !errors.Is(err, engine.ErrInvalidURL) {
		t.Errorf("bare tiktok err = %v", err)
	}
}
