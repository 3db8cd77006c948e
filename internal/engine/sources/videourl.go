package sources

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

var (
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	// Path shapes that carry the id as the next segment.
	ytPathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}
)

// Canonical URL builders.
func WatchURL(id string) string     { return "https://www.youtube.com/watch?v=" + id }
func EmbedURL(id string) string     { return "https://www.youtube.com/embed/" + id }
func ThumbnailURL(id string) string { return "https://img.youtube.com/vi/" + id + "/0.jpg" }

func isYouTubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com", "youtu.be":
		return true
	}
	return false
}

func isTikTokHost(host string) bool {
	switch strings.ToLower(host) {
	case "tiktok.com", "www.tiktok.com", "m.tiktok.com", "vm.tiktok.com", "vt.tiktok.com":
		return true
	}
	return false
}

func parseLoose(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", engine.ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidURL, raw)
	}
	return u, nil
}

// ExtractVideoID returns the 11-char YouTube id from watch, youtu.be, embed and
// shorts URLs, or from a bare id.
func ExtractVideoID(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if videoIDRe.MatchString(s) {
		return s, nil
	}
	u, err := parseLoose(s)
	if err != nil {
		return "", err
	}
	if !isYouTubeHost(u.Host) {
		return "", fmt.Errorf("%w: not a YouTube URL: %q", engine.ErrInvalidURL, rawURL)
	}

	var candidate string
	switch {
	case strings.EqualFold(u.Host, "youtu.be"), strings.EqualFold(u.Host, "www.youtu.be"):
		candidate = firstPathSegment(u.Path)
	case u.Path == "/watch" || u.Path == "/watch/":
		candidate = u.Query().Get("v")
	default:
		for _, p := range ytPathPrefixes {
			if rest, ok := strings.CutPrefix(u.Path, p); ok {
				candidate = firstPathSegment(rest)
				break
			}
		}
	}
	if !videoIDRe.MatchString(candidate) {
		return "", fmt.Errorf("%w: no video id in %q", engine.ErrInvalidURL, rawURL)
	}
	return candidate, nil
}

func firstPathSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// ValidateTikTokURL accepts http(s) tiktok.com URLs with a non-empty path.
func ValidateTikTokURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", engine.ErrInvalidURL, rawURL)
	}
	if !isTikTokHost(u.Host) {
		return fmt.Errorf("%w: not a TikTok URL: %q", engine.ErrInvalidURL, rawURL)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("%w: TikTok URL has no video path", engine.ErrInvalidURL)
	}
	return nil
}

// ParseVideoURL dispatches on host. TikTok refs carry no id.
func ParseVideoURL(rawURL string) (engine.VideoRef, error) {
	if u, err := parseLoose(rawURL); err == nil && isTikTokHost(u.Host) {
		if err := ValidateTikTokURL(u.String()); err != nil {
			return engine.VideoRef{}, err
		}
		return engine.VideoRef{Platform: engine.PlatformTikTok, URL: u.String()}, nil
	}
	id, err := ExtractVideoID(rawURL)
	if err != nil {
		return engine.VideoRef{}, err
	}
	return engine.VideoRef{Platform: engine.PlatformYouTube, ID: id, URL: WatchURL(id)}, nil
}
