package engine

import (
	"html"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentBot    = "SayFluent/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// CleanCaption turns a raw caption line into display text: tags removed,
// entities decoded (twice, YouTube double-encodes apostrophes), whitespace collapsed.
func CleanCaption(s string) string {
	s = html.UnescapeString(html.UnescapeString(s))
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}
