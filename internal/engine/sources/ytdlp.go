package sources

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// yt-dlp subtitle extraction. Runs the binary at Cfg.YtDlpPath and parses the VTT it writes.

var vttTimingRe = regexp.MustCompile(`^(\S+)\s+-->\s+(\S+)`)

// YtDlpEnabled reports whether a yt-dlp binary is configured.
func YtDlpEnabled() bool {
	return engine.Cfg.YtDlpPath != ""
}

// FetchYtDlpSubtitles downloads manual or auto subtitles for a video as cues.
func FetchYtDlpSubtitles(ctx context.Context, videoID, lang string) ([]engine.Cue, error) {
	if !YtDlpEnabled() {
		return nil, fmt.Errorf("yt-dlp: %w", engine.ErrNotConfigured)
	}
	if lang == "" {
		lang = "en"
	}

	dir, err := os.MkdirTemp("", "sayfluent-ytdlp-")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", lang + ".*," + lang,
		"--sub-format", "vtt",
		"--no-playlist", "--no-warnings", "--quiet",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		WatchURL(videoID),
	}
	cmd := exec.CommandContext(ctx, engine.Cfg.YtDlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, engine.TruncateRunes(strings.TrimSpace(stderr.String()), 300, "..."))
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if len(matches) == 0 {
		return nil, fmt.Errorf("yt-dlp: %w", engine.ErrNoTranscript)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: read subtitles: %w", err)
	}
	cues := ParseVTT(data)
	if len(cues) == 0 {
		return nil, fmt.Errorf("yt-dlp: %w", engine.ErrNoTranscript)
	}
	return cues, nil
}

// ParseVTT parses WebVTT into cues. YouTube auto-subs repeat the previous line
// at the top of every cue; repeated lines are dropped.
func ParseVTT(data []byte) []engine.Cue {
	var (
		cues     []engine.Cue
		cur      *engine.Cue
		lines    []string
		lastLine string
	)
	flush := func() {
		if cur == nil {
			return
		}
		var kept []string
		for _, l := range lines {
			if l == lastLine {
				continue
			}
			kept = append(kept, l)
			lastLine = l
		}
		if text := strings.Join(kept, " "); text != "" {
			cur.Text = text
			cues = append(cues, *cur)
		}
		cur, lines = nil, nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if m := vttTimingRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err1 := parseVTTTime(m[1])
			end, err2 := parseVTTTime(m[2])
			if err1 != nil || err2 != nil {
				continue
			}
			cur = &engine.Cue{Start: start, Duration: max(end-start, 0)}
			continue
		}
		if line == "" {
			// Auto-subs put a blank line between timing and text.
			if len(lines) > 0 {
				flush()
			}
			continue
		}
		if cur != nil {
			if text := engine.CleanCaption(line); text != "" {
				lines = append(lines, text)
			}
		}
	}
	flush()
	return cues
}

// parseVTTTime parses "HH:MM:SS.mmm" or "MM:SS.mmm".
func parseVTTTime(s string) (float64, error) {
	parts := strings.Split(strings.Replace(s, ",", ".", 1), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.New("bad vtt timestamp")
	}
	total := 0.0
	for _, p := range parts {
		v, err := parseFinite(p)
		if err != nil {
			return 0, err
		}
		total = total*60 + v
	}
	return total, nil
}
