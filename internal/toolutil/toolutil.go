// Package toolutil holds the request-level operations shared by the MCP tools
// and the HTTP API: URL resolution, cached chain runs and metadata lookups.
package toolutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/sources"
)

// ErrVideoTooLong is returned with metadata when a video exceeds MaxVideoSeconds.
var ErrVideoTooLong = errors.New("video too long")

// NormLang normalises a caption language: empty → "en", lowercased.
func NormLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en"
	}
	return lang
}

func transcriptCacheKey(ref engine.VideoRef, lang string, refine bool) string {
	key := ref.ID
	if ref.Platform == engine.PlatformTikTok {
		key = ref.URL
	}
	return engine.CacheKey("transcript", string(ref.Platform), key, lang, strconv.FormatBool(refine))
}

// ResolveTranscript parses the URL and runs the platform chain, consulting the
// cache unless NoCache is set. Placeholder results are never cached.
func ResolveTranscript(ctx context.Context, in engine.TranscriptInput) (engine.TranscriptResult, error) {
	ref, err := sources.ParseVideoURL(in.URL)
	if err != nil {
		return engine.TranscriptResult{}, err
	}
	return TranscriptFor(ctx, ref, in.Language, in.Refine, in.NoCache, nil)
}

// TranscriptFor runs the chain for an already parsed ref. md, when set, is
// reused by the metadata stage.
func TranscriptFor(ctx context.Context, ref engine.VideoRef, lang string, refine, noCache bool, md *engine.VideoMetadata) (engine.TranscriptResult, error) {
	lang = NormLang(lang)
	key := transcriptCacheKey(ref, lang, refine)
	if !noCache {
		if res, ok := engine.CacheLoadJSON[engine.TranscriptResult](ctx, key); ok {
			slog.Debug("transcript cache hit", slog.String("video", ref.ID), slog.String("platform", string(ref.Platform)))
			return res, nil
		}
	}

	chain := dialogue.ChainFor(ref, dialogue.ChainOptions{Lang: lang, Refine: refine, Metadata: md})
	res, err := chain.Run(ctx, ref)
	if err != nil {
		return engine.TranscriptResult{}, err
	}
	if res.TranscriptSource != engine.SourceDefault {
		engine.CacheStoreJSON(ctx, key, res)
	}
	return res, nil
}

// MetadataResult is video metadata plus, for playable videos, its transcript.
type MetadataResult struct {
	Metadata   engine.VideoMetadata     `json:"metadata"`
	Transcript *engine.TranscriptResult `json:"transcript,omitempty"`
}

// ResolveMetadata looks up YouTube metadata and, unless the video is too
// long, its transcript. A too-long video returns the metadata together with
// ErrVideoTooLong.
func ResolveMetadata(ctx context.Context, rawURL, lang string, noCache bool) (MetadataResult, error) {
	id, err := sources.ExtractVideoID(rawURL)
	if err != nil {
		return MetadataResult{}, err
	}

	key := engine.CacheKey("metadata", id)
	md, ok := engine.VideoMetadata{}, false
	if !noCache {
		md, ok = engine.CacheLoadJSON[engine.VideoMetadata](ctx, key)
	}
	if !ok {
		if md, err = sources.FetchMetadata(ctx, id); err != nil {
			return MetadataResult{}, err
		}
		if md.Title != sources.DefaultVideoTitle {
			engine.CacheStoreJSON(ctx, key, md)
		}
	}

	out := MetadataResult{Metadata: md}
	if md.IsTooLong {
		return out, fmt.Errorf("%w: %ds exceeds %ds", ErrVideoTooLong, md.Duration, engine.Cfg.MaxVideoSeconds)
	}
	ref := engine.VideoRef{Platform: engine.PlatformYouTube, ID: id, URL: sources.WatchURL(id)}
	tr, err := TranscriptFor(ctx, ref, lang, false, noCache, &md)
	if err != nil {
		return out, err
	}
	out.Transcript = &tr
	return out, nil
}

// Request caps. Word comparison is quadratic and splitting may cost one LLM
// call per segment.
const (
	MaxCompareWords  = 500
	MaxSplitSegments = 200
)

// CompareSpeech grades an attempt, leniently via the LLM when asked.
func CompareSpeech(ctx context.Context, in engine.CompareInput) (dialogue.Comparison, error) {
	if strings.TrimSpace(in.Expected) == "" {
		return dialogue.Comparison{}, fmt.Errorf("%w: expected text is required", engine.ErrInvalidInput)
	}
	for name, text := range map[string]string{"said": in.Said, "expected": in.Expected} {
		if n := len(strings.Fields(text)); n > MaxCompareWords {
			return dialogue.Comparison{}, fmt.Errorf("%w: %s has %d words (max %d)", engine.ErrInvalidInput, name, n, MaxCompareWords)
		}
	}
	engine.IncrCompareRequests()
	if in.Lenient {
		return dialogue.GradeLenient(ctx, in.Said, in.Expected), nil
	}
	return dialogue.Grade(in.Said, in.Expected), nil
}

// SplitSegments validates the batch and splits long segments into sentences.
func SplitSegments(ctx context.Context, segs []engine.DialogueSegment) ([]engine.DialogueSegment, error) {
	switch {
	case len(segs) == 0:
		return nil, fmt.Errorf("%w: segments are required", engine.ErrInvalidInput)
	case len(segs) > MaxSplitSegments:
		return nil, fmt.Errorf("%w: %d segments (max %d)", engine.ErrInvalidInput, len(segs), MaxSplitSegments)
	}
	return dialogue.SplitSegments(ctx, segs), nil
}

// WritingFeedback grades a piece of learner writing with the LLM.
func WritingFeedback(ctx context.Context, in engine.WritingFeedbackInput) (engine.WritingFeedback, error) {
	if n := len([]rune(in.Text)); n > library.MaxWritingChars {
		return engine.WritingFeedback{}, fmt.Errorf("%w: text has %d characters (max %d)", engine.ErrInvalidInput, n, library.MaxWritingChars)
	}
	return dialogue.GradeWriting(ctx, in.Text, in.ReferenceAnswer)
}
