package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/sources"
)

// Stage names, as reported in attempts and metrics.
const (
	StageCaptions       = "captions"
	StageRapidAPI       = "rapidapi"
	StageYtDlp          = "yt-dlp"
	StageMetadata       = "metadata"
	StageTikTokRapidAPI = "tiktok-rapidapi"
	StageTikTokOEmbed   = "tiktok-oembed"
	StageDefault        = "default"
)

const defaultStageTimeout = 15 * time.Second

// StageResult is what one successful stage produced.
type StageResult struct {
	Segments []engine.DialogueSegment
	Source   engine.TranscriptSource
	Title    string
	Captions bool // timing came from real captions; eligible for LLM refinement
}

// Stage is one transcript source in a fallback chain.
type Stage interface {
	Name() string
	Run(ctx context.Context, ref engine.VideoRef) (StageResult, error)
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, ref engine.VideoRef) (StageResult, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
	return s.Fn(ctx, ref)
}

// Chain runs stages in order and returns the first non-empty result.
// Stage failures are logged and recorded, never returned.
type Chain struct {
	Stages       []Stage
	StageTimeout time.Duration
	MaxSegments  int
	Refine       bool
	Title        string // known title, used for refinement and the result
	// TitleLookup names the video when the winning stage did not. Placeholder
	// results skip it.
	TitleLookup func(ctx context.Context, ref engine.VideoRef) (string, error)
}

// Run executes the chain. The only error is cancellation of ctx.
func (c *Chain) Run(ctx context.Context, ref engine.VideoRef) (engine.TranscriptResult, error) {
	engine.IncrTranscriptRequests()
	timeout := c.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}

	res := engine.TranscriptResult{
		VideoID:  ref.ID,
		Platform: ref.Platform,
		Title:    c.Title,
		EmbedURL: embedURLFor(ref),
	}

	var found *StageResult
	for _, st := range c.Stages {
		if err := ctx.Err(); err != nil {
			return engine.TranscriptResult{}, err
		}
		out, err := runStage(ctx, st, ref, timeout)
		if err == nil && len(out.Segments) == 0 {
			err = engine.ErrNoTranscript
		}
		if err != nil {
			if ctx.Err() != nil {
				return engine.TranscriptResult{}, ctx.Err()
			}
			engine.IncrStage(st.Name(), false)
			slog.Warn("transcript: stage failed", slog.String("stage", st.Name()),
				slog.String("video", refLabel(ref)), slog.Any("err", err))
			res.Attempts = append(res.Attempts, engine.StageAttempt{Stage: st.Name(), Error: err.Error()})
			continue
		}
		engine.IncrStage(st.Name(), true)
		res.Attempts = append(res.Attempts, engine.StageAttempt{Stage: st.Name()})
		found = &out
		break
	}

	if found == nil {
		found = &StageResult{Segments: DefaultSegments(), Source: engine.SourceDefault}
	}
	if res.Title == "" {
		res.Title = found.Title
	}
	if res.Title == "" && c.TitleLookup != nil && found.Source != engine.SourceDefault {
		res.Title = c.lookupTitle(ctx, ref, timeout)
	}
	res.Segments = found.Segments
	res.TranscriptSource = found.Source

	if c.Refine && found.Captions && engine.LLMEnabled() {
		refined, err := RefineDialogue(ctx, res.Title, res.Segments)
		if err != nil {
			slog.Warn("transcript: refine failed, keeping grouped segments",
				slog.String("video", refLabel(ref)), slog.Any("err", err))
		} else {
			res.Segments = refined
			res.Refined = true
		}
	}

	res.Segments = CapSegments(res.Segments, c.MaxSegments)
	return res, nil
}

func (c *Chain) lookupTitle(ctx context.Context, ref engine.VideoRef, timeout time.Duration) string {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	title, err := c.TitleLookup(tctx, ref)
	if err != nil {
		slog.Debug("transcript: title lookup failed", slog.String("video", refLabel(ref)), slog.Any("err", err))
		return ""
	}
	return title
}

func runStage(ctx context.Context, st Stage, ref engine.VideoRef, timeout time.Duration) (out StageResult, err error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", st.Name(), r)
		}
	}()
	err = engine.TrackOperation(sctx, "stage:"+st.Name(), func(ctx context.Context) error {
		var runErr error
		out, runErr = st.Run(ctx, ref)
		return runErr
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("stage timed out after %s: %w", timeout, err)
	}
	return out, err
}

func embedURLFor(ref engine.VideoRef) string {
	if ref.Platform == engine.PlatformTikTok {
		return ref.URL
	}
	return sources.EmbedURL(ref.ID)
}

func refLabel(ref engine.VideoRef) string {
	if ref.ID != "" {
		return ref.ID
	}
	return ref.URL
}

// ChainOptions configures the standard chains.
type ChainOptions struct {
	Lang     string
	Refine   bool
	Metadata *engine.VideoMetadata // already fetched metadata, reused by the metadata stage
}

func (o ChainOptions) langs() []string {
	langs := engine.Cfg.TranscriptLangs
	if o.Lang != "" {
		langs = append([]string{o.Lang}, langs...)
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return langs
}

func groupedResult(cues []engine.Cue, src engine.TranscriptSource) (StageResult, error) {
	segs := FromGroups(GroupCues(cues, DefaultGroupOptions))
	if len(segs) == 0 {
		return StageResult{}, engine.ErrNoTranscript
	}
	return StageResult{Segments: segs, Source: src, Captions: true}, nil
}

// YouTubeChain builds the canonical YouTube chain: captions, RapidAPI (when keyed),
// yt-dlp (when configured), description/title metadata, then placeholders.
func YouTubeChain(opts ChainOptions) *Chain {
	langs := opts.langs()
	stages := []Stage{
		StageFunc{StageCaptions, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			cues, err := sources.FetchYouTubeCaptions(ctx, ref.ID, langs)
			if err != nil {
				return StageResult{}, err
			}
			return groupedResult(cues, engine.SourceYouTubeTranscript)
		}},
	}
	if sources.RapidAPIEnabled() {
		stages = append(stages, StageFunc{StageRapidAPI, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			cues, err := sources.FetchRapidAPIYouTubeTranscript(ctx, ref.ID, langs[0])
			if err != nil {
				return StageResult{}, err
			}
			return groupedResult(cues, engine.SourceRapidAPI)
		}})
	}
	if sources.YtDlpEnabled() {
		stages = append(stages, StageFunc{StageYtDlp, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			cues, err := sources.FetchYtDlpSubtitles(ctx, ref.ID, langs[0])
			if err != nil {
				return StageResult{}, err
			}
			return groupedResult(cues, engine.SourceYtDlp)
		}})
	}
	stages = append(stages,
		StageFunc{StageMetadata, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			var md engine.VideoMetadata
			if opts.Metadata != nil {
				md = *opts.Metadata
			} else {
				var err error
				if md, err = sources.LookupMetadata(ctx, ref.ID); err != nil {
					return StageResult{}, err
				}
			}
			return metadataResult(md)
		}},
		StageFunc{StageDefault, defaultStage},
	)

	c := &Chain{
		Stages:       stages,
		StageTimeout: engine.Cfg.StageTimeout,
		MaxSegments:  engine.Cfg.MaxSegments,
		Refine:       opts.Refine,
		TitleLookup:  youTubeTitle,
	}
	if opts.Metadata != nil {
		c.Title = opts.Metadata.Title
	}
	return c
}

// youTubeTitle asks oEmbed, the cheapest metadata provider, for the title.
func youTubeTitle(ctx context.Context, ref engine.VideoRef) (string, error) {
	md, err := sources.FetchYouTubeOEmbed(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	return md.Title, nil
}

func tikTokTitle(ctx context.Context, ref engine.VideoRef) (string, error) {
	md, err := sources.FetchTikTokOEmbed(ctx, ref.URL)
	if err != nil {
		return "", err
	}
	return md.Title, nil
}

// metadataResult prefers description sentences, then the title with follow-ups.
// Placeholder titles do not count.
func metadataResult(md engine.VideoMetadata) (StageResult, error) {
	if segs, ok := DescriptionSegments(md.Description); ok {
		return StageResult{Segments: segs, Source: engine.SourceDescription, Title: md.Title}, nil
	}
	if md.Title != "" && md.Title != sources.DefaultVideoTitle {
		return StageResult{Segments: TitleSegments(md.Title), Source: engine.SourceTitle, Title: md.Title}, nil
	}
	return StageResult{}, fmt.Errorf("metadata: no usable description or title: %w", engine.ErrNoTranscript)
}

func defaultStage(context.Context, engine.VideoRef) (StageResult, error) {
	return StageResult{Segments: DefaultSegments(), Source: engine.SourceDefault}, nil
}

// DefaultTikTokTitle is used when no provider returns a title.
const DefaultTikTokTitle = "TikTok Video"

// TikTokChain builds the TikTok chain: RapidAPI transcription (when keyed),
// oEmbed title, then placeholders.
func TikTokChain(opts ChainOptions) *Chain {
	var stages []Stage
	if sources.RapidAPIEnabled() {
		stages = append(stages, StageFunc{StageTikTokRapidAPI, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			tr, err := sources.FetchTikTokTranscript(ctx, ref.URL, opts.Lang)
			if err != nil {
				return StageResult{}, err
			}
			out := StageResult{Source: engine.SourceTikTokRapidAPI, Title: tr.Title}
			if len(tr.Cues) > 0 {
				out.Segments = FromTimedCues(tr.Cues)
				out.Captions = true
			} else {
				out.Segments = TextSegments(tr.Text)
			}
			return out, nil
		}})
	}
	stages = append(stages,
		StageFunc{StageTikTokOEmbed, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			md, err := sources.FetchTikTokOEmbed(ctx, ref.URL)
			if err != nil {
				return StageResult{}, err
			}
			return StageResult{Segments: TitleSegments(md.Title), Source: engine.SourceTitle, Title: md.Title}, nil
		}},
		StageFunc{StageDefault, func(ctx context.Context, ref engine.VideoRef) (StageResult, error) {
			out, _ := defaultStage(ctx, ref)
			out.Title = DefaultTikTokTitle
			return out, nil
		}},
	)
	return &Chain{
		Stages:       stages,
		StageTimeout: engine.Cfg.StageTimeout,
		MaxSegments:  engine.Cfg.MaxSegments,
		Refine:       opts.Refine,
		TitleLookup:  tikTokTitle,
	}
}

// ChainFor picks the chain matching the ref's platform.
func ChainFor(ref engine.VideoRef, opts ChainOptions) *Chain {
	if ref.Platform == engine.PlatformTikTok {
		return TikTokChain(opts)
	}
	return YouTubeChain(opts)
}
