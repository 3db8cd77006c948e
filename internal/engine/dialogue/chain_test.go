package dialogue

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/sources"
)

type failTransport struct{}

func (failTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}

func stage(name string, fn func(context.Context, engine.VideoRef) (StageResult, error)) Stage {
	return StageFunc{StageName: name, Fn: fn}
}

func failing(name string) Stage {
	return stage(name, func(context.Context, engine.VideoRef) (StageResult, error) {
		return StageResult{}, errors.New(name + " down")
	})
}

func TestChainOrder(t *testing.T) {
	engine.Init(engine.Config{})
	var ran []string
	record := func(name string, res StageResult, err error) Stage {
		return stage(name, func(context.Context, engine.VideoRef) (StageResult, error) {
			ran = append(ran, name)
			return res, err
		})
	}
	c := &Chain{Stages: []Stage{
		record("one", StageResult{}, errors.New("boom")),
		record("two", StageResult{Source: engine.SourceRapidAPI}, nil), // empty counts as failure
		record("three", StageResult{Segments: TitleSegments("Hi there"), Source: engine.SourceTitle, Title: "Hi there"}, nil),
		record("four", StageResult{Segments: DefaultSegments(), Source: engine.SourceDefault}, nil),
	}}

	res, err := c.Run(context.Background(), engine.VideoRef{Platform: engine.PlatformYouTube, ID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, ran)
	assert.Equal(t, engine.SourceTitle, res.TranscriptSource)
	assert.Equal(t, "Hi there", res.Title)
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", res.EmbedURL)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, "boom", res.Attempts[0].Error)
	assert.Contains(t, res.Attempts[1].Error, engine.ErrNoTranscript.Error())
	assert.Empty(t, res.Attempts[2].Error)
}

func TestChainAllStagesFail(t *testing.T) {
	engine.Init(engine.Config{})
	c := &Chain{Stages: []Stage{failing("a"), failing("b")}}
	res, err := c.Run(context.Background(), engine.VideoRef{Platform: engine.PlatformYouTube, ID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, engine.SourceDefault, res.TranscriptSource)
	assert.Len(t, res.Segments, 10)
	assert.Len(t, res.Attempts, 2)
}

func TestChainStagePanic(t *testing.T) {
	engine.Init(engine.Config{})
	c := &Chain{Stages: []Stage{
		stage("crash", func(context.Context, engine.VideoRef) (StageResult, error) { panic("bad input") }),
	}}
	res, err := c.Run(context.Background(), engine.VideoRef{Platform: engine.PlatformYouTube, ID: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Segments)
	assert.Contains(t, res.Attempts[0].Error, "panicked")
}

func TestChainStageTimeout(t *testing.T) {
	engine.Init(engine.Config{})
	c := &Chain{
		StageTimeout: 20 * time.Millisecond,
		Stages: []Stage{
			stage("slow", func(ctx context.Context, _ engine.VideoRef) (StageResult, error) {
				<-ctx.Done()
				return StageResult{}, ctx.Err()
			}),
			stage("fast", func(context.Context, engine.VideoRef) (StageResult, error) {
				return StageResult{Segments: DefaultSegments(), Source: engine.SourceDescription}, nil
			}),
		},
	}
	res, err := c.Run(context.Background(), engine.VideoRef{Platform: engine.PlatformYouTube, ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, engine.SourceDescription, res.TranscriptSource)
	assert.Contains(t, res.Attempts[0].Error, "timed out")
}

func TestChainCancelled(t *testing.T) {
	engine.Init(engine.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Chain{Stages: []Stage{failing("a")}}
	_, err := c.Run(ctx, engine.VideoRef{Platform: engine.PlatformYouTube, ID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChainMaxSegments(t *testing.T) {
	engine.Init(engine.Config{})
	c := &Chain{MaxSegments: 4, Stages: []Stage{stage(StageDefault, defaultStage)}}
	res, err := c.Run(context.Background(), engine.VideoRef{Platform: engine.PlatformYouTube, ID: "x"})
	require.NoError(t, err)
	assert.Len(t, res.Segments, 4)
}

func TestYouTubeChainNetworkDown(t *testing.T) {
	engine.Init(engine.Config{
		HTTPClient:      &http.Client{Transport: failTransport{}},
		YouTubeAPIKey:   "k",
		RapidAPIKey:     "k",
		TranscriptLangs: []string{"en"},
		StageTimeout:    2 * time.Second,
	})
	defer engine.Init(engine.Config{})

	for _, raw := range []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"dQw4w9WgXcQ",
	} {
		ref, err := sources.ParseVideoURL(raw)
		require.NoError(t, err, raw)
		res, err := ChainFor(ref, ChainOptions{}).Run(context.Background(), ref)
		require.NoError(t, err, raw)
		require.NotEmpty(t, res.Segments, raw)
		assert.Equal(t, engine.SourceDefault, res.TranscriptSource, raw)
		assertWellFormed(t, res.Segments)

		var names []string
		for _, a := range res.Attempts {
			names = append(names, a.Stage)
		}
		assert.Equal(t, []string{StageCaptions, StageRapidAPI, StageMetadata, StageDefault}, names, raw)
	}
}

func TestYouTubeChainUsesKnownMetadata(t *testing.T) {
	engine.Init(engine.Config{HTTPClient: &http.Client{Transport: failTransport{}}})
	defer engine.Init(engine.Config{})

	md := &engine.VideoMetadata{
		Title:       "Morning Routine",
		Description: "I wake up early. Then I make coffee. After that I read the news! Finally I go to work.",
	}
	ref := engine.VideoRef{Platform: engine.PlatformYouTube, ID: "dQw4w9WgXcQ"}
	res, err := YouTubeChain(ChainOptions{Metadata: md}).Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, engine.SourceDescription, res.TranscriptSource)
	assert.Equal(t, "Morning Routine", res.Title)
	require.Len(t, res.Segments, 4)
	assert.Equal(t, "Then I make coffee", res.Segments[1].Text)

	md.Description = "Too short."
	res, err = YouTubeChain(ChainOptions{Metadata: md}).Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, engine.SourceTitle, res.TranscriptSource)
	assert.Equal(t, "Morning Routine", res.Segments[0].Text)
}

func TestTikTokChainNetworkDown(t *testing.T) {
	engine.Init(engine.Config{
		HTTPClient:   &http.Client{Transport: failTransport{}},
		StageTimeout: 2 * time.Second,
	})
	defer engine.Init(engine.Config{})

	ref, err := sources.ParseVideoURL("https://www.tiktok.com/@user/video/7234567890123456789")
	require.NoError(t, err)
	res, err := ChainFor(ref, ChainOptions{}).Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, engine.SourceDefault, res.TranscriptSource)
	assert.Equal(t, DefaultTikTokTitle, res.Title)
	assert.Equal(t, ref.URL, res.EmbedURL)
	assert.NotEmpty(t, res.Segments)
}

func TestMetadataResultIgnoresPlaceholderTitle(t *testing.T) {
	_, err := metadataResult(engine.VideoMetadata{Title: sources.DefaultVideoTitle})
	assert.ErrorIs(t, err, engine.ErrNoTranscript)
}

func TestChainTitleLookup(t *testing.T) {
	engine.Init(engine.Config{})
	captions := stage(StageCaptions, func(context.Context, engine.VideoRef) (StageResult, error) {
		return StageResult{Segments: DefaultSegments(), Source: engine.SourceYouTubeTranscript, Captions: true}, nil
	})
	ref := engine.VideoRef{Platform: engine.PlatformYouTube, ID: "dQw4w9WgXcQ"}

	var lookups int
	c := &Chain{
		Stages: []Stage{captions},
		TitleLookup: func(_ context.Context, got engine.VideoRef) (string, error) {
			lookups++
			assert.Equal(t, ref, got)
			return "Never Gonna Give You Up", nil
		},
	}
	res, err := c.Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", res.Title)

	c.Title = "Known"
	res, err = c.Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Known", res.Title)
	assert.Equal(t, 1, lookups, "known titles skip the lookup")

	c.Title = ""
	c.TitleLookup = func(context.Context, engine.VideoRef) (string, error) { return "", errors.New("oembed down") }
	res, err = c.Run(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, res.Title)
	assert.Equal(t, engine.SourceYouTubeTranscript, res.TranscriptSource)

	placeholder := &Chain{
		Stages: []Stage{failing("a")},
		TitleLookup: func(context.Context, engine.VideoRef) (string, error) {
			t.Error("placeholder results must not look up a title")
			return "", nil
		},
	}
	_, err = placeholder.Run(context.Background(), ref)
	require.NoError(t, err)
}

func TestStandardChainsLookUpTitles(t *testing.T) {
	engine.Init(engine.Config{})
	assert.NotNil(t, YouTubeChain(ChainOptions{}).TitleLookup)
	assert.NotNil(t, TikTokChain(ChainOptions{}).TitleLookup)
}
