package toolutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
)

func testStore(t *testing.T) library.Store {
	t.Helper()
	s, err := library.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLessonWithoutStore(t *testing.T) {
	_, err := SaveLesson(context.Background(), nil, LessonInput{URL: "https://youtu.be/dQw4w9WgXcQ"})
	assert.ErrorIs(t, err, engine.ErrNotConfigured)
}

func TestSaveLessonRunsChain(t *testing.T) {
	offline(t, engine.Config{})
	store := testStore(t)
	ctx := context.Background()

	l, err := SaveLesson(ctx, store, LessonInput{URL: "https://youtu.be/dQw4w9WgXcQ", Level: "advanced"})
	require.NoError(t, err)
	assert.Equal(t, engine.PlatformYouTube, l.Platform)
	assert.Equal(t, "dQw4w9WgXcQ", l.VideoID)
	assert.Equal(t, library.LevelAdvanced, l.Level)
	assert.Equal(t, engine.SourceDefault, l.TranscriptSource)
	assert.NotEmpty(t, l.Segments)

	_, err = SaveLesson(ctx, store, LessonInput{URL: "not a video"})
	assert.ErrorIs(t, err, engine.ErrInvalidURL)
}

func TestRecordAttempt(t *testing.T) {
	engine.Init(engine.Config{})
	store := testStore(t)
	ctx := context.Background()

	l, err := SaveLesson(ctx, store, LessonInput{
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:    "Lyrics",
		Segments: dialogue.TitleSegments("Never gonna give you up"),
	})
	require.NoError(t, err)
	seg := l.Segments[0]

	res, err := RecordAttempt(ctx, store, AttemptInput{LessonID: l.ID, SegmentID: seg.ID, Said: seg.Text})
	require.NoError(t, err)
	assert.True(t, res.Comparison.IsCorrect)
	assert.Equal(t, seg.Text, res.Attempt.Expected)
	assert.Equal(t, 1.0, res.Attempt.Similarity)

	_, err = RecordAttempt(ctx, store, AttemptInput{LessonID: l.ID, SegmentID: "nope", Said: "x"})
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = RecordAttempt(ctx, store, AttemptInput{LessonID: l.ID, Said: "x"})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	attempts, err := store.ListAttempts(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSubmitWritingWithoutLLM(t *testing.T) {
	engine.Init(engine.Config{})
	store := testStore(t)
	ctx := context.Background()

	l, err := SaveLesson(ctx, store, LessonInput{
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Segments: dialogue.TitleSegments("Never gonna give you up"),
	})
	require.NoError(t, err)

	w, err := SubmitWriting(ctx, store, WritingInput{LessonID: l.ID, Text: "I never give you up", ReferenceAnswer: "Never gonna give you up"})
	require.NoError(t, err)
	assert.Nil(t, w.Feedback, "stored ungraded when the LLM is off")
	assert.Equal(t, "Never gonna give you up", w.Reference)

	_, err = SubmitWriting(ctx, store, WritingInput{LessonID: l.ID, Text: " "})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = SubmitWriting(ctx, store, WritingInput{LessonID: "missing", Text: "hi"})
	assert.ErrorIs(t, err, library.ErrNotFound)
	_, err = SubmitWriting(ctx, nil, WritingInput{LessonID: l.ID, Text: "hi"})
	assert.ErrorIs(t, err, engine.ErrNotConfigured)

	answers, err := ListWriting(ctx, store, l.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, w.ID, answers[0].ID)
}

func TestWritingFeedbackErrors(t *testing.T) {
	engine.Init(engine.Config{})
	ctx := context.Background()

	_, err := WritingFeedback(ctx, engine.WritingFeedbackInput{Text: "I goes home"})
	assert.ErrorIs(t, err, engine.ErrNotConfigured)
	_, err = WritingFeedback(ctx, engine.WritingFeedbackInput{Text: ""})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = WritingFeedback(ctx, engine.WritingFeedbackInput{Text: strings.Repeat("a", library.MaxWritingChars+1)})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestLessonProgress(t *testing.T) {
	engine.Init(engine.Config{})
	store := testStore(t)
	ctx := context.Background()

	l, err := SaveLesson(ctx, store, LessonInput{
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Segments: dialogue.TitleSegments("Never gonna give you up"),
	})
	require.NoError(t, err)

	p, err := LessonProgress(ctx, store, l.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ListenCount)

	_, err = RecordAttempt(ctx, store, AttemptInput{LessonID: l.ID, SegmentID: l.Segments[0].ID, Said: l.Segments[0].Text})
	require.NoError(t, err)

	p, err = LessonProgress(ctx, store, l.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ListenCount)
	assert.Equal(t, 1, p.Attempts)
	assert.InDelta(t, 1.0, p.BestSimilarity, 1e-9)

	_, err = LessonProgress(ctx, nil, l.ID, false)
	assert.ErrorIs(t, err, engine.ErrNotConfigured)
}
