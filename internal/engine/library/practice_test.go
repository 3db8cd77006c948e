package library

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func TestSQLiteWritingAnswers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lesson, err := s.SaveLesson(ctx, testLesson(engine.PlatformYouTube, LevelBeginner))
	require.NoError(t, err)

	_, err = s.AddWritingAnswer(ctx, WritingAnswer{LessonID: "missing", Text: "hello"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddWritingAnswer(ctx, WritingAnswer{LessonID: lesson.ID, Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.AddWritingAnswer(ctx, WritingAnswer{LessonID: lesson.ID, Text: strings.Repeat("a", MaxWritingChars+1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	plain, err := s.AddWritingAnswer(ctx, WritingAnswer{LessonID: lesson.ID, Text: " I never give you up "})
	require.NoError(t, err)
	assert.Equal(t, "I never give you up", plain.Text)
	assert.NotEmpty(t, plain.ID)

	_, err = s.AddWritingAnswer(ctx, WritingAnswer{
		LessonID:  lesson.ID,
		Text:      "I will never let you down",
		Reference: "Never gonna let you down",
		Feedback: &engine.WritingFeedback{
			Corrections:     []engine.WritingCorrection{{Original: "will never", Corrected: "am never going to", Explanation: "closer to the song"}},
			OverallFeedback: "Good",
		},
	})
	require.NoError(t, err)

	answers, err := s.ListWritingAnswers(ctx, lesson.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Nil(t, answers[0].Feedback)
	require.NotNil(t, answers[1].Feedback)
	assert.Equal(t, "Never gonna let you down", answers[1].Reference)
	assert.Equal(t, "Good", answers[1].Feedback.OverallFeedback)
	assert.Len(t, answers[1].Feedback.Corrections, 1)
	assert.NotNil(t, answers[1].Feedback.Suggestions, "suggestions decode as an empty list")

	_, err = s.ListWritingAnswers(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lesson, err := s.SaveLesson(ctx, testLesson(engine.PlatformYouTube, LevelBeginner))
	require.NoError(t, err)

	p, err := s.GetProgress(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, Progress{LessonID: lesson.ID}, p)

	_, err = s.MarkListened(ctx, lesson.ID)
	require.NoError(t, err)
	p, err = s.MarkListened(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ListenCount)
	assert.False(t, p.LastListenedAt.IsZero())

	for _, sim := range []float64{0.4, 0.8} {
		_, err := s.AddAttempt(ctx, Attempt{LessonID: lesson.ID, Expected: "x", Similarity: sim})
		require.NoError(t, err)
	}
	_, err = s.AddWritingAnswer(ctx, WritingAnswer{LessonID: lesson.ID, Text: "hello"})
	require.NoError(t, err)

	p, err = s.GetProgress(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Attempts)
	assert.InDelta(t, 0.6, p.AverageSimilarity, 1e-9)
	assert.InDelta(t, 0.8, p.BestSimilarity, 1e-9)
	assert.Equal(t, 1, p.WritingAnswers)
	assert.Equal(t, 2, p.ListenCount)

	_, err = s.MarkListened(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetProgress(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.DeleteLesson(ctx, lesson.ID))
	for _, table := range []string{"writing_answers", "progress"} {
		var left int
		require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE lesson_id = ?`, lesson.ID).Scan(&left))
		assert.Zero(t, left, table)
	}
}
