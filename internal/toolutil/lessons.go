package toolutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/sources"
)

// LessonInput saves a video as a lesson. Without segments the transcript
// chain is run for the URL.
type LessonInput struct {
	URL      string                   `json:"url" jsonschema:"YouTube or TikTok video URL"`
	Title    string                   `json:"title,omitempty" jsonschema:"Lesson title (default: video title)"`
	Level    string                   `json:"level,omitempty" jsonschema:"beginner, intermediate or advanced (default: beginner)"`
	Language string                   `json:"language,omitempty" jsonschema:"Caption language code (default: en)"`
	Segments []engine.DialogueSegment `json:"segments,omitempty" jsonschema:"Pre-built dialogue segments; fetched from the video when omitted"`
}

// AttemptInput grades one spoken attempt at a lesson segment and records it.
// Expected defaults to the text of SegmentID.
type AttemptInput struct {
	LessonID  string `json:"lessonId" jsonschema:"Lesson id from lesson_save or lesson_list"`
	SegmentID string `json:"segmentId,omitempty" jsonschema:"Segment the learner repeated"`
	Said      string `json:"said" jsonschema:"What the learner said"`
	Expected  string `json:"expected,omitempty" jsonschema:"Expected sentence (default: the segment text)"`
	Lenient   bool   `json:"lenient,omitempty" jsonschema:"Grade with the LLM, falling back to word matching"`
}

// AttemptResult is a stored attempt and its grading.
type AttemptResult struct {
	Attempt    library.Attempt     `json:"attempt"`
	Comparison dialogue.Comparison `json:"comparison"`
}

// WritingInput stores a written answer to a lesson, graded when the LLM
// is configured.
type WritingInput struct {
	LessonID        string `json:"lessonId" jsonschema:"Lesson id from lesson_save or lesson_list"`
	Text            string `json:"text" jsonschema:"What the learner wrote"`
	ReferenceAnswer string `json:"referenceAnswer,omitempty" jsonschema:"Model answer to compare against"`
}

func requireStore(store library.Store) error {
	if store == nil {
		return fmt.Errorf("lesson library: %w", engine.ErrNotConfigured)
	}
	return nil
}

// SaveLesson stores a lesson, acquiring its transcript first when needed.
func SaveLesson(ctx context.Context, store library.Store, in LessonInput) (library.Lesson, error) {
	if err := requireStore(store); err != nil {
		return library.Lesson{}, err
	}
	ref, err := sources.ParseVideoURL(in.URL)
	if err != nil {
		return library.Lesson{}, err
	}
	lesson := library.Lesson{
		Platform: ref.Platform,
		VideoID:  ref.ID,
		URL:      ref.URL,
		Title:    strings.TrimSpace(in.Title),
		Level:    library.Level(in.Level),
		Segments: in.Segments,
	}
	if len(lesson.Segments) == 0 {
		tr, err := TranscriptFor(ctx, ref, in.Language, false, false, nil)
		if err != nil {
			return library.Lesson{}, err
		}
		lesson.Segments = tr.Segments
		lesson.TranscriptSource = tr.TranscriptSource
		if lesson.Title == "" {
			lesson.Title = tr.Title
		}
	}
	return store.SaveLesson(ctx, lesson)
}

// RecordAttempt grades said against the expected sentence and stores the result.
func RecordAttempt(ctx context.Context, store library.Store, in AttemptInput) (AttemptResult, error) {
	if err := requireStore(store); err != nil {
		return AttemptResult{}, err
	}
	lesson, err := store.GetLesson(ctx, in.LessonID)
	if err != nil {
		return AttemptResult{}, err
	}
	expected := strings.TrimSpace(in.Expected)
	if expected == "" && in.SegmentID != "" {
		for _, s := range lesson.Segments {
			if s.ID == in.SegmentID {
				expected = s.Text
				break
			}
		}
		if expected == "" {
			return AttemptResult{}, fmt.Errorf("segment %s: %w", in.SegmentID, library.ErrNotFound)
		}
	}

	res, err := CompareSpeech(ctx, engine.CompareInput{Said: in.Said, Expected: expected, Lenient: in.Lenient})
	if err != nil {
		return AttemptResult{}, err
	}
	a, err := store.AddAttempt(ctx, library.Attempt{
		LessonID:   lesson.ID,
		SegmentID:  in.SegmentID,
		Said:       in.Said,
		Expected:   expected,
		Similarity: res.Similarity,
	})
	if err != nil {
		return AttemptResult{}, err
	}
	return AttemptResult{Attempt: a, Comparison: res}, nil
}

// SubmitWriting grades a written answer and stores it. Without an LLM the
// answer is stored ungraded; other grading failures are returned.
func SubmitWriting(ctx context.Context, store library.Store, in WritingInput) (library.WritingAnswer, error) {
	if err := requireStore(store); err != nil {
		return library.WritingAnswer{}, err
	}
	if _, err := store.GetLesson(ctx, in.LessonID); err != nil {
		return library.WritingAnswer{}, err
	}
	answer := library.WritingAnswer{LessonID: in.LessonID, Text: in.Text, Reference: in.ReferenceAnswer}
	fb, err := WritingFeedback(ctx, engine.WritingFeedbackInput{Text: in.Text, ReferenceAnswer: in.ReferenceAnswer})
	switch {
	case err == nil:
		answer.Feedback = &fb
	case errors.Is(err, engine.ErrNotConfigured):
		slog.Debug("writing answer stored ungraded", slog.String("lesson", in.LessonID))
	default:
		return library.WritingAnswer{}, err
	}
	return store.AddWritingAnswer(ctx, answer)
}

// ListWriting returns the stored writing answers of a lesson.
func ListWriting(ctx context.Context, store library.Store, lessonID string) ([]library.WritingAnswer, error) {
	if err := requireStore(store); err != nil {
		return nil, err
	}
	return store.ListWritingAnswers(ctx, lessonID)
}

// LessonProgress returns the progress of a lesson, counting a listen first
// when listened is set.
func LessonProgress(ctx context.Context, store library.Store, lessonID string, listened bool) (library.Progress, error) {
	if err := requireStore(store); err != nil {
		return library.Progress{}, err
	}
	if listened {
		return store.MarkListened(ctx, lessonID)
	}
	return store.GetProgress(ctx, lessonID)
}
