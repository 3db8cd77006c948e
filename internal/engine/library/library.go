// Package library stores practice lessons and graded speaking attempts.
// SQLite is the default backend; Postgres is used when DATABASE_URL is set.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

var (
	// ErrInvalidInput marks a lesson or attempt that fails validation.
	ErrInvalidInput = engine.ErrInvalidInput
	// ErrNotFound marks an unknown lesson id.
	ErrNotFound = errors.New("not found")
)

// Level is the learner level a lesson targets.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// ParseLevel validates a level name; empty means beginner.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelBeginner, nil
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return l, nil
	}
	return "", fmt.Errorf("%w: level %q (valid: beginner, intermediate, advanced)", ErrInvalidInput, s)
}

// Lesson is a saved video transcript ready for practice.
type Lesson struct {
	ID               string                   `json:"id"`
	Platform         engine.Platform          `json:"platform"`
	VideoID          string                   `json:"videoId,omitempty"`
	URL              string                   `json:"url"`
	Title            string                   `json:"title"`
	Level            Level                    `json:"level"`
	Segments         []engine.DialogueSegment `json:"segments"`
	TranscriptSource engine.TranscriptSource  `json:"transcriptSource"`
	CreatedAt        time.Time                `json:"createdAt"`
}

// Attempt is one graded try at saying a lesson segment.
type Attempt struct {
	ID         string    `json:"id"`
	LessonID   string    `json:"lessonId"`
	SegmentID  string    `json:"segmentId,omitempty"`
	Said       string    `json:"said"`
	Expected   string    `json:"expected"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListFilter narrows ListLessons. Zero values match everything.
type ListFilter struct {
	Platform engine.Platform `json:"platform,omitempty"`
	Level    Level           `json:"level,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// Store persists lessons with their attempts, writing answers and progress.
type Store interface {
	SaveLesson(ctx context.Context, l Lesson) (Lesson, error)
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, f ListFilter) ([]Lesson, error)
	DeleteLesson(ctx context.Context, id string) error
	AddAttempt(ctx context.Context, a Attempt) (Attempt, error)
	ListAttempts(ctx context.Context, lessonID string) ([]Attempt, error)
	AddWritingAnswer(ctx context.Context, w WritingAnswer) (WritingAnswer, error)
	ListWritingAnswers(ctx context.Context, lessonID string) ([]WritingAnswer, error)
	MarkListened(ctx context.Context, lessonID string) (Progress, error)
	GetProgress(ctx context.Context, lessonID string) (Progress, error)
	Close() error
}

// Open picks the Postgres backend when databaseURL is set, else SQLite at path.
func Open(ctx context.Context, databaseURL, path string) (Store, error) {
	if databaseURL != "" {
		pg, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		return defaultListLimit
	}
	return f.Limit
}

// prepareLesson validates l and fills id, level and timestamp.
func prepareLesson(l Lesson) (Lesson, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.URL = strings.TrimSpace(l.URL)
	if l.URL == "" {
		return l, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if l.Platform != engine.PlatformYouTube && l.Platform != engine.PlatformTikTok {
		return l, fmt.Errorf("%w: platform %q", ErrInvalidInput, l.Platform)
	}
	if len(l.Segments) == 0 {
		return l, fmt.Errorf("%w: lesson has no segments", ErrInvalidInput)
	}
	level, err := ParseLevel(string(l.Level))
	if err != nil {
		return l, err
	}
	l.Level = level
	l.Segments = engine.NormalizeSegments(l.Segments)
	if l.Title == "" {
		l.Title = l.URL
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func prepareAttempt(a Attempt) (Attempt, error) {
	if a.LessonID == "" {
		return a, fmt.Errorf("%w: lessonId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Expected) == "" {
		return a, fmt.Errorf("%w: expected text is required", ErrInvalidInput)
	}
	if a.Similarity < 0 || a.Similarity > 1 {
		return a, fmt.Errorf("%w: similarity %.2f outside 0..1", ErrInvalidInput, a.Similarity)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return nil
}
