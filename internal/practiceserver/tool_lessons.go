package practiceserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

// LessonOutput is a saved lesson as returned to MCP clients.
type LessonOutput struct {
	ID               string                   `json:"id"`
	Platform         engine.Platform          `json:"platform"`
	VideoID          string                   `json:"videoId,omitempty"`
	URL              string                   `json:"url"`
	Title            string                   `json:"title"`
	Level            library.Level            `json:"level"`
	TranscriptSource engine.TranscriptSource  `json:"transcriptSource,omitempty"`
	SegmentCount     int                      `json:"segmentCount"`
	Segments         []engine.DialogueSegment `json:"segments,omitempty"`
	CreatedAt        string                   `json:"createdAt"`
}

func lessonOutput(l library.Lesson, withSegments bool) LessonOutput {
	out := LessonOutput{
		ID:               l.ID,
		Platform:         l.Platform,
		VideoID:          l.VideoID,
		URL:              l.URL,
		Title:            l.Title,
		Level:            l.Level,
		TranscriptSource: l.TranscriptSource,
		SegmentCount:     len(l.Segments),
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
	}
	if withSegments {
		out.Segments = l.Segments
	}
	return out
}

type LessonListInput struct {
	Platform string `json:"platform,omitempty" jsonschema:"youtube or tiktok"`
	Level    string `json:"level,omitempty" jsonschema:"beginner, intermediate or advanced"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum lessons to return (default 50, max 100)"`
}

type LessonListOutput struct {
	Lessons []LessonOutput `json:"lessons"`
	Total   int            `json:"total"`
}

// AttemptOutput is a recorded attempt with its grading.
type AttemptOutput struct {
	AttemptID  string              `json:"attemptId"`
	LessonID   string              `json:"lessonId"`
	SegmentID  string              `json:"segmentId,omitempty"`
	Comparison dialogue.Comparison `json:"comparison"`
}

func registerLessonSave(server *mcp.Server, store library.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lesson_save",
		Description: "Save a YouTube or TikTok video as a practice lesson. Without segments the transcript is fetched first. Level: beginner (default), intermediate, advanced. Returns the lesson id for lesson_attempt_add.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input toolutil.LessonInput) (*mcp.CallToolResult, LessonOutput, error) {
		if input.URL == "" {
			return nil, LessonOutput{}, errors.New("url is required")
		}
		l, err := toolutil.SaveLesson(ctx, store, input)
		if err != nil {
			return nil, LessonOutput{}, err
		}
		return nil, lessonOutput(l, true), nil
	})
}

func registerLessonList(server *mcp.Server, store library.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lesson_list",
		Description: "List saved practice lessons, newest first. Optionally filter by platform (youtube, tiktok) and level (beginner, intermediate, advanced).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input LessonListInput) (*mcp.CallToolResult, LessonListOutput, error) {
		if store == nil {
			return nil, LessonListOutput{}, engine.ErrNotConfigured
		}
		lessons, err := store.ListLessons(ctx, library.ListFilter{
			Platform: engine.Platform(input.Platform),
			Level:    library.Level(input.Level),
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, LessonListOutput{}, err
		}
		out := LessonListOutput{Lessons: make([]LessonOutput, 0, len(lessons)), Total: len(lessons)}
		for _, l := range lessons {
			out.Lessons = append(out.Lessons, lessonOutput(l, false))
		}
		return nil, out, nil
	})
}

func registerLessonAttemptAdd(server *mcp.Server, store library.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lesson_attempt_add",
		Description: "Grade and record a spoken attempt at a lesson segment. expected defaults to the segment text. Returns the word-level comparison.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input toolutil.AttemptInput) (*mcp.CallToolResult, AttemptOutput, error) {
		if input.LessonID == "" {
			return nil, AttemptOutput{}, errors.New("lessonId is required")
		}
		res, err := toolutil.RecordAttempt(ctx, store, input)
		if err != nil {
			return nil, AttemptOutput{}, err
		}
		return nil, AttemptOutput{
			AttemptID:  res.Attempt.ID,
			LessonID:   res.Attempt.LessonID,
			SegmentID:  res.Attempt.SegmentID,
			Comparison: res.Comparison,
		}, nil
	})
}
