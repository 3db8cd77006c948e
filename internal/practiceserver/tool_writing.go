package practiceserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

// WritingAnswerOutput is a stored writing answer. Feedback is absent when
// the LLM was unavailable.
type WritingAnswerOutput struct {
	ID        string                  `json:"id"`
	LessonID  string                  `json:"lessonId"`
	Text      string                  `json:"text"`
	Feedback  *engine.WritingFeedback `json:"feedback,omitempty"`
	CreatedAt string                  `json:"createdAt"`
}

type ProgressInput struct {
	LessonID string `json:"lessonId" jsonschema:"Lesson id from lesson_save or lesson_list"`
	Listened bool   `json:"listened,omitempty" jsonschema:"Count one listen of the lesson before reporting"`
}

// ProgressOutput mirrors library.Progress with an RFC 3339 timestamp.
type ProgressOutput struct {
	LessonID          string  `json:"lessonId"`
	ListenCount       int     `json:"listenCount"`
	LastListenedAt    string  `json:"lastListenedAt,omitempty"`
	Attempts          int     `json:"attempts"`
	AverageSimilarity float64 `json:"averageSimilarity"`
	BestSimilarity    float64 `json:"bestSimilarity"`
	WritingAnswers    int     `json:"writingAnswers"`
}

func progressOutput(p library.Progress) ProgressOutput {
	out := ProgressOutput{
		LessonID:          p.LessonID,
		ListenCount:       p.ListenCount,
		Attempts:          p.Attempts,
		AverageSimilarity: p.AverageSimilarity,
		BestSimilarity:    p.BestSimilarity,
		WritingAnswers:    p.WritingAnswers,
	}
	if !p.LastListenedAt.IsZero() {
		out.LastListenedAt = p.LastListenedAt.Format(time.RFC3339)
	}
	return out
}

func registerWritingFeedback(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "writing_feedback",
		Description: "Review a piece of learner writing: grammar corrections with explanations, vocabulary and style suggestions, overall feedback and, when referenceAnswer is given, a comparison with it. Requires the LLM.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.WritingFeedbackInput) (*mcp.CallToolResult, engine.WritingFeedback, error) {
		fb, err := toolutil.WritingFeedback(ctx, input)
		if err != nil {
			return nil, engine.WritingFeedback{}, err
		}
		return nil, fb, nil
	})
}

func registerLessonWritingSubmit(server *mcp.Server, store library.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lesson_writing_submit",
		Description: "Store a written answer for a lesson. The answer is reviewed like writing_feedback when the LLM is configured, and stored ungraded otherwise.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input toolutil.WritingInput) (*mcp.CallToolResult, WritingAnswerOutput, error) {
		if input.LessonID == "" {
			return nil, WritingAnswerOutput{}, errors.New("lessonId is required")
		}
		w, err := toolutil.SubmitWriting(ctx, store, input)
		if err != nil {
			return nil, WritingAnswerOutput{}, err
		}
		return nil, WritingAnswerOutput{
			ID:        w.ID,
			LessonID:  w.LessonID,
			Text:      w.Text,
			Feedback:  w.Feedback,
			CreatedAt: w.CreatedAt.Format(time.RFC3339),
		}, nil
	})
}

func registerLessonProgress(server *mcp.Server, store library.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lesson_progress",
		Description: "Report practice progress on a lesson: listens, speaking attempts with average and best similarity, and writing answers. Set listened=true to count a listen first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ProgressInput) (*mcp.CallToolResult, ProgressOutput, error) {
		if input.LessonID == "" {
			return nil, ProgressOutput{}, errors.New("lessonId is required")
		}
		p, err := toolutil.LessonProgress(ctx, store, input.LessonID, input.Listened)
		if err != nil {
			return nil, ProgressOutput{}, err
		}
		return nil, progressOutput(p), nil
	})
}
