package practiceserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/dialogue"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

// RegisterTools registers the practice tools on the given MCP server:
// video_transcript, video_metadata, compare_speech, split_segments,
// translate_text, writing_feedback, lesson_save, lesson_list,
// lesson_attempt_add, lesson_writing_submit, lesson_progress.
// A nil store leaves the lesson tools registered but failing with
// "provider not configured".
func RegisterTools(server *mcp.Server, store library.Store) {
	registerVideoTranscript(server)
	registerVideoMetadata(server)
	registerCompareSpeech(server)
	registerSplitSegments(server)
	registerTranslateText(server)
	registerWritingFeedback(server)
	registerLessonSave(server, store)
	registerLessonList(server, store)
	registerLessonAttemptAdd(server, store)
	registerLessonWritingSubmit(server, store)
	registerLessonProgress(server, store)
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 11

func registerVideoTranscript(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Fetch a YouTube or TikTok video transcript as practice dialogue. Tries captions, RapidAPI, yt-dlp, then video metadata, and always returns segments (speakerName, text, startTime, endTime). transcriptSource tells which stage produced them; attempts lists the stages that failed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptResult, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, engine.TranscriptResult{}, errors.New("url is required")
		}
		res, err := toolutil.ResolveTranscript(ctx, input)
		if err != nil {
			return nil, engine.TranscriptResult{}, err
		}
		return nil, res, nil
	})
}

func registerVideoMetadata(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_metadata",
		Description: "Look up YouTube video metadata (title, author, thumbnail, embed URL, duration) together with its practice transcript. Videos longer than the configured limit return an error with the duration.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MetadataInput) (*mcp.CallToolResult, toolutil.MetadataResult, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, toolutil.MetadataResult{}, errors.New("url is required")
		}
		out, err := toolutil.ResolveMetadata(ctx, input.URL, "", false)
		if errors.Is(err, toolutil.ErrVideoTooLong) {
			return nil, toolutil.MetadataResult{}, fmt.Errorf("%q is too long to practice: %w", out.Metadata.Title, err)
		}
		if err != nil {
			return nil, toolutil.MetadataResult{}, err
		}
		return nil, out, nil
	})
}

func registerCompareSpeech(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_speech",
		Description: "Grade what a learner said against the expected sentence. Returns matched, incorrect (with similarity), missing and extra words, an overall similarity 0..1, isCorrect (similarity >= 0.7) and feedback. lenient=true grades meaning with the LLM when available.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.CompareInput) (*mcp.CallToolResult, dialogue.Comparison, error) {
		res, err := toolutil.CompareSpeech(ctx, input)
		if err != nil {
			return nil, dialogue.Comparison{}, err
		}
		return nil, res, nil
	})
}

func registerSplitSegments(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "split_segments",
		Description: "Split long dialogue segments into one sentence each, spreading the original timing across the pieces. Short segments are returned unchanged.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SplitSegmentsInput) (*mcp.CallToolResult, engine.SplitSegmentsOutput, error) {
		segs, err := toolutil.SplitSegments(ctx, input.Segments)
		if err != nil {
			return nil, engine.SplitSegmentsOutput{}, err
		}
		return nil, engine.SplitSegmentsOutput{Segments: segs}, nil
	})
}

func registerTranslateText(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "translate_text",
		Description: "Translate a word in the context of its sentence, or a whole sentence with a phrase-by-phrase breakdown, into the target language (default Arabic). When the LLM is unavailable the answer has fallback=true.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranslateInput) (*mcp.CallToolResult, engine.TranslateOutput, error) {
		if strings.TrimSpace(input.Text) == "" {
			return nil, engine.TranslateOutput{}, errors.New("text is required")
		}
		return nil, dialogue.Translate(ctx, input.Text, input.Context, input.TargetLanguage), nil
	})
}
