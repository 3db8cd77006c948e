package practiceserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
)

type failTransport struct{}

func (failTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}

func connect(t *testing.T, store library.Store) *mcp.ClientSession {
	t.Helper()
	engine.Init(engine.Config{
		HTTPClient:   &http.Client{Transport: failTransport{}},
		StageTimeout: 2 * time.Second,
	})
	engine.InitCache("", time.Minute, 100, time.Minute)
	t.Cleanup(func() { engine.Init(engine.Config{}) })

	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "go_sayfluent", Version: "test"}, nil)
	RegisterTools(server, store)

	st, ct := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func TestRegisterToolsListsAll(t *testing.T) {
	cs := connect(t, nil)
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, res.Tools, ToolCount)
}

func TestVideoTranscriptTool(t *testing.T) {
	cs := connect(t, nil)

	var tr engine.TranscriptResult
	res := call(t, cs, "video_transcript", map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ"}, &tr)
	require.False(t, res.IsError)
	assert.Equal(t, engine.SourceDefault, tr.TranscriptSource)
	assert.NotEmpty(t, tr.Segments)

	res = call(t, cs, "video_transcript", map[string]any{"url": "https://vimeo.com/1"}, nil)
	assert.True(t, res.IsError)
}

func TestCompareSpeechTool(t *testing.T) {
	cs := connect(t, nil)

	var cmp struct {
		IsCorrect  bool    `json:"isCorrect"`
		Similarity float64 `json:"similarity"`
		Feedback   string  `json:"feedback"`
	}
	res := call(t, cs, "compare_speech", map[string]any{"said": "hello world", "expected": "Hello, world!"}, &cmp)
	require.False(t, res.IsError)
	assert.True(t, cmp.IsCorrect)
	assert.Equal(t, "Perfect match!", cmp.Feedback)

	res = call(t, cs, "compare_speech", map[string]any{"said": "hello", "expected": ""}, nil)
	assert.True(t, res.IsError)
}

func TestLessonToolsWithoutStore(t *testing.T) {
	cs := connect(t, nil)
	res := call(t, cs, "lesson_list", map[string]any{}, nil)
	assert.True(t, res.IsError)
}

func TestLessonTools(t *testing.T) {
	store, err := library.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cs := connect(t, store)

	var saved LessonOutput
	res := call(t, cs, "lesson_save", map[string]any{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "level": "beginner"}, &saved)
	require.False(t, res.IsError)
	require.NotEmpty(t, saved.ID)
	require.NotEmpty(t, saved.Segments)
	assert.Equal(t, len(saved.Segments), saved.SegmentCount)

	var list LessonListOutput
	res = call(t, cs, "lesson_list", map[string]any{"platform": "youtube"}, &list)
	require.False(t, res.IsError)
	require.Equal(t, 1, list.Total)
	assert.Empty(t, list.Lessons[0].Segments)

	seg := saved.Segments[0]
	var attempt AttemptOutput
	res = call(t, cs, "lesson_attempt_add", map[string]any{"lessonId": saved.ID, "segmentId": seg.ID, "said": seg.Text}, &attempt)
	require.False(t, res.IsError)
	assert.NotEmpty(t, attempt.AttemptID)
	assert.True(t, attempt.Comparison.IsCorrect)

	res = call(t, cs, "lesson_attempt_add", map[string]any{"lessonId": "missing", "said": "x", "expected": "y"}, nil)
	assert.True(t, res.IsError)
}

func TestWritingAndProgressTools(t *testing.T) {
	store, err := library.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cs := connect(t, store)

	res := call(t, cs, "writing_feedback", map[string]any{"text": "I goes home"}, nil)
	assert.True(t, res.IsError, "writing feedback needs the LLM")

	var saved LessonOutput
	res = call(t, cs, "lesson_save", map[string]any{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, &saved)
	require.False(t, res.IsError)

	var answer WritingAnswerOutput
	res = call(t, cs, "lesson_writing_submit", map[string]any{"lessonId": saved.ID, "text": "I never give you up"}, &answer)
	require.False(t, res.IsError)
	assert.NotEmpty(t, answer.ID)
	assert.Nil(t, answer.Feedback)

	var p ProgressOutput
	res = call(t, cs, "lesson_progress", map[string]any{"lessonId": saved.ID, "listened": true}, &p)
	require.False(t, res.IsError)
	assert.Equal(t, 1, p.ListenCount)
	assert.Equal(t, 1, p.WritingAnswers)
	assert.NotEmpty(t, p.LastListenedAt)

	res = call(t, cs, "lesson_progress", map[string]any{"lessonId": "missing"}, nil)
	assert.True(t, res.IsError)
}
