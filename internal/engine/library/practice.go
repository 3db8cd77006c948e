package library

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// MaxWritingChars caps a writing answer.
const MaxWritingChars = 10000

// WritingAnswer is a learner's written response to a lesson, with the
// feedback it received when the LLM was available.
type WritingAnswer struct {
	ID        string                  `json:"id"`
	LessonID  string                  `json:"lessonId"`
	Text      string                  `json:"text"`
	Reference string                  `json:"referenceAnswer,omitempty"`
	Feedback  *engine.WritingFeedback `json:"feedback,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Progress summarises the practice done on one lesson.
type Progress struct {
	LessonID          string    `json:"lessonId"`
	ListenCount       int       `json:"listenCount"`
	LastListenedAt    time.Time `json:"lastListenedAt,omitzero"`
	Attempts          int       `json:"attempts"`
	AverageSimilarity float64   `json:"averageSimilarity"`
	BestSimilarity    float64   `json:"bestSimilarity"`
	WritingAnswers    int       `json:"writingAnswers"`
}

func prepareWriting(w WritingAnswer) (WritingAnswer, error) {
	w.Text = strings.TrimSpace(w.Text)
	w.Reference = strings.TrimSpace(w.Reference)
	if w.LessonID == "" {
		return w, fmt.Errorf("%w: lessonId is required", ErrInvalidInput)
	}
	if w.Text == "" {
		return w, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if n := len([]rune(w.Text)); n > MaxWritingChars {
		return w, fmt.Errorf("%w: text has %d characters (max %d)", ErrInvalidInput, n, MaxWritingChars)
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func decodeFeedback(raw []byte) (*engine.WritingFeedback, error) {
	var fb engine.WritingFeedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return nil, err
	}
	fb = fb.Normalized()
	return &fb, nil
}
