package dialogue

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// DefaultTargetLanguage is used by Translate when no target is given.
const DefaultTargetLanguage = "Arabic"

// Segments shorter than any of these are never split.
const (
	minSplitChars    = 20
	minSplitWords    = 5
	minSplitDuration = 2.0
)

// RefineDialogue asks the LLM to re-cut caption segments into speaker turns
// and lays the turns back onto the original timeline, each turn getting a
// share of [first start, last end] proportional to its text length.
func RefineDialogue(ctx context.Context, title string, segs []engine.DialogueSegment) ([]engine.DialogueSegment, error) {
	if len(segs) == 0 {
		return segs, nil
	}
	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = s.Text
	}
	turns, err := engine.LLMRefineTurns(ctx, title, lines)
	if err != nil {
		return nil, err
	}

	var texts, speakers []string
	for _, t := range turns {
		if text := strings.TrimSpace(t.Text); text != "" {
			texts = append(texts, text)
			speakers = append(speakers, t.SpeakerName)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("refine: %w", engine.ErrNoTranscript)
	}

	start, end := segs[0].StartTime, segs[len(segs)-1].EndTime
	spans := proportionalSpans(texts, start, end)
	out := make([]engine.DialogueSegment, len(texts))
	for i, text := range texts {
		speaker := cmp.Or(strings.TrimSpace(speakers[i]), SpeakerLabel(i))
		out[i] = NewSegment(speaker, text, spans[i][0], spans[i][1])
	}
	return out, nil
}

// proportionalSpans divides [start, end] across texts by rune count.
func proportionalSpans(texts []string, start, end float64) [][2]float64 {
	total := 0
	for _, t := range texts {
		total += len([]rune(t))
	}
	total = max(total, 1)
	span := max(end-start, 0)

	out := make([][2]float64, len(texts))
	at := start
	for i, t := range texts {
		next := at + span*float64(len([]rune(t)))/float64(total)
		if i == len(texts)-1 {
			next = max(end, at)
		}
		out[i] = [2]float64{at, next}
		at = next
	}
	return out
}

func splittable(s engine.DialogueSegment) bool {
	return len([]rune(s.Text)) >= minSplitChars &&
		len(strings.Fields(s.Text)) >= minSplitWords &&
		s.EndTime-s.StartTime >= minSplitDuration
}

// SplitSegments breaks long segments into one segment per sentence. The LLM
// proposes the split when configured; otherwise, or when it fails, sentences
// are cut on punctuation and timed proportionally. Speakers are preserved.
func SplitSegments(ctx context.Context, segs []engine.DialogueSegment) []engine.DialogueSegment {
	out := make([]engine.DialogueSegment, 0, len(segs))
	for _, s := range segs {
		if !splittable(s) {
			out = append(out, engine.NormalizeSegments([]engine.DialogueSegment{s})...)
			continue
		}
		if engine.LLMEnabled() {
			parts, err := splitWithLLM(ctx, s)
			if err == nil {
				out = append(out, parts...)
				continue
			}
			slog.Warn("split: llm failed, using punctuation", slog.String("segment", s.ID), slog.Any("err", err))
		}
		out = append(out, splitLocal(s)...)
	}
	return out
}

func splitWithLLM(ctx context.Context, s engine.DialogueSegment) ([]engine.DialogueSegment, error) {
	sentences, err := engine.LLMSplitSegment(ctx, s)
	if err != nil {
		return nil, err
	}
	out := make([]engine.DialogueSegment, 0, len(sentences))
	for _, st := range sentences {
		text := strings.TrimSpace(st.Text)
		if text == "" {
			continue
		}
		// Clamp model timing to the parent segment.
		start := min(max(st.StartTime, s.StartTime), s.EndTime)
		end := min(max(st.EndTime, start), s.EndTime)
		out = append(out, NewSegment(s.SpeakerName, text, start, end))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("split: no sentences")
	}
	return out, nil
}

func splitLocal(s engine.DialogueSegment) []engine.DialogueSegment {
	sentences := splitKeepPunct(s.Text)
	if len(sentences) < 2 {
		return engine.NormalizeSegments([]engine.DialogueSegment{s})
	}
	spans := proportionalSpans(sentences, s.StartTime, s.EndTime)
	out := make([]engine.DialogueSegment, len(sentences))
	for i, text := range sentences {
		out[i] = NewSegment(s.SpeakerName, text, spans[i][0], spans[i][1])
	}
	return out
}

// Translate translates a word in the context of its sentence, or a whole
// sentence, into target. On LLM failure it returns a fallback message with
// Fallback set; the error is only logged.
func Translate(ctx context.Context, text, sentence, target string) engine.TranslateOutput {
	target = cmp.Or(strings.TrimSpace(target), DefaultTargetLanguage)
	out, err := engine.LLMTranslate(ctx, text, sentence, target)
	if err == nil {
		return out
	}
	slog.Warn("translate: llm failed", slog.String("target", target), slog.Any("err", err))
	return engine.TranslateOutput{
		Text:           text,
		TargetLanguage: target,
		Translation:    fmt.Sprintf("Translation to %s is unavailable right now. Please try again later.", target),
		Fallback:       true,
	}
}

// GradeWriting reviews a writing answer with the LLM. Unlike Translate there is
// no canned fallback: without the LLM the error wraps engine.ErrNotConfigured.
func GradeWriting(ctx context.Context, text, reference string) (engine.WritingFeedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return engine.WritingFeedback{}, fmt.Errorf("%w: text is required", engine.ErrInvalidInput)
	}
	fb, err := engine.LLMWritingFeedback(ctx, text, strings.TrimSpace(reference))
	if err != nil {
		return engine.WritingFeedback{}, fmt.Errorf("writing feedback: %w", err)
	}
	return fb, nil
}
