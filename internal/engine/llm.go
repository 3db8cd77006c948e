package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// LLMTurn is one speaker turn proposed by the refine prompt.
type LLMTurn struct {
	SpeakerName string `json:"speakerName"`
	Text        string `json:"text"`
}

// LLMSentence is one sentence proposed by the split prompt.
type LLMSentence struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// LLMGrade is the lenient grading verdict.
type LLMGrade struct {
	IsMatch      bool     `json:"isMatch"`
	Accuracy     float64  `json:"accuracy"`
	MissingWords []string `json:"missingWords"`
	Feedback     string   `json:"feedback"`

	PronunciationScore float64 `json:"pronunciationScore"`
	FluencyScore       float64 `json:"fluencyScore"`
	IntonationScore    float64 `json:"intonationScore"`
	OverallScore       float64 `json:"overallScore"`
}

// Scores returns the 1-10 ratings, or nil when the model gave none.
// Out-of-range values are clamped.
func (g LLMGrade) Scores() *PronunciationScores {
	if g.PronunciationScore == 0 && g.FluencyScore == 0 && g.IntonationScore == 0 && g.OverallScore == 0 {
		return nil
	}
	score := func(v float64) int { return int(min(max(math.Round(v), 1), 10)) }
	return &PronunciationScores{
		Pronunciation: score(g.PronunciationScore),
		Fluency:       score(g.FluencyScore),
		Intonation:    score(g.IntonationScore),
		Overall:       score(g.OverallScore),
	}
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSON returns the first balanced JSON object or array in b, or nil.
// Models sometimes wrap the payload in prose.
func ExtractJSON(b []byte) []byte {
	start := -1
	for i, c := range b {
		if c == '{' || c == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	b = b[start:]
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// CallLLM sends a prompt with per-call temperature and max_tokens.
func CallLLM(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error) {
	if !LLMEnabled() {
		return "", fmt.Errorf("llm: %w", ErrNotConfigured)
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, system, prompt,
		llm.WithChatTemperature(temperature),
		llm.WithChatMaxTokens(maxTokens),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// callLLMJSON calls the LLM and decodes the JSON payload of the reply into T.
func callLLMJSON[T any](ctx context.Context, system, prompt string, temperature float64, maxTokens int) (T, error) {
	var out T
	raw, err := CallLLM(ctx, system, prompt, temperature, maxTokens)
	if err != nil {
		return out, err
	}
	payload := []byte(raw)
	if err := json.Unmarshal(payload, &out); err != nil {
		block := ExtractJSON(payload)
		if block == nil {
			metrics.LLMErrors.Add(1)
			return out, fmt.Errorf("llm: no JSON in reply %q: %w", TruncateRunes(raw, 120, "..."), err)
		}
		if err := json.Unmarshal(block, &out); err != nil {
			metrics.LLMErrors.Add(1)
			return out, fmt.Errorf("llm: parse reply: %w", err)
		}
	}
	return out, nil
}

// LLMRefineTurns asks the LLM to re-split caption lines into speaker turns.
func LLMRefineTurns(ctx context.Context, title string, lines []string) ([]LLMTurn, error) {
	var sb strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, l)
	}
	prompt := fmt.Sprintf(refineDialoguePrompt, title, sb.String())
	out, err := callLLMJSON[struct {
		Segments []LLMTurn `json:"segments"`
	}](ctx, refineDialogueSystem, prompt, 0.2, 4096)
	if err != nil {
		return nil, err
	}
	if len(out.Segments) == 0 {
		return nil, fmt.Errorf("llm refine: %w", ErrNoTranscript)
	}
	return out.Segments, nil
}

// LLMSplitSegment asks the LLM to break one segment into timed sentences.
func LLMSplitSegment(ctx context.Context, seg DialogueSegment) ([]LLMSentence, error) {
	prompt := fmt.Sprintf(splitSegmentPrompt, seg.SpeakerName, seg.Text,
		seg.StartTime, seg.EndTime, seg.EndTime-seg.StartTime)
	out, err := callLLMJSON[[]LLMSentence](ctx, "", prompt, 0.2, 1000)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("llm split: empty result")
	}
	return out, nil
}

// LLMTranslate translates a word (seen in sentence) or a whole sentence into target.
// Input with a space is treated as a sentence.
func LLMTranslate(ctx context.Context, text, sentence, target string) (TranslateOutput, error) {
	var prompt string
	if strings.Contains(strings.TrimSpace(text), " ") {
		prompt = fmt.Sprintf(translateSentencePrompt, target, text, sentence, target, target)
	} else {
		prompt = fmt.Sprintf(translateWordPrompt, target, text, sentence, target, target)
	}
	out, err := callLLMJSON[TranslateOutput](ctx, translateSystem, prompt, 0.3, 1500)
	if err != nil {
		return TranslateOutput{}, err
	}
	if out.Translation == "" {
		return TranslateOutput{}, fmt.Errorf("llm translate: empty translation")
	}
	out.Text = text
	out.TargetLanguage = target
	return out, nil
}

// LLMGradeSpeech grades a spoken attempt leniently.
func LLMGradeSpeech(ctx context.Context, said, expected string) (LLMGrade, error) {
	prompt := fmt.Sprintf(gradeLenientPrompt, expected, said)
	out, err := callLLMJSON[LLMGrade](ctx, gradeLenientSystem, prompt, 0.3, 400)
	if err != nil {
		return LLMGrade{}, err
	}
	out.Accuracy = min(max(out.Accuracy, 0), 1)
	return out, nil
}

// LLMWritingFeedback reviews a writing answer, optionally against a reference.
func LLMWritingFeedback(ctx context.Context, text, reference string) (WritingFeedback, error) {
	prompt := fmt.Sprintf(writingFeedbackPrompt, text, reference)
	out, err := callLLMJSON[WritingFeedback](ctx, writingFeedbackSystem, prompt, 0.3, 2000)
	if err != nil {
		return WritingFeedback{}, err
	}
	if out.OverallFeedback == "" && len(out.Corrections) == 0 && len(out.Suggestions) == 0 {
		return WritingFeedback{}, fmt.Errorf("llm writing: empty feedback")
	}
	return out.Normalized(), nil
}

// Normalized drops blank entries and replaces nil lists with empty ones.
func (f WritingFeedback) Normalized() WritingFeedback {
	corrections := make([]WritingCorrection, 0, len(f.Corrections))
	for _, c := range f.Corrections {
		if strings.TrimSpace(c.Original) != "" || strings.TrimSpace(c.Corrected) != "" {
			corrections = append(corrections, c)
		}
	}
	suggestions := make([]WritingSuggestion, 0, len(f.Suggestions))
	for _, sg := range f.Suggestions {
		if strings.TrimSpace(sg.Suggestion) != "" {
			suggestions = append(suggestions, sg)
		}
	}
	f.Corrections = corrections
	f.Suggestions = suggestions
	f.OverallFeedback = strings.TrimSpace(f.OverallFeedback)
	f.ComparisonWithReference = strings.TrimSpace(f.ComparisonWithReference)
	return f
}
