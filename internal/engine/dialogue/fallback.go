package dialogue

import (
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// MinDescriptionSentences is the fewest description sentences worth turning into dialogue.
const MinDescriptionSentences = 4

var defaultLines = []string{
	"Hello, welcome to this video.",
	"Today we're going to discuss an interesting topic.",
	"I hope you find this information useful.",
	"Let me know what you think in the comments.",
	"This is an important point to understand.",
	"Let's break this down step by step.",
	"First, we need to consider the context.",
	"Second, we should analyze the details.",
	"Finally, we can draw some conclusions.",
	"Thank you for watching this video.",
}

// Lines that follow the title when nothing but a title is known.
var followUpLines = []string{
	"Let's talk about what this video covers.",
	"Listen carefully and repeat after me.",
	"Try to match the rhythm of each sentence.",
	"Now say it again a little faster.",
	"Great job, keep practicing every day.",
}

// DefaultSegments returns the fixed placeholder dialogue.
func DefaultSegments() []engine.DialogueSegment {
	return FromLines(defaultLines, SpeakerLabel)
}

// DescriptionSegments turns a video description into dialogue when it yields
// at least MinDescriptionSentences sentences.
func DescriptionSegments(description string) ([]engine.DialogueSegment, bool) {
	sentences := SplitSentences(description)
	if len(sentences) < MinDescriptionSentences {
		return nil, false
	}
	return FromLines(sentences, SpeakerLabel), true
}

// TitleSegments is the title followed by the canned follow-up lines.
func TitleSegments(title string) []engine.DialogueSegment {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	lines := append([]string{title}, followUpLines...)
	return FromLines(lines, SpeakerLabel)
}

// TextSegments splits a plain transcript into single-speaker sentences on the cadence.
func TextSegments(text string) []engine.DialogueSegment {
	return FromLines(splitKeepPunct(text), func(int) string { return "Speaker" })
}
