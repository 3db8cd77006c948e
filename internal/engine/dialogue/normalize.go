package dialogue

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// Cadence is the fixed spacing in seconds for segments without real timing.
const Cadence = 5.0

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	// Sentences with their closing punctuation, for plain transcripts.
	sentenceKeepRe = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// SpeakerLabel returns "Speaker A" for even i and "Speaker B" for odd i.
func SpeakerLabel(i int) string {
	if i%2 == 0 {
		return "Speaker A"
	}
	return "Speaker B"
}

// NewSegment builds a segment with a fresh id and an empty vocabulary list.
func NewSegment(speaker, text string, start, end float64) engine.DialogueSegment {
	return engine.DialogueSegment{
		ID:              uuid.NewString(),
		SpeakerName:     speaker,
		Text:            text,
		StartTime:       start,
		EndTime:         max(end, start),
		VocabularyItems: []engine.VocabularyItem{},
	}
}

// FromGroups converts grouped cues into segments.
func FromGroups(groups []Group) []engine.DialogueSegment {
	out := make([]engine.DialogueSegment, 0, len(groups))
	for _, g := range groups {
		out = append(out, NewSegment(g.Speaker, g.Text, g.Start, g.End))
	}
	return out
}

// FromLines lays lines out on the fixed cadence, labelled by speaker(i).
func FromLines(lines []string, speaker func(i int) string) []engine.DialogueSegment {
	out := make([]engine.DialogueSegment, 0, len(lines))
	for _, l := range lines {
		i := len(out)
		out = append(out, NewSegment(speaker(i), l, float64(i)*Cadence, float64(i+1)*Cadence))
	}
	return out
}

// FromTimedCues keeps provider timing as is and alternates speakers per cue.
func FromTimedCues(cues []engine.Cue) []engine.DialogueSegment {
	out := make([]engine.DialogueSegment, 0, len(cues))
	for _, c := range cues {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		out = append(out, NewSegment(SpeakerLabel(len(out)), text, c.Start, c.End()))
	}
	return out
}

// SplitSentences splits text on runs of .!? and keeps trimmed pieces of 5 to 200 chars.
func SplitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		s = strings.Join(strings.Fields(s), " ")
		if n := len([]rune(s)); n >= 5 && n <= 200 {
			out = append(out, s)
		}
	}
	return out
}

// splitKeepPunct splits text into sentences keeping their final punctuation.
// Text without terminal punctuation is one sentence.
func splitKeepPunct(text string) []string {
	var out []string
	matches := sentenceKeepRe.FindAllStringIndex(text, -1)
	last := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			out = append(out, s)
		}
		last = m[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// CapSegments truncates to at most n segments; n <= 0 disables the cap.
func CapSegments(segs []engine.DialogueSegment, n int) []engine.DialogueSegment {
	if n > 0 && len(segs) > n {
		return segs[:n]
	}
	return segs
}
