// Package dialogue turns raw transcript material into practice dialogue:
// cue grouping, placeholder generation, the source fallback chain, and
// spoken-attempt grading.
package dialogue

import (
	"slices"
	"strings"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// GroupOptions controls how caption cues merge into dialogue lines.
type GroupOptions struct {
	MaxGap       float64 // seconds between previous cue end and next cue start
	MaxDuration  float64 // cap on group span in seconds; 0 = unconstrained
	SpeakerEvery int     // groups sharing one speaker label before switching (1 or 2)
}

// DefaultGroupOptions merges cues up to 1.5s apart into lines of at most 10s.
var DefaultGroupOptions = GroupOptions{MaxGap: 1.5, MaxDuration: 10, SpeakerEvery: 1}

// Group is a run of merged cues.
type Group struct {
	Text    string
	Start   float64
	End     float64
	Speaker string
}

// GroupCues merges adjacent cues. Input order is not trusted: cues are stably
// sorted by start. End is never before Start.
func GroupCues(cues []engine.Cue, opts GroupOptions) []Group {
	if opts.SpeakerEvery <= 0 {
		opts.SpeakerEvery = 1
	}

	sorted := make([]engine.Cue, 0, len(cues))
	for _, c := range cues {
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" {
			continue
		}
		c.Duration = max(c.Duration, 0)
		sorted = append(sorted, c)
	}
	slices.SortStableFunc(sorted, func(a, b engine.Cue) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	var (
		groups  []Group
		parts   []string
		cur     Group
		prevEnd float64
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		cur.Text = strings.Join(parts, " ")
		cur.Speaker = SpeakerLabel(len(groups) / opts.SpeakerEvery)
		groups = append(groups, cur)
		parts = nil
	}

	for _, c := range sorted {
		if len(parts) > 0 {
			gapOK := c.Start-prevEnd <= opts.MaxGap
			spanOK := opts.MaxDuration <= 0 || c.End()-cur.Start <= opts.MaxDuration
			if !gapOK || !spanOK {
				flush()
			}
		}
		if len(parts) == 0 {
			cur = Group{Start: c.Start, End: c.Start}
		}
		parts = append(parts, c.Text)
		cur.End = max(cur.End, c.End())
		prevEnd = c.End()
	}
	flush()
	return groups
}
