package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.160 --> 00:00:02.070 align:start position:0%

we're<00:00:00.480><c> no</c><00:00:00.640><c> strangers</c>

00:00:02.070 --> 00:00:02.080 align:start position:0%
we're no strangers


00:00:02.080 --> 00:00:04.500 align:start position:0%
we're no strangers
to love

01:00:00.000 --> 01:00:01.500
Final line
`

func TestParseVTT(t *testing.T) {
	cues := ParseVTT([]byte(sampleVTT))
	if len(cues) != 3 {
		t.Fatalf("got %d cues: %+v", len(cues), cues)
	}
	if cues[0].Text != "we're no strangers" || cues[0].Start != 0.16 {
		t.Errorf("cue 0 = %+v", cues[0])
	}
	if cues[1].Text != "to love" || cues[1].Start != 2.08 {
		t.Errorf("cue 1 = %+v", cues[1])
	}
	if cues[2].Start != 3600 || cues[2].Duration != 1.5 {
		t.Errorf("cue 2 = %+v", cues[2])
	}
}

func TestParseVTTTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:01:02.500", 62.5, true},
		{"01:02.250", 62.25, true},
		{"00:00:01,000", 1, true},
		{"bad", 0, false},
		{"00:NaN", 0, false},
		{"Inf:00", 0, false},
	}
	for _, tt := range tests {
		got, err := parseVTTTime(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseVTTTime(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFetchYtDlpSubtitlesDisabled(t *testing.T) {
	engine.Init(engine.Config{})
	_, err := FetchYtDlpSubtitles(context.Background(), "dQw4w9WgXcQ", "en")
	if !errors.Is(err, engine.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
