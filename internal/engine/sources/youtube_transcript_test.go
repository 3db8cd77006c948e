package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleTimedText = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Never gonna give you up</text>
<text start="2.6" dur="1.9">never gonna let you &amp;#39;down&amp;#39;</text>
<text start="4.5" dur="1">   </text>
<text start="5.0" dur="-1">bad duration</text>
</transcript>`

func TestParseTimedText(t *testing.T) {
	cues, err := parseTimedText([]byte(sampleTimedText))
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) != 3 {
		t.Fatalf("got %d cues, want 3: %+v", len(cues), cues)
	}
	if cues[0].Text != "Never gonna give you up" || cues[0].Start != 0.5 || cues[0].Duration != 2.1 {
		t.Errorf("cue 0 = %+v", cues[0])
	}
	if cues[1].Text != "never gonna let you 'down'" {
		t.Errorf("cue 1 text = %q", cues[1].Text)
	}
	if cues[2].Duration != 0 {
		t.Errorf("negative duration not clamped: %+v", cues[2])
	}

	if _, err := parseTimedText(nil); err == nil {
		t.Error("expected error on empty body")
	}
	if _, err := parseTimedText([]byte("<transcript><text>")); err == nil {
		t.Error("expected error on malformed XML")
	}
	if _, err := parseTimedText([]byte(`<transcript><text start="NaN" dur="1">hi</text></transcript>`)); err == nil {
		t.Error("expected error on NaN start")
	}
	if _, err := parseTimedText([]byte(`<transcript><text start="1" dur="Inf">hi</text></transcript>`)); err == nil {
		t.Error("expected error on infinite duration")
	}
}

func TestPickBestTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "a", LanguageCode: "de"},
		{BaseURL: "b", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "c", LanguageCode: "en"},
		{BaseURL: "d&exp=xpe", LanguageCode: "fr"},
	}
	tests := []struct {
		name  string
		langs []string
		want  string
	}{
		{"manual preferred over asr", []string{"en"}, "c"},
		{"preferred language", []string{"de"}, "a"},
		{"po token skipped, english fallback", []string{"fr"}, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickBestTrack(tracks, tt.langs)
			if !ok || got.BaseURL != tt.want {
				t.Errorf("pickBestTrack() = %q, %v; want %q", got.BaseURL, ok, tt.want)
			}
		})
	}

	if _, ok := pickBestTrack([]captionTrack{{BaseURL: "x&exp=xpe"}}, []string{"en"}); ok {
		t.Error("expected no usable track")
	}
}

func TestExtractTranscriptToken(t *testing.T) {
	data := []byte(`{"x":{"getTranscriptEndpoint":{"params":"Cgt%3D%3D"}}}`)
	got, err := extractTranscriptToken(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Cgt==" {
		t.Errorf("token = %q", got)
	}
	if _, err := extractTranscriptToken([]byte(`{}`)); err == nil {
		t.Error("expected error when token missing")
	}
}

func TestParseTranscriptSegments(t *testing.T) {
	raw := `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
		{"transcriptSegmentRenderer":{"startMs":"1000","endMs":"3500","snippet":{"runs":[{"text":"Hello "},{"text":"there"}]}}},
		{"transcriptSectionHeaderRenderer":{}},
		{"transcriptSegmentRenderer":{"startMs":"4000","endMs":"3000","snippet":{"runs":[{"text":"backwards"}]}}}
	]}}}}}}}}]}`
	var resp ytGetTranscriptResp
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	cues := parseTranscriptSegments(resp)
	if len(cues) != 2 {
		t.Fatalf("got %d cues", len(cues))
	}
	if cues[0].Text != "Hello there" || cues[0].Start != 1 || cues[0].Duration != 2.5 {
		t.Errorf("cue 0 = %+v", cues[0])
	}
	if cues[1].Duration != 0 {
		t.Errorf("end before start should give zero duration, got %+v", cues[1])
	}
}

func TestParseInitialPlayerResponse(t *testing.T) {
	page := `<html><script>var ytInitialPlayerResponse = {"videoDetails":{"title":"T {braces}","author":"A","lengthSeconds":"61"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"u","languageCode":"en"}]}}};var other = {};</script></html>`
	pr, err := parseInitialPlayerResponse([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if pr.VideoDetails == nil || pr.VideoDetails.Title != "T {braces}" || pr.VideoDetails.LengthSeconds != "61" {
		t.Errorf("videoDetails = %+v", pr.VideoDetails)
	}
	if pr.Captions == nil || len(pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) != 1 {
		t.Errorf("captions = %+v", pr.Captions)
	}

	if _, err := parseInitialPlayerResponse([]byte("<html></html>")); err == nil {
		t.Error("expected error without marker")
	}
}

func TestFetchYouTubeCaptionsPageScrape(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/watch"):
			fmt.Fprintf(w, `<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/timedtext","languageCode":"en"}]}}};</script>`, srv.URL)
		case r.URL.Path == "/timedtext":
			fmt.Fprint(w, sampleTimedText)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	prev := ytWatchBase
	ytWatchBase = srv.URL + "/watch?v="
	defer func() { ytWatchBase = prev }()

	cues, err := FetchYouTubeCaptions(context.Background(), "dQw4w9WgXcQ", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) != 3 || cues[0].Start != 0.5 {
		t.Errorf("cues = %+v", cues)
	}
}
