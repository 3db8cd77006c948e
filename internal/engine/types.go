package engine

// --- Core dialogue types ---

// TranscriptSource tags where a transcript came from. Informational only.
type TranscriptSource string

const (
	SourceYouTubeTranscript TranscriptSource = "youtube-transcript-api"
	SourceRapidAPI          TranscriptSource = "rapidapi-transcript"
	SourceYtDlp             TranscriptSource = "yt-dlp"
	SourceDescription       TranscriptSource = "description"
	SourceTitle             TranscriptSource = "title"
	SourceDefault           TranscriptSource = "default"
	SourceTikTokRapidAPI    TranscriptSource = "tiktok-rapidapi"
)

// Platform identifies the video host.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTikTok  Platform = "tiktok"
)

// VocabularyItem is reserved for per-segment vocabulary; always empty today.
type VocabularyItem struct {
	Word        string `json:"word"`
	Translation string `json:"translation,omitempty"`
}

// DialogueSegment is a timed chunk of spoken text attributed to a pseudo-speaker.
type DialogueSegment struct {
	ID              string           `json:"id"`
	SpeakerName     string           `json:"speakerName"`
	Text            string           `json:"text"`
	StartTime       float64          `json:"startTime"` // seconds
	EndTime         float64          `json:"endTime"`   // seconds, >= StartTime
	VocabularyItems []VocabularyItem `json:"vocabularyItems"`
}

// NormalizeSegments returns a copy of segs with every nil vocabulary list
// replaced by an empty one, so segments always encode "vocabularyItems": [].
func NormalizeSegments(segs []DialogueSegment) []DialogueSegment {
	if segs == nil {
		return nil
	}
	out := make([]DialogueSegment, len(segs))
	for i, s := range segs {
		if s.VocabularyItems == nil {
			s.VocabularyItems = []VocabularyItem{}
		}
		out[i] = s
	}
	return out
}

// Cue is a raw timed caption line as delivered by a provider.
type Cue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds
	Duration float64 `json:"duration"` // seconds
}

// End returns the cue end time.
func (c Cue) End() float64 { return c.Start + c.Duration }

// VideoRef is a parsed video URL.
type VideoRef struct {
	Platform Platform `json:"platform"`
	ID       string   `json:"id,omitempty"` // empty for TikTok
	URL      string   `json:"url"`
}

// VideoMetadata describes a video independent of its transcript.
type VideoMetadata struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl"`
	EmbedURL     string `json:"embedUrl"`
	Duration     int    `json:"duration"` // seconds, 0 = unknown
	IsTooLong    bool   `json:"isTooLong,omitempty"`
}

// StageAttempt records one fallback stage outcome.
type StageAttempt struct {
	Stage string `json:"stage"`
	Error string `json:"error,omitempty"`
}

// TranscriptResult is the normalized output of a fallback chain run.
type TranscriptResult struct {
	VideoID          string            `json:"videoId,omitempty"`
	Platform         Platform          `json:"platform"`
	Title            string            `json:"title,omitempty"`
	EmbedURL         string            `json:"embedUrl,omitempty"`
	Segments         []DialogueSegment `json:"segments"`
	TranscriptSource TranscriptSource  `json:"transcriptSource"`
	Refined          bool              `json:"refined,omitempty"`
	Attempts         []StageAttempt    `json:"attempts,omitempty"`
}

// --- Tool input types ---

type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube or TikTok video URL"`
	Language string `json:"language,omitempty" jsonschema:"Caption language code (default: en)"`
	Refine   bool   `json:"refine,omitempty" jsonschema:"Use the LLM to re-split speaker turns"`
	NoCache  bool   `json:"no_cache,omitempty" jsonschema:"Bypass the transcript cache"`
}

type MetadataInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

type CompareInput struct {
	Said     string `json:"said" jsonschema:"What the learner said (speech recognition output)"`
	Expected string `json:"expected" jsonschema:"The sentence the learner was asked to say"`
	Lenient  bool   `json:"lenient,omitempty" jsonschema:"Grade with the LLM, falling back to word matching"`
}

type SplitSegmentsInput struct {
	Segments []DialogueSegment `json:"segments" jsonschema:"Dialogue segments to split into sentences"`
}

type SplitSegmentsOutput struct {
	Segments []DialogueSegment `json:"segments"`
}

type TranslateInput struct {
	Text           string `json:"text" jsonschema:"Word or sentence to translate"`
	Context        string `json:"context,omitempty" jsonschema:"Sentence the word appears in"`
	TargetLanguage string `json:"targetLanguage,omitempty" jsonschema:"Target language (default: Arabic)"`
}

// TranslationElement explains one phrase of a sentence translation.
type TranslationElement struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Explanation string `json:"explanation,omitempty"`
}

type TranslateOutput struct {
	Text                  string               `json:"text"`
	TargetLanguage        string               `json:"targetLanguage"`
	Translation           string               `json:"translation"`
	ContextualTranslation string               `json:"contextual_translation,omitempty"`
	MeaningComparison     string               `json:"meaning_comparison,omitempty"`
	Elements              []TranslationElement `json:"elements,omitempty"`
	Fallback              bool                 `json:"fallback,omitempty"`
}

type WritingFeedbackInput struct {
	Text            string `json:"text" jsonschema:"What the learner wrote"`
	ReferenceAnswer string `json:"referenceAnswer,omitempty" jsonschema:"Model answer to compare against"`
}

// WritingCorrection is one grammar fix in a piece of learner writing.
type WritingCorrection struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	Explanation string `json:"explanation,omitempty"`
}

// WritingSuggestion is a vocabulary or structure improvement.
type WritingSuggestion struct {
	Type       string `json:"type"` // vocabulary or structure
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason,omitempty"`
}

// WritingFeedback is a tutor review of a writing answer.
type WritingFeedback struct {
	Corrections             []WritingCorrection `json:"corrections"`
	Suggestions             []WritingSuggestion `json:"suggestions"`
	OverallFeedback         string              `json:"overallFeedback"`
	ComparisonWithReference string              `json:"comparisonWithReference,omitempty"`
}

// PronunciationScores rate a spoken attempt from 1 to 10.
type PronunciationScores struct {
	Pronunciation int `json:"pronunciation"`
	Fluency       int `json:"fluency"`
	Intonation    int `json:"intonation"`
	Overall       int `json:"overall"`
}
