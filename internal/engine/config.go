package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	RapidAPIKey           string
	RapidAPIYouTubeHost   string
	RapidAPITikTokHost    string
	YtDlpPath             string // empty = yt-dlp stage disabled
	TranscriptLangs       []string

	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int

	ElevenLabsAPIKey string
	OpenAIAPIKey     string
	OpenAIAPIBase    string

	StageTimeout    time.Duration // per fallback stage
	MaxSegments     int           // cap on returned dialogue segments (0 = no cap)
	MaxVideoSeconds int           // metadata: longer videos are rejected

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	DatabaseURL string // Postgres lesson library; empty = SQLite
	LibraryPath string // SQLite file; empty = ~/.go_sayfluent/library.db

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = plain HTTPClient for TikTok pages
	LLMClient     *llm.Client    // nil = LLM assist disabled
}

var cfg = Config{HTTPClient: http.DefaultClient}

// Cfg exposes the engine configuration for sub-packages (sources, dialogue, speech).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	cfg = c
	Cfg = &cfg
}

// LLMEnabled reports whether an LLM client is configured.
func LLMEnabled() bool {
	return cfg.LLMClient != nil && cfg.LLMAPIKey != ""
}
