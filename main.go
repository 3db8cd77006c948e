// go_sayfluent: language practice from real videos.
//
// Turns YouTube and TikTok videos into timed practice dialogue through a
// fallback chain of transcript sources, grades spoken attempts, and keeps a
// lesson library. Serves a JSON HTTP API and the same operations as MCP tools.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_sayfluent/internal/api"
	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/practiceserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("err", err))
	}
	mcpPort := env.Str("MCP_PORT", "8892")
	apiPort := env.Str("API_PORT", "8080")

	initEngine()

	store, err := library.Open(context.Background(), engine.Cfg.DatabaseURL, engine.Cfg.LibraryPath)
	if err != nil {
		slog.Warn("lesson library unavailable", slog.Any("err", err))
	} else {
		defer store.Close()
	}

	apiServer := &http.Server{
		Addr:              ":" + apiPort,
		Handler:           api.NewRouter(store, version),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      180 * time.Second,
	}
	go func() {
		slog.Info("api listening", slog.String("port", apiPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", slog.Any("err", err))
		}
	}()

	slog.Info("starting go_sayfluent", slog.String("port", mcpPort), slog.String("version", version))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_sayfluent",
		Version: version,
	}, nil)

	practiceserver.RegisterTools(server, store)
	slog.Info("tools registered", slog.Int("count", practiceserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_sayfluent",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("err", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Warn("api shutdown", slog.Any("err", err))
	}
}

func initEngine() {
	c := engine.Config{
		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		RapidAPIKey:           env.Str("RAPIDAPI_KEY", ""),
		RapidAPIYouTubeHost:   env.Str("RAPIDAPI_YOUTUBE_HOST", ""),
		RapidAPITikTokHost:    env.Str("RAPIDAPI_TIKTOK_HOST", ""),
		YtDlpPath:             env.Str("YTDLP_PATH", ""),
		TranscriptLangs:       env.List("TRANSCRIPT_LANGS", "en,en-US,en-GB"),
		LLMAPIKey:             env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:    env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:            env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:              env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:        env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:          env.Int("LLM_MAX_TOKENS", 8192),
		ElevenLabsAPIKey:      env.Str("ELEVENLABS_API_KEY", ""),
		OpenAIAPIKey:          env.Str("OPENAI_API_KEY", ""),
		OpenAIAPIBase:         env.Str("OPENAI_API_BASE", ""),
		StageTimeout:          env.Duration("STAGE_TIMEOUT", 15*time.Second),
		MaxSegments:           env.Int("MAX_SEGMENTS", 100),
		MaxVideoSeconds:       env.Int("MAX_VIDEO_SECONDS", 120),
		CacheMaxEntries:       env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:  env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		DatabaseURL:           env.Str("DATABASE_URL", ""),
		LibraryPath:           env.Str("LIBRARY_PATH", ""),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("err", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("err", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
		slog.Info("llm assist enabled", slog.String("model", c.LLMModel))
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}
