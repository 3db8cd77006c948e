package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	MetadataRequests   atomic.Int64
	CompareRequests    atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	FetchRequests      atomic.Int64
	FetchErrors        atomic.Int64
	TTSRequests        atomic.Int64
	STTRequests        atomic.Int64
	LessonWrites       atomic.Int64
}

// Per-stage outcome counters, keyed by stage name.
var (
	stageHits     sync.Map // string → *atomic.Int64
	stageFailures sync.Map
)

func stageCounter(m *sync.Map, stage string) *atomic.Int64 {
	v, _ := m.LoadOrStore(stage, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// GetMetrics returns a snapshot of all metrics including cache and stage stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	out := map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"metadata_requests":   metrics.MetadataRequests.Load(),
		"compare_requests":    metrics.CompareRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"tts_requests":        metrics.TTSRequests.Load(),
		"stt_requests":        metrics.STTRequests.Load(),
		"lesson_writes":       metrics.LessonWrites.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
	stageHits.Range(func(k, v any) bool {
		out[fmt.Sprintf("stage_%s_hits", k)] = v.(*atomic.Int64).Load()
		return true
	})
	stageFailures.Range(func(k, v any) bool {
		out[fmt.Sprintf("stage_%s_failures", k)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrMetadataRequests()   { metrics.MetadataRequests.Add(1) }
func IncrCompareRequests()    { metrics.CompareRequests.Add(1) }
func IncrTTSRequests()        { metrics.TTSRequests.Add(1) }
func IncrSTTRequests()        { metrics.STTRequests.Add(1) }
func IncrLessonWrites()       { metrics.LessonWrites.Add(1) }

// IncrFetch counts one outbound provider request and whether it failed.
func IncrFetch(failed bool) {
	metrics.FetchRequests.Add(1)
	if failed {
		metrics.FetchErrors.Add(1)
	}
}

// IncrStage records the outcome of one fallback stage.
func IncrStage(stage string, ok bool) {
	if ok {
		stageCounter(&stageHits, stage).Add(1)
		return
	}
	stageCounter(&stageFailures, stage).Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
