package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

var DefaultRetryConfig = stealth.DefaultRetryConfig

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool  { return stealth.IsRetryableStatus(code) }

func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}

// GetBrowserLike fetches url with Chrome-like headers and returns body and status.
// Uses the TLS-fingerprinting BrowserClient when configured (TikTok rejects plain
// Go clients), otherwise Cfg.HTTPClient through RetryHTTP.
func GetBrowserLike(ctx context.Context, url string, limit int64) ([]byte, int, error) {
	headers := ChromeHeaders()
	if cfg.BrowserClient != nil {
		data, _, status, err := cfg.BrowserClient.Do(http.MethodGet, url, headers, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("browser get: %w", err)
		}
		if int64(len(data)) > limit {
			data = data[:limit]
		}
		return data, status, nil
	}

	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			if strings.EqualFold(k, "accept-encoding") {
				continue // let net/http negotiate gzip transparently
			}
			req.Header.Set(k, v)
		}
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}
