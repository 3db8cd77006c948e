// Package speech wraps the hosted text-to-speech and speech-to-text providers.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

const maxErrorBody = 512

// post sends payload to url, retrying transient statuses. Each attempt
// reads the payload from the start.
func post(ctx context.Context, provider, url, contentType string, headers map[string]string, payload []byte, limit int64) ([]byte, string, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", engine.UserAgentBot)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return engine.Cfg.HTTPClient.Do(req)
	})
	engine.IncrFetch(err != nil)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, "", &engine.UpstreamError{Provider: provider, Status: resp.StatusCode, Body: engine.CleanHTML(string(body))}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("%s: read: %w", provider, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
