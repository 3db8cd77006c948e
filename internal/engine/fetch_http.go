package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxPageBytes caps HTML pages; YouTube watch pages run 1-3 MB.
const maxPageBytes = 6 * 1024 * 1024

// FetchPage performs an HTTP GET for an HTML page with exponential backoff.
// Retries retryable statuses only; transport errors and other non-200 statuses are permanent.
func FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := fetchWithRetry(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readResponseBody(resp)
}

func fetchWithRetry(ctx context.Context, fetchURL string) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip")

		resp, err := cfg.HTTPClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(20*time.Second))
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxPageBytes))
}
