package layoutml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff after a 429; it doubles per attempt.
// Tests override it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// maxResponseBytes bounds how much of a model response is read.
const maxResponseBytes = 64 << 20

// sendJSON posts body to url and returns the raw response body. 429 responses
// are retried with exponential backoff up to maxRetries times.
func sendJSON(ctx context.Context, client *http.Client, url, reqID string, body any, headers map[string]string, maxRetries int, logger *slog.Logger) ([]byte, int, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
		if err != nil {
			return nil, 0, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", reqID)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		logger.Debug("layoutml.http.request", "req_id", reqID, "url", url, "content_length", len(bs), "attempt", attempt)
		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("layoutml.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return nil, 0, err
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err := resp.Body.Close(); err != nil {
			logger.Warn("layoutml.http.response_body_close_error", "req_id", reqID, "error", err)
		}
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
			logger.Info("layoutml.http.rate_limited", "req_id", reqID, "backoff_ms", backoff.Milliseconds(), "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, resp.StatusCode, ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		logger.Debug("layoutml.http.response",
			"req_id", reqID,
			"status", resp.StatusCode,
			"bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if resp.StatusCode/100 != 2 {
			return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
		}
		return raw, resp.StatusCode, nil
	}
}
