package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ipsentry/internal/version"

	"go.uber.org/zap"
)

// newHTTPClient builds a channel client. Deadlines come from the request context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  true,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// postJSON sends payload and returns the response body of a 2xx reply
func postJSON(ctx context.Context, client *http.Client, method, url string, payload any, headers map[string]string, logger *zap.Logger) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return doRequest(ctx, client, method, url, data, headers, logger)
}

func doRequest(ctx context.Context, client *http.Client, method, url string, data []byte, headers map[string]string, logger *zap.Logger) ([]byte, error) {
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &statusError{code: resp.StatusCode, body: string(body)}
	}

	return body, nil
}

// statusError is a non-2xx reply
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("request failed with status %d", e.code)
	}
	if len(e.body) > 200 {
		return fmt.Sprintf("request failed with status %d: %s...", e.code, e.body[:200])
	}
	return fmt.Sprintf("request failed with status %d: %s", e.code, e.body)
}
