package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ipsentry/internal/types"
	"ipsentry/internal/version"

	"go.uber.org/zap"
)

// defaultMaxBodySize is plenty for a bare address line
const defaultMaxBodySize = 1024

// HTTPProvider asks a plain-text "what is my IP" endpoint
type HTTPProvider struct {
	url         string
	client      *http.Client
	maxBodySize int64
	logger      *zap.Logger
}

// NewHTTPProvider creates a provider for url
func NewHTTPProvider(url string, client *http.Client, maxBodySize int64, logger *zap.Logger) *HTTPProvider {
	if client == nil {
		client = newClient()
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &HTTPProvider{
		url:         url,
		client:      client,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Name returns the provider URL
func (p *HTTPProvider) Name() string {
	return p.url
}

// Resolve queries the provider once
func (p *HTTPProvider) Resolve(ctx context.Context) (types.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Address{}, fmt.Errorf("request failed: %w", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			p.logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Address{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize+1))
	if err != nil {
		return types.Address{}, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > p.maxBodySize {
		return types.Address{}, fmt.Errorf("response exceeds %d bytes", p.maxBodySize)
	}

	addr, err := types.ParseAddress(string(body))
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid address in response: %w", err)
	}

	return addr, nil
}

// newClient builds the shared provider client, timeouts come from the request context
func newClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  true,
			MaxIdleConnsPerHost: 2,
		},
	}
}
