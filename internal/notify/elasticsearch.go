package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ipsentry/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// ElasticsearchChannel indexes every message as a document named by its ID
type ElasticsearchChannel struct {
	config *config.ElasticsearchConfig
	logger *zap.Logger
	client *elasticsearch.Client
}

// NewElasticsearchChannel creates new Elasticsearch channel
func NewElasticsearchChannel(cfg *config.ElasticsearchConfig, logger *zap.Logger) (*ElasticsearchChannel, error) {
	if len(cfg.Addresses) == 0 || cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch addresses and index are required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation error: %w", err)
	}

	return &ElasticsearchChannel{
		config: cfg,
		logger: logger,
		client: es,
	}, nil
}

// Type returns the channel type
func (c *ElasticsearchChannel) Type() ChannelType {
	return ChannelElasticsearch
}

// Send indexes the message
func (c *ElasticsearchChannel) Send(ctx context.Context, msg *Message) error {
	var b strings.Builder
	if err := json.NewEncoder(&b).Encode(msg); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: msg.ID,
		Body:       strings.NewReader(b.String()),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("elasticsearch indexing error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(res.Body)

	if res.IsError() {
		var respBody map[string]any
		if err := json.NewDecoder(res.Body).Decode(&respBody); err != nil {
			return fmt.Errorf("elasticsearch indexing error: %s", res.Status())
		}
		return fmt.Errorf("elasticsearch indexing error: %s: %v", res.Status(), respBody["error"])
	}

	return nil
}

// Close is a no-op, the transport has no persistent state to release
func (c *ElasticsearchChannel) Close() error {
	return nil
}
