package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ipsentry/internal/config"

	"go.uber.org/zap"
)

// WebhookChannel posts the event as JSON to a generic endpoint
type WebhookChannel struct {
	config *config.WebhookConfig
	logger *zap.Logger
	client *http.Client
}

// WebhookPayload represents the standard webhook payload structure
type WebhookPayload struct {
	EventType string         `json:"event_type"`
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Hostname  string         `json:"hostname,omitempty"`
	Data      map[string]any `json:"data"`
}

// NewWebhookChannel creates new webhook channel
func NewWebhookChannel(cfg *config.WebhookConfig, logger *zap.Logger) (*WebhookChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	return &WebhookChannel{
		config: cfg,
		logger: logger,
		client: newHTTPClient(),
	}, nil
}

// Type returns the channel type
func (c *WebhookChannel) Type() ChannelType {
	return ChannelWebhook
}

// Send delivers the message once
func (c *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	data := map[string]any{
		"address":         msg.Address.String(),
		"previous":        msg.Previous.String(),
		"ip_version":      msg.IPVersion,
		"elapsed_seconds": msg.ElapsedSeconds,
		"step":            msg.Step,
		"text":            msg.Text,
	}
	// Add common data from config
	for k, v := range c.config.CommonData {
		if _, exists := data[k]; !exists {
			data[k] = v
		}
	}

	payload := WebhookPayload{
		EventType: "ip." + string(msg.Kind),
		EventID:   msg.ID,
		Timestamp: msg.At,
		Hostname:  msg.Label,
		Data:      data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	headers := map[string]string{
		"X-Ipsentry-Event":    payload.EventType,
		"X-Ipsentry-Delivery": payload.EventID,
	}
	if c.config.Secret != "" {
		headers["X-Ipsentry-Signature"] = "sha256=" + calculateSignature(body, []byte(c.config.Secret))
	}
	// Add custom headers from config
	for k, v := range c.config.Headers {
		headers[k] = v
	}

	if _, err := doRequest(ctx, c.client, c.config.Method, c.config.URL, body, headers, c.logger); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// calculateSignature calculates the signature
func calculateSignature(payload []byte, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Close releases idle connections
func (c *WebhookChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
