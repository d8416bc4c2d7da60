package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/types"

	"go.uber.org/zap"
)

// DiscordChannel posts to a Discord webhook
type DiscordChannel struct {
	config *config.DiscordConfig
	logger *zap.Logger
	client *http.Client
}

// DiscordMessage represents Discord message
type DiscordMessage struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents Discord embed
type DiscordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []DiscordField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

// DiscordField represents Discord field
type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NewDiscordChannel creates new Discord channel
func NewDiscordChannel(cfg *config.DiscordConfig, logger *zap.Logger) (*DiscordChannel, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("discord webhook URL is required")
	}

	return &DiscordChannel{
		config: cfg,
		logger: logger,
		client: newHTTPClient(),
	}, nil
}

// Type returns the channel type
func (c *DiscordChannel) Type() ChannelType {
	return ChannelDiscord
}

// Send posts the message
func (c *DiscordChannel) Send(ctx context.Context, msg *Message) error {
	color := 0x2ECC71
	if msg.Kind == types.EventStagnant {
		color = 0xF1C40F
	}

	payload := DiscordMessage{
		Username:  c.config.Username,
		AvatarURL: c.config.AvatarURL,
		Content:   msg.Text,
		Embeds: []DiscordEmbed{{
			Title: msg.Subject,
			Color: color,
			Fields: []DiscordField{
				{Name: "Address", Value: msg.Address.String(), Inline: true},
				{Name: "Host", Value: msg.Label, Inline: true},
			},
			Timestamp: msg.At.UTC().Format(time.RFC3339),
		}},
	}

	if _, err := postJSON(ctx, c.client, http.MethodPost, c.config.WebhookURL, payload, nil, c.logger); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}

// Close releases idle connections
func (c *DiscordChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
