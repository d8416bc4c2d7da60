package notify

import (
	"context"
	"fmt"
	"net/http"

	"ipsentry/internal/config"
	"ipsentry/internal/types"

	"go.uber.org/zap"
)

// SlackChannel posts to an incoming webhook
type SlackChannel struct {
	config *config.SlackConfig
	logger *zap.Logger
	client *http.Client
}

// SlackMessage represents Slack message
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents Slack attachment
type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

// SlackField represents Slack field
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackChannel creates new Slack channel
func NewSlackChannel(cfg *config.SlackConfig, logger *zap.Logger) (*SlackChannel, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}

	return &SlackChannel{
		config: cfg,
		logger: logger,
		client: newHTTPClient(),
	}, nil
}

// Type returns the channel type
func (c *SlackChannel) Type() ChannelType {
	return ChannelSlack
}

// Send posts the message
func (c *SlackChannel) Send(ctx context.Context, msg *Message) error {
	color := "good"
	if msg.Kind == types.EventStagnant {
		color = "warning"
	}

	fields := []SlackField{
		{Title: "Address", Value: msg.Address.String(), Short: true},
		{Title: "Host", Value: msg.Label, Short: true},
	}
	if !msg.Previous.IsZero() && msg.Kind == types.EventChanged {
		fields = append(fields, SlackField{Title: "Previous", Value: msg.Previous.String(), Short: true})
	}

	payload := SlackMessage{
		Channel:   c.config.Channel,
		Username:  c.config.Username,
		IconEmoji: c.config.IconEmoji,
		Text:      msg.Text,
		Attachments: []SlackAttachment{{
			Color:     color,
			Title:     msg.Subject,
			Fields:    fields,
			Footer:    "ipsentry",
			Timestamp: msg.At.Unix(),
		}},
	}

	if _, err := postJSON(ctx, c.client, http.MethodPost, c.config.WebhookURL, payload, nil, c.logger); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// Close releases idle connections
func (c *SlackChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
