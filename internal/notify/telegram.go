package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ipsentry/internal/config"

	"go.uber.org/zap"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramChannel sends messages through the Bot API
type TelegramChannel struct {
	config *config.TelegramConfig
	apiURL string
	logger *zap.Logger
	client *http.Client
}

// TelegramMessage represents the sendMessage request
type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// NewTelegramChannel creates new Telegram channel
func NewTelegramChannel(cfg *config.TelegramConfig, logger *zap.Logger) (*TelegramChannel, error) {
	if cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return nil, fmt.Errorf("telegram bot token and chat IDs are required")
	}

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultTelegramAPI
	}

	return &TelegramChannel{
		config: cfg,
		apiURL: apiURL,
		logger: logger,
		client: newHTTPClient(),
	}, nil
}

// Type returns the channel type
func (c *TelegramChannel) Type() ChannelType {
	return ChannelTelegram
}

// Send sends the message text to every chat ID
func (c *TelegramChannel) Send(ctx context.Context, msg *Message) error {
	var errs []error
	for _, chatID := range c.config.ChatIDs {
		if err := c.sendMessage(ctx, chatID, msg.Text); err != nil {
			errs = append(errs, fmt.Errorf("chat_id %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// sendMessage sends a message to a specific chat ID
func (c *TelegramChannel) sendMessage(ctx context.Context, chatID, text string) error {
	payload := TelegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode(c.config.Format),
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.config.BotToken)
	body, err := postJSON(ctx, c.client, http.MethodPost, url, payload, nil, c.logger)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			var apiErr struct {
				Description string `json:"description"`
			}
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Description != "" {
				return fmt.Errorf("telegram API error: %s", apiErr.Description)
			}
			return fmt.Errorf("telegram API error: status %d", statusErr.code)
		}
		// the request URL carries the bot token
		return redact(err, c.config.BotToken)
	}

	return nil
}

// parseMode maps the configured format to a Bot API parse_mode
func parseMode(format string) string {
	switch strings.ToLower(format) {
	case "markdown":
		return "Markdown"
	case "html":
		return "HTML"
	default:
		return ""
	}
}

// redact hides secret in err's text
func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, "<redacted>"))
}

// Close releases idle connections
func (c *TelegramChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
