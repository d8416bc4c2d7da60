package config

import (
	"fmt"
	"time"
)

// NotifyConfig represents notification configuration
type NotifyConfig struct {
	// Language selects the built-in message wording: en, es
	Language string `mapstructure:"language" validate:"oneof=en es"`

	// Templates overrides the built-in text per event kind (changed, stagnant)
	Templates map[string]string `mapstructure:"templates"`

	// Notification channels
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Slack         SlackConfig         `mapstructure:"slack"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Email         EmailConfig         `mapstructure:"email"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	AMQP          AMQPConfig          `mapstructure:"amqp"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// TelegramConfig represents the telegram notification configuration
type TelegramConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BotToken string   `mapstructure:"bot_token"`
	ChatIDs  []string `mapstructure:"chat_ids" validate:"dive,chatid"`
	Format   string   `mapstructure:"format" validate:"omitempty,oneof=text markdown html"`
	APIURL   string   `mapstructure:"api_url" validate:"omitempty,notify_url"`
}

// SlackConfig represents Slack notification configuration
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,notify_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
	IconEmoji  string `mapstructure:"icon_emoji"`
}

// DiscordConfig represents Discord notification configuration
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,notify_url"`
	Username   string `mapstructure:"username"`
	AvatarURL  string `mapstructure:"avatar_url" validate:"omitempty,notify_url"`
}

// WebhookConfig represents the webhook notification configuration
type WebhookConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	URL        string            `mapstructure:"url" validate:"omitempty,notify_url"`
	Secret     string            `mapstructure:"secret"`
	Method     string            `mapstructure:"method" validate:"omitempty,oneof=POST PUT"`
	Headers    map[string]string `mapstructure:"headers"`
	CommonData map[string]any    `mapstructure:"common_data"`
}

// EmailConfig represents the email notification configuration
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port" validate:"omitempty,min=1,max=65535"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from" validate:"omitempty,email"`
	To         []string `mapstructure:"to" validate:"dive,email"`
	UseTLS     bool     `mapstructure:"use_tls"`
}

// KafkaConfig represents the kafka event channel configuration
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AMQPConfig represents the RabbitMQ event channel configuration
type AMQPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

// ElasticsearchConfig represents the elasticsearch event channel configuration
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses" validate:"dive,notify_url"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// EnabledChannels returns the names of the enabled channels
func (cfg *NotifyConfig) EnabledChannels() []string {
	var names []string
	for _, c := range []struct {
		name    string
		enabled bool
	}{
		{"telegram", cfg.Telegram.Enabled},
		{"slack", cfg.Slack.Enabled},
		{"discord", cfg.Discord.Enabled},
		{"webhook", cfg.Webhook.Enabled},
		{"email", cfg.Email.Enabled},
		{"kafka", cfg.Kafka.Enabled},
		{"amqp", cfg.AMQP.Enabled},
		{"elasticsearch", cfg.Elasticsearch.Enabled},
	} {
		if c.enabled {
			names = append(names, c.name)
		}
	}
	return names
}

// Validate notification configuration
func (cfg *NotifyConfig) Validate() error {
	if len(cfg.EnabledChannels()) == 0 {
		return fmt.Errorf("at least one notification channel must be enabled")
	}

	if cfg.Telegram.Enabled {
		if err := cfg.Telegram.Validate(); err != nil {
			return fmt.Errorf("invalid telegram config: %w", err)
		}
	}

	if cfg.Slack.Enabled {
		if err := cfg.Slack.Validate(); err != nil {
			return fmt.Errorf("invalid slack config: %w", err)
		}
	}

	if cfg.Discord.Enabled {
		if err := cfg.Discord.Validate(); err != nil {
			return fmt.Errorf("invalid discord config: %w", err)
		}
	}

	if cfg.Webhook.Enabled {
		if err := cfg.Webhook.Validate(); err != nil {
			return fmt.Errorf("invalid webhook config: %w", err)
		}
	}

	if cfg.Email.Enabled {
		if err := cfg.Email.Validate(); err != nil {
			return fmt.Errorf("invalid email config: %w", err)
		}
	}

	if cfg.Kafka.Enabled {
		if err := cfg.Kafka.Validate(); err != nil {
			return fmt.Errorf("invalid kafka config: %w", err)
		}
	}

	if cfg.AMQP.Enabled {
		if err := cfg.AMQP.Validate(); err != nil {
			return fmt.Errorf("invalid amqp config: %w", err)
		}
	}

	if cfg.Elasticsearch.Enabled {
		if err := cfg.Elasticsearch.Validate(); err != nil {
			return fmt.Errorf("invalid elasticsearch config: %w", err)
		}
	}

	return nil
}

// Validate validates telegram configuration
func (cfg *TelegramConfig) Validate() error {
	if cfg.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if len(cfg.ChatIDs) == 0 {
		return fmt.Errorf("at least one chat ID is required")
	}
	return nil
}

// Validate validates slack configuration
func (cfg *SlackConfig) Validate() error {
	if cfg.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is required")
	}
	return nil
}

// Validate validates discord configuration
func (cfg *DiscordConfig) Validate() error {
	if cfg.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}
	return nil
}

// Validate validates webhook configuration
func (cfg *WebhookConfig) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("url is required")
	}
	if cfg.Method == "" {
		cfg.Method = "POST"
	}
	return nil
}

// Validate validates email configuration
func (cfg *EmailConfig) Validate() error {
	if cfg.SMTPServer == "" {
		return fmt.Errorf("SMTP server is required")
	}
	if cfg.SMTPPort == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if cfg.From == "" {
		return fmt.Errorf("sender email is required")
	}
	if len(cfg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// Validate validates kafka configuration
func (cfg *KafkaConfig) Validate() error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

// Validate validates amqp configuration
func (cfg *AMQPConfig) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("url is required")
	}
	if cfg.Exchange == "" && cfg.RoutingKey == "" {
		return fmt.Errorf("exchange or routing_key is required")
	}
	return nil
}

// Validate validates elasticsearch configuration
func (cfg *ElasticsearchConfig) Validate() error {
	if len(cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}
	if cfg.Index == "" {
		return fmt.Errorf("index is required")
	}
	return nil
}
