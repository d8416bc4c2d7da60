package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ipsentry/internal/config"
	ntpl "ipsentry/internal/notify/template"
	"ipsentry/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChannelType represents the type of channel
type ChannelType string

const (
	ChannelTelegram      ChannelType = "telegram"
	ChannelSlack         ChannelType = "slack"
	ChannelDiscord       ChannelType = "discord"
	ChannelWebhook       ChannelType = "webhook"
	ChannelEmail         ChannelType = "email"
	ChannelKafka         ChannelType = "kafka"
	ChannelAMQP          ChannelType = "amqp"
	ChannelElasticsearch ChannelType = "elasticsearch"
)

// Channel delivers a rendered message to one destination.
// Send makes exactly one attempt.
type Channel interface {
	Type() ChannelType
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// Message is one rendered notification
type Message struct {
	ID             string          `json:"id"`
	Kind           types.EventKind `json:"kind"`
	Label          string          `json:"label"`
	Address        types.Address   `json:"address"`
	Previous       types.Address   `json:"previous"`
	IPVersion      string          `json:"ip_version"`
	Elapsed        time.Duration   `json:"-"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
	Step           int             `json:"step"`
	At             time.Time       `json:"at"`
	Subject        string          `json:"subject"`
	Text           string          `json:"text"`
}

// Manager fans a monitor event out to every enabled channel
type Manager struct {
	config    *config.NotifyConfig
	label     string
	language  ntpl.Language
	logger    *zap.Logger
	tplLoader *ntpl.Loader
	channels  []Channel
	mu        sync.RWMutex
}

// NewManager creates the manager and every enabled channel
func NewManager(cfg *config.NotifyConfig, label string, logger *zap.Logger) (*Manager, error) {
	m, err := newManager(cfg, label, logger)
	if err != nil {
		return nil, err
	}

	type factory struct {
		enabled bool
		create  func() (Channel, error)
	}

	for _, f := range []factory{
		{cfg.Telegram.Enabled, func() (Channel, error) { return NewTelegramChannel(&cfg.Telegram, logger) }},
		{cfg.Slack.Enabled, func() (Channel, error) { return NewSlackChannel(&cfg.Slack, logger) }},
		{cfg.Discord.Enabled, func() (Channel, error) { return NewDiscordChannel(&cfg.Discord, logger) }},
		{cfg.Webhook.Enabled, func() (Channel, error) { return NewWebhookChannel(&cfg.Webhook, logger) }},
		{cfg.Email.Enabled, func() (Channel, error) { return NewEmailChannel(&cfg.Email, logger) }},
		{cfg.Kafka.Enabled, func() (Channel, error) { return NewKafkaChannel(&cfg.Kafka, logger) }},
		{cfg.AMQP.Enabled, func() (Channel, error) { return NewAMQPChannel(&cfg.AMQP, logger) }},
		{cfg.Elasticsearch.Enabled, func() (Channel, error) { return NewElasticsearchChannel(&cfg.Elasticsearch, logger) }},
	} {
		if !f.enabled {
			continue
		}
		ch, err := f.create()
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("%w: %w", types.ErrStartupConfig, err)
		}
		m.AddChannel(ch)
	}

	if len(m.channels) == 0 {
		return nil, fmt.Errorf("%w: no notification channel enabled", types.ErrStartupConfig)
	}

	return m, nil
}

// newManager creates a manager without channels
func newManager(cfg *config.NotifyConfig, label string, logger *zap.Logger) (*Manager, error) {
	tplLoader, err := ntpl.NewLoader(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize template loader: %w", err)
	}

	for name, content := range cfg.Templates {
		if err := tplLoader.SetCustomTemplate(ntpl.Name(name), content); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrStartupConfig, err)
		}
	}

	lang := ntpl.Language(cfg.Language)
	if lang == "" {
		lang = ntpl.English
	}

	return &Manager{
		config:    cfg,
		label:     label,
		language:  lang,
		logger:    logger,
		tplLoader: tplLoader,
	}, nil
}

// AddChannel registers an extra channel
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
	m.logger.Info("Notification channel enabled", zap.String("type", string(ch.Type())))
}

// Channels returns the enabled channel types
func (m *Manager) Channels() []ChannelType {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ChannelType, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch.Type())
	}
	return out
}

// Render builds the message for an event
func (m *Manager) Render(evt *types.Event) (*Message, error) {
	name := ntpl.Changed
	if evt.Kind == types.EventStagnant {
		name = ntpl.Stagnant
	}

	data := &ntpl.Data{
		Kind:     string(evt.Kind),
		Label:    m.label,
		Address:  evt.Address.String(),
		Previous: evt.Previous.String(),
		Version:  evt.Address.Version(),
		Elapsed:  evt.Elapsed,
		Step:     evt.Step,
		At:       evt.At,
	}

	text, err := m.tplLoader.Render(m.language, name, data)
	if err != nil {
		return nil, err
	}
	subject, err := m.tplLoader.Render(m.language, ntpl.Subject, data)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:             uuid.New().String(),
		Kind:           evt.Kind,
		Label:          m.label,
		Address:        evt.Address,
		Previous:       evt.Previous,
		IPVersion:      evt.Address.Version(),
		Elapsed:        evt.Elapsed,
		ElapsedSeconds: int64(evt.Elapsed / time.Second),
		Step:           evt.Step,
		At:             evt.At,
		Subject:        subject,
		Text:           text,
	}, nil
}

// Notify renders evt and sends it to every channel concurrently, waiting
// for all of them. Every failure is joined into one ErrDelivery error.
func (m *Manager) Notify(ctx context.Context, evt *types.Event) error {
	msg, err := m.Render(evt)
	if err != nil {
		return fmt.Errorf("%w: failed to render message: %w", types.ErrDelivery, err)
	}

	m.mu.RLock()
	channels := append([]Channel(nil), m.channels...)
	m.mu.RUnlock()

	errs := make([]error, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, msg); err != nil {
				errs[i] = fmt.Errorf("%s: %w", ch.Type(), err)
				m.logger.Warn("Failed to send notification",
					zap.String("type", string(ch.Type())),
					zap.String("message_id", msg.ID),
					zap.Error(err))
				return
			}
			m.logger.Debug("Notification sent",
				zap.String("type", string(ch.Type())),
				zap.String("message_id", msg.ID))
		}(i, ch)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", types.ErrDelivery, err)
	}
	return nil
}

// Close releases every channel
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, ch := range m.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Type(), err))
		}
	}
	m.channels = nil
	return errors.Join(errs...)
}
