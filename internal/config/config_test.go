package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ipsentry/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipsentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
monitor:
  label: home office
  interval: 30s
  base_threshold: 2h
store:
  driver: sqlite
  dsn: file:state.db
notify:
  language: es
  telegram:
    enabled: true
    bot_token: "123:abc"
    chat_ids: ["-100123", "@ops_alerts"]
  webhook:
    enabled: true
    url: https://hooks.example.com/ip
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "home office", cfg.Monitor.Label)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Monitor.BaseThreshold)
	assert.Equal(t, 15*time.Second, cfg.Monitor.ResolveTimeout)
	assert.Equal(t, 15*time.Second, cfg.Monitor.NotifyTimeout)
	assert.Equal(t, DefaultProviders, cfg.Resolver.Providers)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Store.ConnectRetry.Enabled)
	assert.Equal(t, 8, cfg.Store.ConnectRetry.MaxAttempts())
	assert.Equal(t, "es", cfg.Notify.Language)
	assert.Equal(t, []string{"-100123", "@ops_alerts"}, cfg.Notify.Telegram.ChatIDs)
	assert.Equal(t, "POST", cfg.Notify.Webhook.Method)
	assert.ElementsMatch(t, []string{"telegram", "webhook"}, cfg.Notify.EnabledChannels())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigLegacyEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "42:token")
	t.Setenv("CHAT_ID", "987654321")
	t.Setenv("LOCATION", "madrid")

	cfg, err := LoadConfig(writeConfig(t, "monitor:\n  interval: 60s\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "42:token", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, []string{"987654321"}, cfg.Notify.Telegram.ChatIDs)
	assert.Equal(t, "madrid", cfg.Monitor.Label)
}

func TestLoadConfigPrefixedEnv(t *testing.T) {
	t.Setenv("IPSENTRY_MONITOR_INTERVAL", "2m")
	t.Setenv("IPSENTRY_NOTIFY_SLACK_ENABLED", "true")
	t.Setenv("IPSENTRY_NOTIFY_SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")

	cfg, err := LoadConfig(writeConfig(t, "store:\n  driver: file\n"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval)
	assert.True(t, cfg.Notify.Slack.Enabled)
	assert.False(t, cfg.Notify.Telegram.Enabled)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "no channel",
			body:    "monitor:\n  interval: 60s\n",
			wantErr: "at least one notification channel must be enabled",
		},
		{
			name: "telegram without chat",
			body: `
notify:
  telegram:
    enabled: true
    bot_token: "1:x"
`,
			wantErr: "at least one chat ID is required",
		},
		{
			name: "unknown driver",
			body: `
store:
  driver: cassandra
notify:
  slack:
    enabled: true
    webhook_url: https://hooks.slack.com/services/x
`,
			wantErr: "store.driver must be one of",
		},
		{
			name: "zero interval",
			body: `
monitor:
  interval: 0s
notify:
  slack:
    enabled: true
    webhook_url: https://hooks.slack.com/services/x
`,
			wantErr: "interval must be positive",
		},
		{
			name: "bad webhook url",
			body: `
notify:
  webhook:
    enabled: true
    url: not-a-url
`,
			wantErr: "notify.webhook.url must be an absolute http(s) URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrStartupConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, types.ErrStartupConfig)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}
