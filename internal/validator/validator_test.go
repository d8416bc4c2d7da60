package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	ChatIDs  []string `mapstructure:"chat_ids" validate:"dive,chatid"`
	Endpoint string   `mapstructure:"endpoint" validate:"omitempty,notify_url"`
	Language string   `mapstructure:"language" validate:"oneof=en es"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{
			name:  "valid",
			input: sample{ChatIDs: []string{"123456", "-1001234", "@ops_alerts"}, Endpoint: "https://hooks.example.com/x", Language: "en"},
		},
		{
			name:  "empty endpoint allowed",
			input: sample{Language: "es"},
		},
		{
			name:    "bad chat id",
			input:   sample{ChatIDs: []string{"abc"}, Language: "en"},
			wantErr: "must be a numeric chat id or @channel",
		},
		{
			name:    "non http endpoint",
			input:   sample{Endpoint: "ftp://example.com/", Language: "en"},
			wantErr: "endpoint must be an absolute http(s) URL",
		},
		{
			name:    "unknown language",
			input:   sample{Language: "fr"},
			wantErr: "language must be one of [en es]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("https://api.ipify.org", "notify_url"))
	assert.Error(t, v.Var("api.ipify.org", "notify_url"))
}
