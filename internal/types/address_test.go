package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		version string
		wantErr bool
	}{
		{name: "ipv4", input: "1.2.3.4", want: "1.2.3.4", version: "ipv4"},
		{name: "trailing newline", input: "1.2.3.4\n", want: "1.2.3.4", version: "ipv4"},
		{name: "ipv6", input: "2001:db8::1", want: "2001:db8::1", version: "ipv6"},
		{name: "ipv6 expanded", input: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001:db8::1", version: "ipv6"},
		{name: "mapped ipv4", input: "::ffff:1.2.3.4", want: "1.2.3.4", version: "ipv4"},
		{name: "html body", input: "<html>error</html>", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.version, got.Version())
		})
	}
}

func TestAddressEqualIgnoresFormatting(t *testing.T) {
	a := MustParseAddress("2001:db8::1")
	b := MustParseAddress(" 2001:0DB8:0:0:0:0:0:1 ")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(MustParseAddress("2001:db8::2")))
	assert.True(t, Address{}.Equal(Address{}))
}

func TestAddressJSON(t *testing.T) {
	type wrapper struct {
		Addr Address `json:"addr"`
	}

	data, err := json.Marshal(wrapper{Addr: MustParseAddress("5.6.7.8")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"addr":"5.6.7.8"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"addr":""}`), &w))
	assert.True(t, w.Addr.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"addr":"not-an-ip"}`), &w))
}

func TestMonitoringStateNormalize(t *testing.T) {
	s := MonitoringState{StagnationBudget: -time.Second, LastChangeAt: time.Now()}.Normalize()
	assert.Equal(t, 1, s.EscalationStep)
	assert.Equal(t, time.Duration(0), s.StagnationBudget)
	assert.True(t, s.LastChangeAt.IsZero(), "change time without an address is dropped")
}

func TestMonitoringStateSinceChange(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), NewMonitoringState().SinceChange(now))

	s := MonitoringState{LastAddress: MustParseAddress("1.2.3.4"), LastChangeAt: now.Add(-90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, s.SinceChange(now))

	s.LastChangeAt = now.Add(time.Hour)
	assert.Equal(t, time.Duration(0), s.SinceChange(now), "clock skew never yields negative durations")
}
