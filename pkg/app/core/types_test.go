package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, Short, Long.Opposite())
	assert.Equal(t, Long, Short.Opposite())
	assert.Equal(t, SideUnknown, SideUnknown.Opposite())
}

func TestSide_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Side
	}{
		{`"LONG"`, Long},
		{`"SHORT"`, Short},
		{`"long"`, SideUnknown},
		{`"SIDEWAYS"`, SideUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s Side
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s)
		})
	}

	out, err := json.Marshal(Short)
	require.NoError(t, err)
	assert.JSONEq(t, `"SHORT"`, string(out))
}

func TestOrderKind_Parse(t *testing.T) {
	tests := []struct {
		in        string
		want      OrderKind
		trigger   bool
		needLimit bool
	}{
		{"MARKET", Market, false, false},
		{"LIMIT", Limit, false, true},
		{"TRIGGER_MARKET", TriggerMarket, true, false},
		{"TRIGGER_LIMIT", TriggerLimit, true, true},
		{"ORACLE", Oracle, false, false},
		{"STOP", KindUnknown, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k := ParseOrderKind(tt.in)
			assert.Equal(t, tt.want, k)
			assert.Equal(t, tt.trigger, k.IsTrigger())
			assert.Equal(t, tt.needLimit, k.NeedsLimitPrice())
		})
	}
}

func TestTriggerCondition_JSON(t *testing.T) {
	var c TriggerCondition
	require.NoError(t, json.Unmarshal([]byte(`"BELOW"`), &c))
	assert.Equal(t, Below, c)
	assert.Error(t, json.Unmarshal([]byte(`"SIDEWAYS"`), &c))
}

func TestParseMarketKind(t *testing.T) {
	mk, err := ParseMarketKind("spot")
	require.NoError(t, err)
	assert.Equal(t, Spot, mk)

	_, err = ParseMarketKind("future")
	assert.Error(t, err)
}
