package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSideOppositeAndDir(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.Equal(t, int64(1), Buy.Dir())
	assert.Equal(t, int64(-1), Sell.Dir())
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
}

func TestParseDepthCommand(t *testing.T) {
	cases := []struct {
		code int
		want DepthCommand
		ok   bool
	}{
		{1, CommandInsert, true},
		{2, CommandUpdate, true},
		{3, CommandDelete, true},
		{99, CommandUpdate, false},
	}
	for _, tc := range cases {
		got, ok := ParseDepthCommand(tc.code)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.ok, ok)
	}
}

func TestDefaultSideFromFlags(t *testing.T) {
	assert.Equal(t, Sell, DefaultSideFromFlags(1))
	assert.Equal(t, Sell, DefaultSideFromFlags(3))
	assert.Equal(t, Buy, DefaultSideFromFlags(0))
	assert.Equal(t, Buy, DefaultSideFromFlags(2))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, Filled.Terminal())
	assert.True(t, Rejected.Terminal())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, PendingSubmit.Terminal())
	assert.False(t, Accepted.Terminal())
	assert.False(t, PartiallyFilled.Terminal())
	assert.False(t, Triggered.Terminal())
}

func TestOrderTypeString(t *testing.T) {
	assert.Equal(t, "MARKET", Market.String())
	assert.Equal(t, "LIMIT", Limit.String())
	assert.Equal(t, "STOP_MARKET", StopMarket.String())
}
