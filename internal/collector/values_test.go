package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	require.NotNil(t, parseFloat("42.5"))
	assert.Equal(t, 42.5, *parseFloat("42.5"))
	assert.Nil(t, parseFloat(""))
	assert.Nil(t, parseFloat("n/a"))
}

func TestParseInt(t *testing.T) {
	require.NotNil(t, parseInt("9000"))
	assert.Equal(t, 9000, *parseInt(" 9000 "))
	assert.Nil(t, parseInt(""))
	assert.Nil(t, parseInt("9000.5"))
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2026-05-01T10:30:00.123+02:00")
	require.NotNil(t, ts)
	assert.Equal(t, 10, ts.Hour())

	ts = parseTimestamp("2026-05-01T08:30:00Z")
	require.NotNil(t, ts)
	assert.Equal(t, time.UTC, ts.Location())

	assert.Nil(t, parseTimestamp(""))
	assert.Nil(t, parseTimestamp("never"))
	assert.Nil(t, parseTimestamp("unspecified"))
	assert.Nil(t, parseTimestamp("not-a-time"))
}

func TestUsageFromIdle(t *testing.T) {
	idle := 37.5
	got := usageFromIdle(&idle)
	require.NotNil(t, got)
	assert.Equal(t, 62.5, *got)

	// out-of-range idle values clamp instead of going negative
	idle = 130
	assert.Equal(t, 0.0, *usageFromIdle(&idle))
	idle = -20
	assert.Equal(t, 100.0, *usageFromIdle(&idle))

	assert.Nil(t, usageFromIdle(nil))
}

func TestUsageFromUsedTotal(t *testing.T) {
	used, total := 4096.0, 16384.0
	got := usageFromUsedTotal(&used, &total)
	require.NotNil(t, got)
	assert.Equal(t, 25.0, *got)

	zero := 0.0
	assert.Nil(t, usageFromUsedTotal(&used, &zero))
	assert.Nil(t, usageFromUsedTotal(nil, &total))
	assert.Nil(t, usageFromUsedTotal(&used, nil))
}
