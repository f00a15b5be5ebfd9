package threat_test

import (
	"testing"

	"github.com/ledgerkit/gatekeeper/internal/threat"
	"github.com/stretchr/testify/assert"
)

func TestLevelForCount_Thresholds(t *testing.T) {
	tests := []struct {
		count int
		want  threat.Level
	}{
		{0, threat.LevelNone},
		{1, threat.LevelLow},
		{2, threat.LevelMedium},
		{4, threat.LevelMedium},
		{5, threat.LevelHigh},
		{9, threat.LevelHigh},
		{10, threat.LevelCritical},
		{100, threat.LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, threat.LevelForCount(tt.count), "count %d", tt.count)
	}
}

func TestLevelForCount_Monotonic(t *testing.T) {
	// Increasing the count must never decrease the level.
	prev := threat.LevelForCount(0)
	for count := 1; count <= 50; count++ {
		level := threat.LevelForCount(count)
		assert.GreaterOrEqual(t, level, prev, "count %d", count)
		prev = level
	}
}

func TestLevelOrdering(t *testing.T) {
	assert.Less(t, threat.LevelNone, threat.LevelLow)
	assert.Less(t, threat.LevelLow, threat.LevelMedium)
	assert.Less(t, threat.LevelMedium, threat.LevelHigh)
	assert.Less(t, threat.LevelHigh, threat.LevelCritical)
}

func TestMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, threat.LevelNone.Multiplier())
	assert.Equal(t, 1.0, threat.LevelLow.Multiplier())
	assert.Equal(t, 0.7, threat.LevelMedium.Multiplier())
	assert.Equal(t, 0.3, threat.LevelHigh.Multiplier())
	assert.Equal(t, 0.0, threat.LevelCritical.Multiplier())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "none", threat.LevelNone.String())
	assert.Equal(t, "critical", threat.LevelCritical.String())
}
