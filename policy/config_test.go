package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ParseConfig([]byte(`{"version": "3.1"}`))
	require.NoError(t, err)

	assert.Equal("3.1", cfg.Version)
	assert.True(cfg.Enabled)
	assert.Equal(7, cfg.Limits.MaxMessagesPer10s)
	assert.Equal(45, cfg.Limits.DuplicateWindowSec)
	assert.Equal(90, cfg.Retention.WarningDays)
	assert.Equal(ActionBanAndReport, cfg.Escalation.Extreme.Action)
	assert.True(cfg.Escalation.Extreme.Conditions["hate_detected"])
}

func TestParseConfigClamping(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ParseConfig([]byte(`{
		"version": "bad-values",
		"limits": {
			"max_messages_per_10s": -3,
			"capslock_ratio_warn": 4.2
		},
		"anti_raid": {"burst_join_threshold": 0}
	}`))
	require.NoError(t, err)

	assert.Equal(7, cfg.Limits.MaxMessagesPer10s)
	assert.Equal(0.7, cfg.Limits.CapsRatio)
	assert.Equal(8, cfg.AntiRaid.BurstJoinThreshold)
}

func TestParseConfigMalformed(t *testing.T) {
	_, err := ParseConfig([]byte(`{not json`))
	assert.Error(t, err)
}

func TestWeightFallback(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.Equal(7, cfg.Weight("invite_link"))
	assert.Equal(10, cfg.Weight("toxic_detected"))
}
