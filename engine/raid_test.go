package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRaidDetectorBurst(t *testing.T) {
	assert := assert.New(t)
	d := NewRaidDetector()
	cfg := TestPolicy().AntiRaid
	now := time.Now()

	for i := 0; i < 7; i++ {
		burst, _ := d.OnJoin("guild-1", now.Add(time.Duration(i)*time.Second), cfg)
		assert.False(burst, "join %d", i)
	}
	burst, count := d.OnJoin("guild-1", now.Add(7*time.Second), cfg)
	assert.True(burst)
	assert.Equal(8, count)
}

func TestRaidDetectorWindowExpires(t *testing.T) {
	assert := assert.New(t)
	d := NewRaidDetector()
	cfg := TestPolicy().AntiRaid
	now := time.Now()

	for i := 0; i < 7; i++ {
		d.OnJoin("guild-1", now, cfg)
	}
	burst, count := d.OnJoin("guild-1", now.Add(31*time.Second), cfg)
	assert.False(burst)
	assert.Equal(1, count)
}

func TestRaidDetectorCommunitiesIndependent(t *testing.T) {
	assert := assert.New(t)
	d := NewRaidDetector()
	cfg := TestPolicy().AntiRaid
	now := time.Now()

	for i := 0; i < 7; i++ {
		d.OnJoin("guild-1", now, cfg)
	}
	burst, _ := d.OnJoin("guild-2", now, cfg)
	assert.False(burst)
}

func TestRaidMitigationOneShot(t *testing.T) {
	assert := assert.New(t)
	d := NewRaidDetector()
	cfg := TestPolicy().AntiRaid
	now := time.Now()

	assert.True(d.TryMitigate("guild-1", now, cfg))
	// sustained burst inside the same window stays mitigated once
	assert.False(d.TryMitigate("guild-1", now.Add(5*time.Second), cfg))
	assert.False(d.TryMitigate("guild-1", now.Add(29*time.Second), cfg))
	// a fresh raid after the window can fire again
	assert.True(d.TryMitigate("guild-1", now.Add(61*time.Second), cfg))
}

func TestRaidDetectorSweep(t *testing.T) {
	assert := assert.New(t)
	d := NewRaidDetector()
	cfg := TestPolicy().AntiRaid
	now := time.Now()

	for i := 0; i < 3; i++ {
		d.OnJoin(fmt.Sprintf("guild-%d", i), now, cfg)
	}
	removed := d.Sweep(now.Add(time.Minute), 30*time.Second)
	assert.Equal(3, removed)
}

func TestNewAccountTier(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(FlagTierHighest, newAccountTier(10*time.Minute))
	assert.Equal(FlagTierHigh, newAccountTier(45*time.Minute))
	assert.Equal(FlagTierMedium, newAccountTier(6*time.Hour))
}
