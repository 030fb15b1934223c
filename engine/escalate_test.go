package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatwarden/warden/policy"
)

func TestDecideExtremeOverride(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()

	// even a first offense with zero history
	d := Decide(50, []string{TagHate}, "", 1, cfg)
	assert.Equal(policy.ActionBanAndReport, d.Action)
	assert.Equal(policy.SeverityHigh, d.Severity)
	assert.False(d.Review)

	// warning history cannot soften it either way
	d = Decide(50, []string{TagHate}, "", 10, cfg)
	assert.Equal(policy.ActionBanAndReport, d.Action)
}

func TestDecideSeverityForcesAction(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()

	// medium-severity tag acts on first offense despite a low score
	d := Decide(7, []string{TagInviteLink}, "", 1, cfg)
	assert.Equal(policy.ActionTimeout, d.Action)
	assert.Equal(policy.SeverityMedium, d.Severity)

	// high-severity tag goes straight to the severe tier
	d = Decide(10, []string{TagPersonalData}, "", 1, cfg)
	assert.Equal(policy.ActionTimeoutOrKick, d.Action)
	assert.Equal(policy.SeverityHigh, d.Severity)
}

func TestDecideScoreThreshold(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()

	// low severity at the action threshold lands on the light tier
	d := Decide(20, []string{"toxicity_detected", "scams_detected"}, "", 1, cfg)
	assert.Equal(policy.ActionWarn, d.Action)
	assert.Equal(policy.SeverityLow, d.Severity)

	// below the action threshold but at the review threshold
	d = Decide(12, []string{"toxicity_detected", TagExcessiveLines}, "", 1, cfg)
	assert.True(d.Review)
	assert.Empty(d.Action)

	// below both thresholds
	d = Decide(11, []string{"toxicity_detected"}, "", 1, cfg)
	assert.False(d.Review)
	assert.Empty(d.Action)
}

func TestDecideReviewDisabled(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()
	cfg.Review.Enabled = false

	d := Decide(12, []string{"toxicity_detected"}, "", 1, cfg)
	assert.False(d.Review)
	assert.Empty(d.Action)
}

func TestDecideWarningLadderMonotonic(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()

	rank := map[string]int{
		policy.ActionWarn:          1,
		policy.ActionTimeout:       2,
		policy.ActionTimeoutOrKick: 3,
		policy.ActionBanAndReport:  4,
	}

	prev := 0
	for count := 1; count <= 6; count++ {
		d := Decide(25, []string{"toxicity_detected", "scams_detected"}, "", count, cfg)
		assert.NotEmpty(d.Action, "count %d", count)
		assert.GreaterOrEqual(rank[d.Action], prev, "count %d", count)
		prev = rank[d.Action]
	}

	// exact tier boundaries
	assert.Equal(policy.ActionWarn, Decide(25, nil, "", 1, cfg).Action)
	assert.Equal(policy.ActionTimeout, Decide(25, nil, "", 2, cfg).Action)
	assert.Equal(policy.ActionTimeoutOrKick, Decide(25, nil, "", 3, cfg).Action)
}

func TestDecideAdvisoryRaisesSeverity(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()

	// rules alone would queue for review; the advisory opinion forces action
	d := Decide(12, []string{"toxicity_detected", TagExcessiveLines}, policy.SeverityMedium, 1, cfg)
	assert.Equal(policy.ActionTimeout, d.Action)
	assert.Equal(policy.SeverityMedium, d.Severity)

	// an advisory opinion never lowers the tag-derived severity
	d = Decide(10, []string{TagPersonalData}, policy.SeverityLow, 1, cfg)
	assert.Equal(policy.ActionTimeoutOrKick, d.Action)
	assert.Equal(policy.SeverityHigh, d.Severity)
}
