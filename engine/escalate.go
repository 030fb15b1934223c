package engine

import (
	"github.com/chatwarden/warden/policy"
)

// Outcome of escalation for a single analyzed message. Exactly one of Action
// or Review is set when something should happen; both empty means no-op.
type Decision struct {
	// enforcement action identifier, empty for none
	Action string
	// route to the manual review queue instead of acting
	Review bool
	// resolved severity bucket for the violation
	Severity string
}

// Maps an analysis result plus actor history onto an enforcement decision.
// warningCount is the total including the warning this violation would add,
// so a first offense evaluates with count 1.
//
// Slur-tier conditions override everything, including warning history. Below
// that, a severity-mapped tag or a score at the action threshold triggers the
// ladder; lower scores above the review threshold are queued for humans.
func Decide(score int, tags []string, advisorySeverity string, warningCount int, cfg *policy.Config) Decision {
	severity := severityForTags(tags, cfg)
	if policy.SeverityRank(advisorySeverity) > policy.SeverityRank(severity) {
		severity = advisorySeverity
	}

	for cond, enabled := range cfg.Escalation.Extreme.Conditions {
		if enabled && containsString(tags, cond) {
			action := cfg.Escalation.Extreme.Action
			if action == "" {
				action = policy.ActionBanAndReport
			}
			return Decision{Action: action, Severity: policy.SeverityHigh}
		}
	}

	forced := severity == policy.SeverityHigh || severity == policy.SeverityMedium
	if !forced && score < cfg.Escalation.ActionThreshold {
		if cfg.Review.Enabled && score >= cfg.Review.Threshold {
			return Decision{Review: true, Severity: severity}
		}
		return Decision{Severity: severity}
	}

	var action string
	switch {
	case severity == policy.SeverityHigh || atLeast(warningCount, cfg.Escalation.Severe.MinWarnings):
		action = cfg.Escalation.Severe.Action
	case severity == policy.SeverityMedium || atLeast(warningCount, cfg.Escalation.Medium.MinWarnings):
		action = cfg.Escalation.Medium.Action
	default:
		action = cfg.Escalation.Light.Action
	}
	if action == "" {
		action = policy.ActionWarn
	}
	return Decision{Action: action, Severity: severity}
}

// Highest configured severity bucket any tag falls into; low when none match.
func severityForTags(tags []string, cfg *policy.Config) string {
	for _, t := range tags {
		if containsString(cfg.SeverityMap.High, t) {
			return policy.SeverityHigh
		}
	}
	for _, t := range tags {
		if containsString(cfg.SeverityMap.Medium, t) {
			return policy.SeverityMedium
		}
	}
	return policy.SeverityLow
}

// A zero min_warnings disables the count trigger for a tier rather than
// making it always fire.
func atLeast(count, min int) bool {
	return min > 0 && count >= min
}
