package engine

import (
	"context"
	"time"

	"github.com/chatwarden/warden/keyword"
	"github.com/chatwarden/warden/platform"
	"github.com/chatwarden/warden/policy"
)

// Reports whether moderation should skip this actor/channel entirely.
// Admins, whitelisted channels, exempt roles, and trusted actors all pass.
func (eng *Engine) isExempt(ctx context.Context, actor *platform.Actor, channelID string, cfg *policy.Config, now time.Time) bool {
	if actor.Admin {
		return true
	}
	if containsString(cfg.Exemptions.Channels, channelID) {
		return true
	}
	if hasAnyRole(actor, cfg.Exemptions.Roles) {
		return true
	}
	return eng.isTrusted(ctx, actor, cfg, now)
}

// Conjunction of the configured trust criteria, except that a trusted role
// passes on its own. An unknown account age and store errors fail closed; an
// unknown join time only skips the join-age check, since gateways routinely
// omit it for long-standing members.
func (eng *Engine) isTrusted(ctx context.Context, actor *platform.Actor, cfg *policy.Config, now time.Time) bool {
	if hasAnyRole(actor, cfg.Trust.TrustedRoleNames) {
		return true
	}

	age, ok := actor.AccountAge(now)
	if !ok || age < time.Duration(cfg.Trust.AccountAgeDays)*24*time.Hour {
		return false
	}
	if joinAge, ok := actor.JoinAge(now); ok && joinAge < time.Duration(cfg.Trust.JoinAgeHours)*time.Hour {
		return false
	}

	count, err := eng.Warnings.Count(ctx, actor.ID, now.Add(-cfg.WarningRetention()))
	if err != nil {
		eng.Logger.Warn("warning count lookup failed, treating actor as untrusted", "actor", actor.ID, "err", err)
		return false
	}
	return count <= cfg.Trust.MaxWarnings
}

// Role names compare case-insensitively and ignore punctuation, so a policy
// listing "Trusted Member" matches a platform role named "trusted-member".
func hasAnyRole(actor *platform.Actor, names []string) bool {
	if len(names) == 0 || len(actor.Roles) == 0 {
		return false
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[keyword.Slugify(n)] = true
	}
	for _, r := range actor.Roles {
		if want[keyword.Slugify(r)] {
			return true
		}
	}
	return false
}
