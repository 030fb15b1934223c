package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chatwarden/warden/platform"
	"github.com/chatwarden/warden/policy"
)

const publicNoticeTTL = 30 * time.Second

// Carries out an enforcement decision against the platform. Each step is
// independently best-effort: a failed delete still times out, a failed DM
// falls back to a public notice, and permission errors end the single action,
// not the event. No engine locks are held while platform calls run.
func (eng *Engine) execute(ctx context.Context, logger *slog.Logger, d Decision, msg *platform.Message, warningCount int, score int, tags []string, cfg *policy.Config) {
	if cfg.Actions.DeleteMessage {
		err := eng.Platform.DeleteMessage(ctx, msg.ChannelID, msg.ID)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			logger.Error("failed to delete message", "err", err)
		}
	}

	reason := summarizeTags(tags)
	switch d.Action {
	case policy.ActionWarn:
		eng.sendWarningNotice(ctx, logger, msg, reason, cfg)
	case policy.ActionTimeout:
		eng.timeoutActor(ctx, logger, msg.Actor.ID, cfg.TimeoutDuration("medium"), reason)
		eng.sendWarningNotice(ctx, logger, msg, reason, cfg)
	case policy.ActionTimeoutOrKick:
		if warningCount >= cfg.Actions.KickAfterWarnings {
			if err := eng.Platform.Kick(ctx, msg.Actor.ID, reason); err != nil {
				logger.Error("failed to kick actor", "err", err)
			}
		} else {
			eng.timeoutActor(ctx, logger, msg.Actor.ID, cfg.TimeoutDuration("high"), reason)
		}
	case policy.ActionBanAndReport:
		if err := eng.Platform.Ban(ctx, msg.Actor.ID, reason); err != nil {
			logger.Error("failed to ban actor", "err", err)
		}
		if eng.Notifier != nil {
			if err := eng.Notifier.SendActionAlert(ctx, d.Action, msg, tags, score); err != nil {
				logger.Error("failed to send operator alert", "err", err)
			}
		}
	default:
		logger.Warn("unknown enforcement action in policy, skipping", "action", d.Action)
		return
	}

	actionsExecuted.WithLabelValues(d.Action).Inc()
	logger.Info("enforcement action executed",
		"action", d.Action,
		"severity", d.Severity,
		"score", score,
		"tags", tags,
		"warnings", warningCount)
}

func (eng *Engine) timeoutActor(ctx context.Context, logger *slog.Logger, actorID string, d time.Duration, reason string) {
	if err := eng.Platform.Timeout(ctx, actorID, d, reason); err != nil {
		logger.Error("failed to timeout actor", "duration", d, "err", err)
	}
}

// Private notice first; if the actor cannot be reached, a short-lived
// ephemeral post in the channel carries the message instead.
func (eng *Engine) sendWarningNotice(ctx context.Context, logger *slog.Logger, msg *platform.Message, reason string, cfg *policy.Config) {
	text := renderTemplate(cfg.Actions.WarnTemplate, msg, reason)
	err := eng.Platform.SendNotice(ctx, platform.Notice{Target: msg.Actor.ID, Text: text})
	if err == nil {
		return
	}
	logger.Info("private notice undeliverable, falling back to public", "err", err)
	pub := renderTemplate(cfg.Actions.PublicTemplate, msg, reason)
	err = eng.Platform.SendNotice(ctx, platform.Notice{
		Target:      msg.ChannelID,
		Text:        pub,
		Ephemeral:   true,
		DeleteAfter: publicNoticeTTL,
	})
	if err != nil {
		logger.Error("failed to send public warning notice", "err", err)
	}
}

func renderTemplate(tmpl string, msg *platform.Message, reason string) string {
	return strings.NewReplacer(
		"{user}", msg.Actor.Username,
		"{channel}", msg.ChannelID,
		"{reason}", reason,
	).Replace(tmpl)
}
