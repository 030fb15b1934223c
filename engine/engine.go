// Package engine implements the moderation pipeline: rate and duplicate
// tracking, content analysis, trust evaluation, escalation, anti-raid
// detection, and action execution, all against an atomically swappable
// policy snapshot.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chatwarden/warden/actorstore"
	"github.com/chatwarden/warden/keyword"
	"github.com/chatwarden/warden/platform"
	"github.com/chatwarden/warden/policy"
	"github.com/chatwarden/warden/reviewstore"
)

const contentHashCacheSize = 2048

// Runs the moderation pipeline over inbound events. Construct with NewEngine,
// then call the Process* methods from however many goroutines the gateway
// uses; all shared state is internally synchronized.
//
// Event processing never returns an error for moderation outcomes. An error
// from Process* means the pipeline itself broke, and event processing is
// blast-contained: a panic in one event is recovered and logged, never
// propagated to the caller.
type Engine struct {
	Logger   *slog.Logger
	Warnings actorstore.WarningStore
	Reviews  reviewstore.ReviewStore
	Platform platform.Client

	// optional operator alerting; nil disables
	Notifier Notifier
	// optional secondary classifier; nil disables
	Advisor Advisor

	Quotas  *Quotas
	Tracker *Tracker
	Raid    *RaidDetector

	snapshot  atomic.Pointer[policy.Snapshot]
	hashCache *expirable.LRU[string, string]
	startedAt time.Time
}

func NewEngine(logger *slog.Logger, cfg *policy.Config, warnings actorstore.WarningStore, reviews reviewstore.ReviewStore, client platform.Client) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	eng := &Engine{
		Logger:    logger,
		Warnings:  warnings,
		Reviews:   reviews,
		Platform:  client,
		Quotas:    &Quotas{},
		Tracker:   NewTracker(),
		Raid:      NewRaidDetector(),
		hashCache: expirable.NewLRU[string, string](contentHashCacheSize, nil, time.Hour),
		startedAt: time.Now(),
	}
	eng.SetPolicy(cfg)
	return eng
}

// Atomically publishes a new policy. In-flight events finish against the
// snapshot they started with.
func (eng *Engine) SetPolicy(cfg *policy.Config) {
	rules := policy.Compile(cfg, eng.Logger)
	eng.snapshot.Store(&policy.Snapshot{Config: cfg, Rules: rules})
	eng.Logger.Info("moderation policy published",
		"version", cfg.Version,
		"enabled", cfg.Enabled,
		"patterns", rules.PatternCount())
}

// Loads, validates, compiles, and publishes a policy document from disk. On
// any failure the previous policy stays active.
func (eng *Engine) LoadPolicyFile(path string) error {
	cfg, err := policy.LoadConfigFile(path)
	if err != nil {
		policyReloads.WithLabelValues("error").Inc()
		return err
	}
	eng.SetPolicy(cfg)
	policyReloads.WithLabelValues("ok").Inc()
	return nil
}

func (eng *Engine) PolicySnapshot() *policy.Snapshot {
	return eng.snapshot.Load()
}

// Runs the full message pipeline: exemptions, rate/duplicate tracking,
// content analysis, escalation, and execution.
func (eng *Engine) ProcessMessage(ctx context.Context, msg platform.Message) (outErr error) {
	eventsProcessed.WithLabelValues("message").Inc()
	start := time.Now()
	defer func() {
		eventDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			eng.Logger.Error("engine panic processing message", "recovered", r, "message", msg.ID, "actor", msg.Actor.ID)
			eventErrors.WithLabelValues("message").Inc()
			outErr = fmt.Errorf("engine panic: %v", r)
		}
	}()

	snap := eng.snapshot.Load()
	if snap == nil || !snap.Config.Enabled {
		return nil
	}
	cfg := snap.Config
	now := time.Now()
	logger := eng.Logger.With("actor", msg.Actor.ID, "channel", msg.ChannelID, "message", msg.ID)

	if eng.isExempt(ctx, &msg.Actor, msg.ChannelID, cfg, now) {
		return nil
	}

	// spam tracking runs before the length gate so short floods still count
	if v := eng.Tracker.RecordMessage(msg.Actor.ID, eng.contentHash(msg.Content), msg.ChannelID, now, cfg.Limits); v != ViolationNone {
		eng.handleSpam(ctx, logger, v, &msg, cfg)
		return nil
	}

	// short messages skip analysis unless a block term hides in them
	if len([]rune(msg.Content)) < cfg.Limits.MinMessageLength && !snap.Rules.MatchesAnyBlockTerm(msg.Content) {
		return nil
	}

	score, tags := Analyze(msg.Content, msg.ChannelID, msg.MentionCount, snap)
	if score == 0 && len(tags) == 0 {
		return nil
	}
	logger.Debug("content analysis flagged message", "score", score, "tags", tags)

	advisory := ""
	if eng.Advisor != nil && !containsString(tags, TagHate) && eng.Quotas.TryAdvisorCall(cfg.Limits.DailyAdvisorLimit) {
		op, err := eng.Advisor.Moderate(ctx, msg.Content)
		if err != nil {
			logger.Warn("advisor call failed", "err", err)
			eng.Quotas.RefundAdvisorCall()
			advisorCalls.WithLabelValues("error").Inc()
		} else {
			advisorCalls.WithLabelValues("ok").Inc()
			if op != nil && !op.Appropriate {
				advisory = op.Severity
				tags = dedupeStrings(append(tags, op.Tags...))
			}
		}
	}

	prior, err := eng.Warnings.Count(ctx, msg.Actor.ID, now.Add(-cfg.WarningRetention()))
	if err != nil {
		logger.Error("warning history lookup failed, assuming first offense", "err", err)
		prior = 0
	}

	d := Decide(score, tags, advisory, prior+1, cfg)
	switch {
	case d.Review:
		item := reviewstore.ReviewItem{
			ID:        msg.ID,
			ChannelID: msg.ChannelID,
			ActorID:   msg.Actor.ID,
			Content:   actorstore.TruncateContent(msg.Content),
			Tags:      tags,
			Score:     score,
			CreatedAt: now,
			Status:    reviewstore.StatusPending,
		}
		if err := eng.Reviews.Add(ctx, item); err != nil {
			logger.Error("failed to queue message for review", "err", err)
			return nil
		}
		reviewsQueued.Inc()
		logger.Info("message queued for manual review", "score", score, "tags", tags)
	case d.Action != "":
		w := actorstore.Warning{
			Timestamp: now,
			Severity:  d.Severity,
			Score:     score,
			Tags:      tags,
			Content:   actorstore.TruncateContent(msg.Content),
			ChannelID: msg.ChannelID,
			MessageID: msg.ID,
		}
		if err := eng.Warnings.Add(ctx, msg.Actor.ID, w); err != nil {
			logger.Error("failed to record warning", "err", err)
		} else {
			warningsIssued.Inc()
		}
		eng.execute(ctx, logger, d, &msg, prior+1, score, tags, cfg)
	}
	return nil
}

// Fixed spam responses, deliberately outside the warning/escalation ladder:
// rate violations get friction (deletion, short timeout, notice), not a
// permanent history entry.
func (eng *Engine) handleSpam(ctx context.Context, logger *slog.Logger, v ViolationKind, msg *platform.Message, cfg *policy.Config) {
	spamViolations.WithLabelValues(string(v)).Inc()

	err := eng.Platform.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		logger.Error("failed to delete spam message", "err", err)
	}

	switch v {
	case ViolationMessageBurst:
		eng.timeoutActor(ctx, logger, msg.Actor.ID, cfg.TimeoutDuration("spam"), "sending messages too quickly")
		eng.notifyChannel(ctx, logger, msg, "{user}, slow down. You are sending messages too quickly.")
	case ViolationDuplicateSpam:
		eng.notifyChannel(ctx, logger, msg, "{user}, please stop repeating the same message.")
	}

	logger.Info("spam violation handled", "kind", v)
}

func (eng *Engine) notifyChannel(ctx context.Context, logger *slog.Logger, msg *platform.Message, tmpl string) {
	n := platform.Notice{
		Target:      msg.ChannelID,
		Text:        strings.ReplaceAll(tmpl, "{user}", msg.Actor.Username),
		Ephemeral:   true,
		DeleteAfter: publicNoticeTTL,
	}
	if err := eng.Platform.SendNotice(ctx, n); err != nil {
		logger.Error("failed to send channel notice", "err", err)
	}
}

// Feeds a community join into raid detection. A burst over threshold applies
// slowmode to writable channels once per raid window and alerts operators;
// very young accounts are flagged in the audit log either way.
func (eng *Engine) ProcessJoin(ctx context.Context, evt platform.JoinEvent) (outErr error) {
	eventsProcessed.WithLabelValues("join").Inc()
	start := time.Now()
	defer func() {
		eventDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			eng.Logger.Error("engine panic processing join", "recovered", r, "actor", evt.Actor.ID)
			eventErrors.WithLabelValues("join").Inc()
			outErr = fmt.Errorf("engine panic: %v", r)
		}
	}()

	snap := eng.snapshot.Load()
	if snap == nil || !snap.Config.Enabled || !snap.Config.AntiRaid.Enabled {
		return nil
	}
	cfg := snap.Config
	now := time.Now()
	logger := eng.Logger.With("community", evt.CommunityID, "actor", evt.Actor.ID)

	if age, ok := evt.Actor.AccountAge(now); ok {
		minAge := time.Duration(cfg.AntiRaid.NewAccountMinAgeHours) * time.Hour
		if age < minAge {
			tier := newAccountTier(age)
			newAccountsFlagged.WithLabelValues(tier).Inc()
			logger.Warn("new account joined", "account_age", age.Round(time.Minute), "tier", tier)
		}
	}

	burst, joinCount := eng.Raid.OnJoin(evt.CommunityID, now, cfg.AntiRaid)
	if !burst {
		return nil
	}
	if !eng.Raid.TryMitigate(evt.CommunityID, now, cfg.AntiRaid) {
		return nil
	}

	raidsDetected.Inc()
	logger.Warn("join burst detected, applying slowmode", "joins", joinCount, "slowmode_sec", cfg.AntiRaid.AutoSlowmodeSec)

	channels, err := eng.Platform.WritableChannels(ctx, evt.CommunityID)
	if err != nil {
		logger.Error("failed to list writable channels for raid mitigation", "err", err)
	}
	for _, ch := range channels {
		if err := eng.Platform.SetSlowmode(ctx, ch, cfg.AntiRaid.AutoSlowmodeSec); err != nil {
			logger.Error("failed to set slowmode", "channel", ch, "err", err)
		}
	}

	if eng.Notifier != nil {
		if err := eng.Notifier.SendRaidAlert(ctx, evt.CommunityID, joinCount, cfg.AntiRaid.AutoSlowmodeSec); err != nil {
			logger.Error("failed to send raid alert", "err", err)
		}
	}
	return nil
}

// Feeds a reaction into rate tracking; a burst earns a short timeout.
func (eng *Engine) ProcessReaction(ctx context.Context, evt platform.ReactionEvent) (outErr error) {
	eventsProcessed.WithLabelValues("reaction").Inc()
	start := time.Now()
	defer func() {
		eventDuration.WithLabelValues("reaction").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			eng.Logger.Error("engine panic processing reaction", "recovered", r, "actor", evt.Actor.ID)
			eventErrors.WithLabelValues("reaction").Inc()
			outErr = fmt.Errorf("engine panic: %v", r)
		}
	}()

	snap := eng.snapshot.Load()
	if snap == nil || !snap.Config.Enabled {
		return nil
	}
	cfg := snap.Config
	now := time.Now()

	if eng.isExempt(ctx, &evt.Actor, evt.ChannelID, cfg, now) {
		return nil
	}
	if eng.Tracker.RecordReaction(evt.Actor.ID, now, cfg.Limits) != ViolationReactionBurst {
		return nil
	}

	logger := eng.Logger.With("actor", evt.Actor.ID, "channel", evt.ChannelID)
	spamViolations.WithLabelValues(string(ViolationReactionBurst)).Inc()
	eng.timeoutActor(ctx, logger, evt.Actor.ID, cfg.TimeoutDuration("reaction"), "adding reactions too quickly")
	logger.Info("spam violation handled", "kind", ViolationReactionBurst)
	return nil
}

// Digest of tokenized content, for duplicate detection. Tokenization folds
// case and punctuation so trivial edits do not defeat the duplicate window.
// The LRU saves re-normalizing identical content on repeat offenses, which is
// exactly the hot case.
func (eng *Engine) contentHash(content string) string {
	if h, ok := eng.hashCache.Get(content); ok {
		return h
	}
	toks := keyword.TokenizeText(content)
	sum := sha256.Sum256([]byte(strings.Join(toks, " ")))
	h := hex.EncodeToString(sum[:])
	eng.hashCache.Add(content, h)
	return h
}
