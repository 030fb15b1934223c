package engine

import (
	"sync"
	"time"

	"github.com/chatwarden/warden/policy"
)

// Rate/duplicate violation classifications.
type ViolationKind string

const (
	ViolationNone          ViolationKind = ""
	ViolationMessageBurst  ViolationKind = "message_burst"
	ViolationDuplicateSpam ViolationKind = "duplicate_spam"
	ViolationReactionBurst ViolationKind = "reaction_burst"
)

const (
	messageRateWindow  = 10 * time.Second
	reactionRateWindow = 60 * time.Second
	duplicateRingCap   = 50
)

// Per-actor sliding rate windows and duplicate-content ring. Every access
// prunes lazily, so work stays O(window size) per call and nothing grows
// unbounded between sweeps.
type Tracker struct {
	mu     sync.Mutex
	actors map[string]*actorWindows
}

type actorWindows struct {
	mu        sync.Mutex
	messages  []time.Time
	reactions []time.Time
	recent    []dupEntry
}

type dupEntry struct {
	hash      string
	ts        time.Time
	channelID string
}

func NewTracker() *Tracker {
	return &Tracker{
		actors: make(map[string]*actorWindows),
	}
}

// created lazily on first event from an actor
func (t *Tracker) forActor(actorID string) *actorWindows {
	t.mu.Lock()
	defer t.mu.Unlock()
	aw, ok := t.actors[actorID]
	if !ok {
		aw = &actorWindows{}
		t.actors[actorID] = aw
	}
	return aw
}

// Records a message and classifies it against the rate and duplicate limits.
// Burst detection wins over duplicate detection when both would fire.
func (t *Tracker) RecordMessage(actorID, contentHash, channelID string, now time.Time, lim policy.Limits) ViolationKind {
	aw := t.forActor(actorID)
	aw.mu.Lock()
	defer aw.mu.Unlock()

	aw.messages = pruneTimes(append(aw.messages, now), now, messageRateWindow)
	if len(aw.messages) > lim.MaxMessagesPer10s {
		return ViolationMessageBurst
	}

	aw.recent = append(aw.recent, dupEntry{hash: contentHash, ts: now, channelID: channelID})
	if len(aw.recent) > duplicateRingCap {
		aw.recent = aw.recent[len(aw.recent)-duplicateRingCap:]
	}
	window := time.Duration(lim.DuplicateWindowSec) * time.Second
	count := 0
	for _, e := range aw.recent {
		if e.hash == contentHash && now.Sub(e.ts) < window {
			count++
		}
	}
	if count >= lim.DuplicateThreshold {
		return ViolationDuplicateSpam
	}
	return ViolationNone
}

// Records a reaction and classifies it against the per-minute reaction cap.
func (t *Tracker) RecordReaction(actorID string, now time.Time, lim policy.Limits) ViolationKind {
	aw := t.forActor(actorID)
	aw.mu.Lock()
	defer aw.mu.Unlock()

	aw.reactions = pruneTimes(append(aw.reactions, now), now, reactionRateWindow)
	if len(aw.reactions) > lim.MaxReactionsPerMin {
		return ViolationReactionBurst
	}
	return ViolationNone
}

// Drops expired window entries and forgets actors whose windows have fully
// drained. The lazy prune on the hot path keeps windows small; this exists so
// idle actors do not accumulate forever.
func (t *Tracker) Sweep(now time.Time, duplicateWindow time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for actorID, aw := range t.actors {
		aw.mu.Lock()
		aw.messages = pruneTimes(aw.messages, now, messageRateWindow)
		aw.reactions = pruneTimes(aw.reactions, now, reactionRateWindow)
		kept := aw.recent[:0]
		for _, e := range aw.recent {
			if now.Sub(e.ts) < duplicateWindow {
				kept = append(kept, e)
			}
		}
		aw.recent = kept
		idle := len(aw.messages) == 0 && len(aw.reactions) == 0 && len(aw.recent) == 0
		aw.mu.Unlock()
		if idle {
			delete(t.actors, actorID)
			removed++
		}
	}
	return removed
}

func (t *Tracker) TrackedActors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.actors)
}

func pruneTimes(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := 0
	for cut < len(ts) && now.Sub(ts[cut]) > window {
		cut++
	}
	return ts[cut:]
}
