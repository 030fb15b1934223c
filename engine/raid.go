package engine

import (
	"sync"
	"time"

	"github.com/chatwarden/warden/policy"
)

// New-account flag tiers, by account age at join time.
const (
	FlagTierHighest = "highest"
	FlagTierHigh    = "high"
	FlagTierMedium  = "medium"
)

// Per-community join burst detection. Windows are seconds-scale so this is
// purely in-process state; a restart mid-raid just restarts the count.
type RaidDetector struct {
	mu          sync.Mutex
	communities map[string]*communityJoins
}

type communityJoins struct {
	joins []time.Time
	// when mitigation last fired, zero if never
	mitigated time.Time
}

func NewRaidDetector() *RaidDetector {
	return &RaidDetector{
		communities: make(map[string]*communityJoins),
	}
}

// Records a join and reports whether the burst threshold is currently
// exceeded, along with the live join count in the window.
func (d *RaidDetector) OnJoin(communityID string, now time.Time, cfg policy.AntiRaid) (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cj, ok := d.communities[communityID]
	if !ok {
		cj = &communityJoins{}
		d.communities[communityID] = cj
	}
	window := time.Duration(cfg.BurstWindowSec) * time.Second
	cj.joins = pruneTimes(append(cj.joins, now), now, window)
	return len(cj.joins) >= cfg.BurstJoinThreshold, len(cj.joins)
}

// Claims the one mitigation slot for the current raid window. Returns false
// if mitigation already fired within the window, so a sustained burst applies
// slowmode exactly once.
func (d *RaidDetector) TryMitigate(communityID string, now time.Time, cfg policy.AntiRaid) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	cj, ok := d.communities[communityID]
	if !ok {
		cj = &communityJoins{}
		d.communities[communityID] = cj
	}
	window := time.Duration(cfg.BurstWindowSec) * time.Second
	if !cj.mitigated.IsZero() && now.Sub(cj.mitigated) < window {
		return false
	}
	cj.mitigated = now
	return true
}

// Drops communities whose windows have fully drained.
func (d *RaidDetector) Sweep(now time.Time, window time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, cj := range d.communities {
		cj.joins = pruneTimes(cj.joins, now, window)
		if len(cj.joins) == 0 && (cj.mitigated.IsZero() || now.Sub(cj.mitigated) >= window) {
			delete(d.communities, id)
			removed++
		}
	}
	return removed
}

// Flag tier for a freshly joined account of the given age.
func newAccountTier(age time.Duration) string {
	switch {
	case age < 30*time.Minute:
		return FlagTierHighest
	case age < time.Hour:
		return FlagTierHigh
	default:
		return FlagTierMedium
	}
}
