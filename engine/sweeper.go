package engine

import (
	"context"
	"time"
)

// Background janitor: prunes tracker windows, expires stored warnings past
// retention, drains stale raid state, and resets daily quotas at local
// midnight.
type Sweeper struct {
	eng      *Engine
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Starts the sweep loop. Shut down with Shutdown; the loop also stops if the
// parent context is canceled.
func (eng *Engine) StartSweeper(ctx context.Context, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Sweeper{
		eng:      eng,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	lastDay := time.Now().YearDay()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.eng.SweepOnce(ctx, now)
			if day := now.YearDay(); day != lastDay {
				lastDay = day
				s.eng.Quotas.ResetDaily()
				s.eng.Logger.Info("daily quotas reset")
			}
		}
	}
}

func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// One sweep pass. Also callable directly, which is how tests drive it.
func (eng *Engine) SweepOnce(ctx context.Context, now time.Time) {
	snap := eng.snapshot.Load()
	if snap == nil {
		return
	}
	cfg := snap.Config

	dupWindow := time.Duration(cfg.Limits.DuplicateWindowSec) * time.Second
	droppedActors := eng.Tracker.Sweep(now, dupWindow)

	raidWindow := time.Duration(cfg.AntiRaid.BurstWindowSec) * time.Second
	droppedCommunities := eng.Raid.Sweep(now, raidWindow)

	expired, err := eng.Warnings.Sweep(ctx, now.Add(-cfg.WarningRetention()))
	if err != nil {
		eng.Logger.Error("warning retention sweep failed", "err", err)
	}

	if droppedActors > 0 || droppedCommunities > 0 || expired > 0 {
		eng.Logger.Info("sweep completed",
			"idle_actors_dropped", droppedActors,
			"idle_communities_dropped", droppedCommunities,
			"warnings_expired", expired)
	}
}
