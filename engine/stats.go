package engine

import (
	"context"
	"time"
)

// Operator-facing engine statistics, served by the admin API.
type Stats struct {
	Enabled          bool   `json:"enabled"`
	PolicyVersion    string `json:"policy_version"`
	CompiledPatterns int    `json:"compiled_patterns"`
	ActorsWarned     int    `json:"actors_warned"`
	WarningsStored   int    `json:"warnings_stored"`
	ReviewQueueSize  int    `json:"review_queue_size"`
	TrackedActors    int    `json:"tracked_actors"`
	AdvisorCalls     int    `json:"advisor_calls_today"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (eng *Engine) Stats(ctx context.Context) (*Stats, error) {
	snap := eng.snapshot.Load()
	out := &Stats{
		TrackedActors: eng.Tracker.TrackedActors(),
		AdvisorCalls:  eng.Quotas.AdvisorCallCount(),
		UptimeSeconds: int64(time.Since(eng.startedAt).Seconds()),
	}
	if snap != nil {
		out.Enabled = snap.Config.Enabled
		out.PolicyVersion = snap.Config.Version
		out.CompiledPatterns = snap.Rules.PatternCount()
	}

	actors, warnings, err := eng.Warnings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out.ActorsWarned = actors
	out.WarningsStored = warnings

	pending, err := eng.Reviews.Size(ctx)
	if err != nil {
		return nil, err
	}
	out.ReviewQueueSize = pending
	return out, nil
}

// Wipes an actor's warning history. Admin-only escape hatch.
func (eng *Engine) ResetActor(ctx context.Context, actorID string) (int, error) {
	removed, err := eng.Warnings.Clear(ctx, actorID)
	if err != nil {
		return 0, err
	}
	eng.Logger.Info("actor history reset", "actor", actorID, "warnings_removed", removed)
	return removed, nil
}
