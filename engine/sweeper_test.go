package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatwarden/warden/actorstore"
)

func TestSweepOnce(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	ctx := context.Background()
	now := time.Now()

	// one warning far past retention, one fresh
	assert.NoError(eng.Warnings.Add(ctx, "actor-old", actorstore.Warning{
		Timestamp: now.Add(-91 * 24 * time.Hour), Severity: "low",
	}))
	assert.NoError(eng.Warnings.Add(ctx, "actor-new", actorstore.Warning{
		Timestamp: now, Severity: "low",
	}))
	eng.Tracker.RecordMessage("actor-idle", "h", "chan", now.Add(-time.Hour), TestPolicy().Limits)

	eng.SweepOnce(ctx, now)

	actors, warnings, err := eng.Warnings.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, actors)
	assert.Equal(1, warnings)
	assert.Equal(0, eng.Tracker.TrackedActors())
}

func TestSweeperLifecycle(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()

	s := eng.StartSweeper(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(s.Shutdown(ctx))
}

func TestQuotasDailyReset(t *testing.T) {
	assert := assert.New(t)
	q := &Quotas{}

	assert.True(q.TryAdvisorCall(2))
	assert.True(q.TryAdvisorCall(2))
	assert.False(q.TryAdvisorCall(2))
	assert.Equal(2, q.AdvisorCallCount())

	q.ResetDaily()
	assert.Equal(0, q.AdvisorCallCount())
	assert.True(q.TryAdvisorCall(2))
}
