package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatwarden/warden/actorstore"
	"github.com/chatwarden/warden/platform"
)

func veteranActor(now time.Time) platform.Actor {
	created := now.Add(-60 * 24 * time.Hour)
	joined := now.Add(-10 * 24 * time.Hour)
	return platform.Actor{
		ID:               "actor-vet",
		Username:         "vet",
		AccountCreatedAt: &created,
		JoinedAt:         &joined,
	}
}

func TestTrustVeteranActor(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	actor := veteranActor(now)
	assert.True(eng.isTrusted(context.Background(), &actor, cfg, now))
}

func TestTrustFailsClosedOnUnknownAccountAge(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	actor := veteranActor(now)
	actor.AccountCreatedAt = nil
	assert.False(eng.isTrusted(context.Background(), &actor, cfg, now))
}

func TestTrustUnknownJoinAgeSkipsCheck(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	// gateways often omit join time for long-standing members; only the
	// join-age criterion is skipped, the rest still apply
	actor := veteranActor(now)
	actor.JoinedAt = nil
	assert.True(eng.isTrusted(context.Background(), &actor, cfg, now))
}

func TestTrustYoungAccount(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	actor := veteranActor(now)
	created := now.Add(-5 * 24 * time.Hour)
	actor.AccountCreatedAt = &created
	assert.False(eng.isTrusted(context.Background(), &actor, cfg, now))

	actor = veteranActor(now)
	joined := now.Add(-2 * time.Hour)
	actor.JoinedAt = &joined
	assert.False(eng.isTrusted(context.Background(), &actor, cfg, now))
}

func TestTrustBrokenByWarnings(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	ctx := context.Background()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	actor := veteranActor(now)
	err := eng.Warnings.Add(ctx, actor.ID, actorstore.Warning{Timestamp: now, Severity: "low"})
	assert.NoError(err)
	assert.False(eng.isTrusted(ctx, &actor, cfg, now))
}

func TestTrustedRoleShortCircuits(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	// brand-new account, but the role alone is enough; role names are
	// matched loosely
	actor := platform.Actor{ID: "actor-role", Roles: []string{"trusted-member"}}
	assert.True(eng.isTrusted(context.Background(), &actor, cfg, now))
}

func TestExemptions(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	ctx := context.Background()
	now := time.Now()
	cfg := eng.PolicySnapshot().Config

	admin := platform.Actor{ID: "actor-admin", Admin: true}
	assert.True(eng.isExempt(ctx, &admin, "chan-general", cfg, now))

	mod := platform.Actor{ID: "actor-mod", Roles: []string{"Moderator"}}
	assert.True(eng.isExempt(ctx, &mod, "chan-general", cfg, now))

	nobody := platform.Actor{ID: "actor-nobody"}
	assert.True(eng.isExempt(ctx, &nobody, "chan-staff", cfg, now))
	assert.False(eng.isExempt(ctx, &nobody, "chan-general", cfg, now))
}
