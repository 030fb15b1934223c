package engine

import (
	"log/slog"

	"github.com/chatwarden/warden/actorstore"
	"github.com/chatwarden/warden/platform"
	"github.com/chatwarden/warden/policy"
	"github.com/chatwarden/warden/reviewstore"
)

// Fixture policy with a small but realistic rule surface. Term lists are
// nonsense tokens so tests stay readable.
func TestPolicy() *policy.Config {
	cfg := policy.DefaultConfig()
	cfg.Version = "test-1"
	cfg.BlockTerms = map[string][]string{
		"toxicity": {`\b(floobhead|dungle)\b`},
		"scams":    {`(?i)free\s+nitro`},
	}
	cfg.HardTerms = []string{"zorblax"}
	cfg.Trust.TrustedRoleNames = []string{"Trusted Member"}
	cfg.Exemptions.Roles = []string{"Moderator"}
	cfg.Exemptions.Channels = []string{"chan-staff"}
	return &cfg
}

// Engine wired to in-memory stores and a recording platform fake.
func EngineTestFixture() (*Engine, *platform.Recorder) {
	rec := platform.NewRecorder()
	eng := NewEngine(
		slog.Default(),
		TestPolicy(),
		actorstore.NewMemWarningStore(),
		reviewstore.NewMemReviewStore(),
		rec,
	)
	return eng, rec
}
