package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatwarden/warden/platform"
)

// Interface for a type that can deliver high-priority operator alerts.
type Notifier interface {
	SendActionAlert(ctx context.Context, action string, msg *platform.Message, tags []string, score int) error
	SendRaidAlert(ctx context.Context, communityID string, joinCount int, slowmodeSec int) error
}

func alertActionBody(action string, msg *platform.Message, tags []string, score int) string {
	out := "⚠️ Warden Enforcement ⚠️\n"
	out += fmt.Sprintf("`%s` against `%s` (%s) in `%s`\n", action, msg.Actor.Username, msg.Actor.ID, msg.ChannelID)
	out += fmt.Sprintf("Score: %d\n", score)
	if len(tags) > 0 {
		out += fmt.Sprintf("Tags: `%s`\n", strings.Join(tags, ", "))
	}
	return out
}

func alertRaidBody(communityID string, joinCount, slowmodeSec int) string {
	out := "🚨 Warden Raid Alert 🚨\n"
	out += fmt.Sprintf("Join burst in community `%s`: %d joins inside the detection window\n", communityID, joinCount)
	out += fmt.Sprintf("Slowmode of %ds applied to writable channels\n", slowmodeSec)
	return out
}
