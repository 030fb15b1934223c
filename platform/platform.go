// Package platform defines the narrow capability surface the moderation
// engine consumes from the chat platform, so the real gateway adapter is
// swappable and unit tests can supply fakes.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// the platform refused the operation for lack of rights; fatal for the
	// single action, never for event processing
	ErrPermission = errors.New("insufficient platform permissions")
	// a private notice could not be delivered to the actor
	ErrDelivery = errors.New("notice delivery failed")
	// the subject no longer exists (eg, message already deleted)
	ErrNotFound = errors.New("platform subject not found")
)

// Outbound moderation primitives. All calls are expected to enforce their own
// bounded timeouts; the engine never retries and never escalates a failure
// past the current event.
type Client interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Timeout(ctx context.Context, actorID string, d time.Duration, reason string) error
	Kick(ctx context.Context, actorID, reason string) error
	Ban(ctx context.Context, actorID, reason string) error
	// ephemeral notices are short-lived public posts removed after deleteAfter
	SendNotice(ctx context.Context, n Notice) error
	SetSlowmode(ctx context.Context, channelID string, seconds int) error
	// channels the community can write to, for raid mitigation
	WritableChannels(ctx context.Context, communityID string) ([]string, error)
}

type Notice struct {
	// actor id for private delivery, channel id for public
	Target      string
	Text        string
	Ephemeral   bool
	DeleteAfter time.Duration
}

// Metadata about the author of an event, pre-resolved by the gateway adapter.
type Actor struct {
	ID       string
	Username string
	Roles    []string
	Admin    bool
	// nil when the platform did not supply the timestamp
	AccountCreatedAt *time.Time
	JoinedAt         *time.Time
}

// Age of the actor's platform account. ok is false when the creation
// timestamp is unknown; callers must fail closed on that.
func (a *Actor) AccountAge(now time.Time) (time.Duration, bool) {
	if a.AccountCreatedAt == nil {
		return 0, false
	}
	return now.Sub(*a.AccountCreatedAt), true
}

// Time since the actor joined this community, when known.
func (a *Actor) JoinAge(now time.Time) (time.Duration, bool) {
	if a.JoinedAt == nil {
		return 0, false
	}
	return now.Sub(*a.JoinedAt), true
}

// Inbound chat message event.
type Message struct {
	ID          string
	CommunityID string
	ChannelID   string
	Content     string
	// user + role + channel mentions combined
	MentionCount int
	Actor        Actor
}

type JoinEvent struct {
	CommunityID string
	Actor       Actor
}

type ReactionEvent struct {
	CommunityID string
	ChannelID   string
	Actor       Actor
}
