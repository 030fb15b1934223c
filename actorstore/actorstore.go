// Package actorstore holds per-actor warning history behind a narrow
// key-value-ish interface, so a deployment can pick in-process memory or an
// external store without the engine caring.
package actorstore

import (
	"context"
	"time"
	"unicode/utf8"
)

// Immutable record of a single moderation warning.
type Warning struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Score     int       `json:"score"`
	Tags      []string  `json:"tags"`
	// offending content, truncated at write time
	Content   string `json:"content"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type WarningStore interface {
	// appends a warning to the actor's history
	Add(ctx context.Context, actorID string, w Warning) error
	// warnings at or after the cutoff, oldest first
	List(ctx context.Context, actorID string, since time.Time) ([]Warning, error)
	// count of warnings at or after the cutoff
	Count(ctx context.Context, actorID string, since time.Time) (int, error)
	// drops the actor's entire history; returns how many were removed
	Clear(ctx context.Context, actorID string) (int, error)
	// removes warnings older than the cutoff across all actors, dropping
	// actors left empty; returns how many warnings were removed
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	// total tracked actors and warnings, for operator statistics
	Stats(ctx context.Context) (actors int, warnings int, err error)
}

// Warning content is truncated before storage so a pathological message
// cannot bloat history.
const ContentTruncateLen = 200

func TruncateContent(content string) string {
	if len(content) <= ContentTruncateLen {
		return content
	}
	// back off to a rune boundary rather than splitting a multi-byte
	// character and storing invalid UTF-8
	cut := ContentTruncateLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
