package actorstore

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemWarningStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemWarningStore()
	now := time.Now()

	count, err := s.Count(ctx, "actor-1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(0, count)

	require.NoError(t, s.Add(ctx, "actor-1", Warning{Timestamp: now, Severity: "low", Tags: []string{"excessive_caps"}}))
	require.NoError(t, s.Add(ctx, "actor-1", Warning{Timestamp: now.Add(time.Minute), Severity: "medium", Tags: []string{"invite_link"}}))
	require.NoError(t, s.Add(ctx, "actor-2", Warning{Timestamp: now, Severity: "high", Tags: []string{"hate_detected"}}))

	count, err = s.Count(ctx, "actor-1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(2, count)

	// cutoff excludes the older warning
	ws, err := s.List(ctx, "actor-1", now.Add(30*time.Second))
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal("medium", ws[0].Severity)

	actors, warnings, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(2, actors)
	assert.Equal(3, warnings)

	n, err := s.Clear(ctx, "actor-1")
	require.NoError(t, err)
	assert.Equal(2, n)
	count, _ = s.Count(ctx, "actor-1", now.Add(-time.Hour))
	assert.Equal(0, count)
}

func TestMemWarningStoreSweep(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemWarningStore()
	now := time.Now()

	require.NoError(t, s.Add(ctx, "stale", Warning{Timestamp: now.Add(-100 * 24 * time.Hour)}))
	require.NoError(t, s.Add(ctx, "mixed", Warning{Timestamp: now.Add(-100 * 24 * time.Hour)}))
	require.NoError(t, s.Add(ctx, "mixed", Warning{Timestamp: now}))

	removed, err := s.Sweep(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(2, removed)

	// fully-expired actor entry is dropped, the other keeps its fresh warning
	actors, warnings, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, actors)
	assert.Equal(1, warnings)
}

func TestTruncateContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemWarningStore()

	long := strings.Repeat("a", 500)
	require.NoError(t, s.Add(ctx, "actor", Warning{Timestamp: time.Now(), Content: long}))
	ws, err := s.List(ctx, "actor", time.Time{})
	require.NoError(t, err)
	assert.Len(ws[0].Content, ContentTruncateLen)

	// multi-byte content must not be split mid-rune
	wide := strings.Repeat("é", 300)
	require.NoError(t, s.Add(ctx, "wide", Warning{Timestamp: time.Now(), Content: wide}))
	ws, err = s.List(ctx, "wide", time.Time{})
	require.NoError(t, err)
	assert.True(utf8.ValidString(ws[0].Content))
	assert.LessOrEqual(len(ws[0].Content), ContentTruncateLen)
}
