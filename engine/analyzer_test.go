package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatwarden/warden/policy"
)

func testSnapshot() *policy.Snapshot {
	cfg := TestPolicy()
	return &policy.Snapshot{Config: cfg, Rules: policy.Compile(cfg, nil)}
}

func TestAnalyzeCleanContent(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	score, tags := Analyze("what a lovely afternoon for a walk", "chan-general", 0, snap)
	assert.Equal(0, score)
	assert.Empty(tags)
}

func TestAnalyzeAdditiveWeights(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// scam category plus a blocked invite, weights 10 + 7
	score, tags := Analyze("free nitro at discord.gg/abc123 hurry", "chan-general", 0, snap)
	assert.Equal(17, score)
	assert.Equal([]string{"scams_detected", TagInviteLink}, tags)
}

func TestAnalyzeInviteAllowedChannel(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()
	cfg.LinkPolicy.AllowInvitesInChannels = []string{"chan-promo"}
	snap := &policy.Snapshot{Config: cfg, Rules: policy.Compile(cfg, nil)}

	_, tags := Analyze("join us over at discord.gg/abc123 folks", "chan-promo", 0, snap)
	assert.NotContains(tags, TagInviteLink)
}

func TestAnalyzeHardTermFloor(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// obfuscated spelling still matches after normalization
	score, tags := Analyze("you are such a z0rbl4x honestly", "chan-general", 0, snap)
	assert.Contains(tags, TagHate)
	assert.GreaterOrEqual(score, HardTermScoreFloor)
}

func TestAnalyzeFormatHeuristics(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	_, tags := Analyze("STOP SHOUTING AT EVERYONE", "chan-general", 0, snap)
	assert.Contains(tags, TagExcessiveCaps)

	_, tags = Analyze("hello everyone "+strings.Repeat("🔥", 25), "chan-general", 0, snap)
	assert.Contains(tags, TagEmojiSpam)

	_, tags = Analyze("hey everybody look at this", "chan-general", 6, snap)
	assert.Contains(tags, TagMentionSpam)

	spoilerCfg := TestPolicy()
	spoilerCfg.Limits.SpoilerMaxRatio = 0.2
	spoilerSnap := &policy.Snapshot{Config: spoilerCfg, Rules: policy.Compile(spoilerCfg, nil)}
	_, tags = Analyze(strings.Repeat("||boo||", 10), "chan-general", 0, spoilerSnap)
	assert.Contains(tags, TagMassSpoiler)

	_, tags = Analyze("line one"+strings.Repeat("\nmore", 13), "chan-general", 0, snap)
	assert.Contains(tags, TagExcessiveLines)
}

func TestAnalyzeSuspiciousLinks(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// default shortener list
	_, tags := Analyze("grab your reward here http://bit.ly/xyz now", "chan-general", 0, snap)
	assert.Contains(tags, TagSuspiciousLink)

	// blocked suspicious TLD
	_, tags = Analyze("see https://totally-legit.tk/page for details", "chan-general", 0, snap)
	assert.Contains(tags, TagSuspiciousLink)

	// ordinary domain passes
	_, tags = Analyze("docs are at https://example.com/guide today", "chan-general", 0, snap)
	assert.NotContains(tags, TagSuspiciousLink)
}

func TestAnalyzeSchemelessShortener(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// dropping the scheme must not dodge the shortener deny-list
	score, tags := Analyze("FR33 $TUFF CLICK bit.ly/xyz", "chan-general", 0, snap)
	assert.Contains(tags, TagSuspiciousLink)
	assert.GreaterOrEqual(score, snap.Config.Weight(TagSuspiciousLink))

	// a scheme-less ordinary domain still passes
	_, tags = Analyze("docs moved to example.com/guide today", "chan-general", 0, snap)
	assert.NotContains(tags, TagSuspiciousLink)
}

func TestAnalyzeDomainAllowlist(t *testing.T) {
	assert := assert.New(t)
	cfg := TestPolicy()
	cfg.LinkPolicy.AllowDomains = []string{"example.com"}
	snap := &policy.Snapshot{Config: cfg, Rules: policy.Compile(cfg, nil)}

	_, tags := Analyze("see https://docs.example.com/guide please", "chan-general", 0, snap)
	assert.NotContains(tags, TagSuspiciousLink)

	// allowlist mode denies everything else
	_, tags = Analyze("see https://other.org/guide please", "chan-general", 0, snap)
	assert.Contains(tags, TagSuspiciousLink)
}

func TestAnalyzePersonalData(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	_, tags := Analyze("dm me at somebody@example.com for the files", "chan-general", 0, snap)
	assert.Contains(tags, TagPersonalData)

	_, tags = Analyze("call me on +1 (555) 123-4567 anytime", "chan-general", 0, snap)
	assert.Contains(tags, TagPersonalData)
}

func TestAnalyzeTextSkipsChannelContext(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// invite links need channel context and are not scored here
	score, tags := AnalyzeText("free nitro at discord.gg/abc123 hurry", snap)
	assert.Equal(10, score)
	assert.Equal([]string{"scams_detected"}, tags)
}

func TestAnalyzeTagsDeduplicated(t *testing.T) {
	assert := assert.New(t)
	snap := testSnapshot()

	// two suspicious urls, one tag, both scored
	score, tags := Analyze("http://bit.ly/a and http://bit.ly/b here", "chan-general", 0, snap)
	assert.Equal(12, score)
	assert.Equal([]string{TagSuspiciousLink}, tags)
}
