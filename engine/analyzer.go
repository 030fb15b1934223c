package engine

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/purell"

	"github.com/chatwarden/warden/keyword"
	"github.com/chatwarden/warden/policy"
)

// Violation tags produced by content analysis. Category matches additionally
// produce "<category>_detected" tags derived from the policy document.
const (
	TagHate           = "hate_detected"
	TagInviteLink     = "invite_link"
	TagSuspiciousLink = "suspicious_link"
	TagPersonalData   = "personal_data_leak"
	TagZalgo          = "zalgo_text"
	TagExcessiveCaps  = "excessive_caps"
	TagEmojiSpam      = "emoji_spam"
	TagMentionSpam    = "mention_spam"
	TagMassSpoiler    = "mass_spoiler"
	TagExcessiveLines = "excessive_lines"
)

// Any hard-term hit pins the score at least this high, so no weight table can
// accidentally make slurs cheap.
const HardTermScoreFloor = 50

// Scores message content against the compiled rule set. Returns the cumulative
// suspicion score and the deduplicated violation tags, in detection order.
// Stateless: every per-actor signal lives in the tracker, not here.
func Analyze(content, channelID string, mentionCount int, snap *policy.Snapshot) (int, []string) {
	cfg := snap.Config
	score, tags := analyzeCommon(content, snap)

	if mentionCount > cfg.Limits.MaxMentions {
		score += cfg.Weight(TagMentionSpam)
		tags = append(tags, TagMentionSpam)
	}

	score, tags = analyzeLinks(content, channelID, score, tags, snap)

	if rx, ok := snap.Rules.Detectors["email_regex"]; ok && rx.MatchString(content) {
		score += cfg.Weight(TagPersonalData)
		tags = append(tags, TagPersonalData)
	} else if rx, ok := snap.Rules.Detectors["phone_regex"]; ok && rx.MatchString(content) {
		score += cfg.Weight(TagPersonalData)
		tags = append(tags, TagPersonalData)
	}

	return score, dedupeStrings(tags)
}

// Scores bare text with no channel or mention context. Used by the dry-run
// analysis endpoint and anywhere content shows up without a full message.
func AnalyzeText(content string, snap *policy.Snapshot) (int, []string) {
	score, tags := analyzeCommon(content, snap)
	return score, dedupeStrings(tags)
}

// category matches, hard terms, and content-only format heuristics
func analyzeCommon(content string, snap *policy.Snapshot) (int, []string) {
	cfg := snap.Config
	score := 0
	var tags []string

	categories := make([]string, 0, len(snap.Rules.Categories))
	for name := range snap.Rules.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		for _, rx := range snap.Rules.Categories[name] {
			if rx.MatchString(content) {
				tag := name + "_detected"
				score += cfg.Weight(tag)
				tags = append(tags, tag)
				break
			}
		}
	}

	if snap.Rules.MatchesHardTerm(keyword.Normalize(content)) {
		tags = append(tags, TagHate)
		if score < HardTermScoreFloor {
			score = HardTermScoreFloor
		}
	}

	runes := []rune(content)
	if len(runes) > 10 {
		upper := 0
		for _, r := range runes {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(len(runes)) > cfg.Limits.CapsRatio {
			score += cfg.Weight(TagExcessiveCaps)
			tags = append(tags, TagExcessiveCaps)
		}
	}

	nonASCII := 0
	for _, r := range runes {
		if r > unicode.MaxASCII {
			nonASCII++
		}
	}
	if nonASCII > cfg.Limits.MaxEmojis {
		score += cfg.Weight(TagEmojiSpam)
		tags = append(tags, TagEmojiSpam)
	}

	if len(runes) > 0 {
		spoilers := strings.Count(content, "||")
		if float64(spoilers)/float64(len(runes)) > cfg.Limits.SpoilerMaxRatio {
			score += cfg.Weight(TagMassSpoiler)
			tags = append(tags, TagMassSpoiler)
		}
	}

	if strings.Count(content, "\n")+1 > cfg.Limits.MaxLines {
		score += cfg.Weight(TagExcessiveLines)
		tags = append(tags, TagExcessiveLines)
	}

	if rx, ok := snap.Rules.Detectors["zalgo_regex"]; ok {
		if len(rx.FindAllString(content, cfg.Limits.ZalgoThreshold+1)) > cfg.Limits.ZalgoThreshold {
			score += cfg.Weight(TagZalgo)
			tags = append(tags, TagZalgo)
		}
	}

	return score, tags
}

func analyzeLinks(content, channelID string, score int, tags []string, snap *policy.Snapshot) (int, []string) {
	cfg := snap.Config
	lp := &cfg.LinkPolicy

	if rx, ok := snap.Rules.Detectors["invite_regex"]; ok && rx.MatchString(content) {
		if lp.BlockAllInvites && !containsString(lp.AllowInvitesInChannels, channelID) {
			score += cfg.Weight(TagInviteLink)
			tags = append(tags, TagInviteLink)
		}
	}

	if rx, ok := snap.Rules.Detectors["url_regex"]; ok {
		for _, raw := range rx.FindAllString(content, -1) {
			if suspiciousURL(raw, lp) {
				score += cfg.Weight(TagSuspiciousLink)
				tags = append(tags, TagSuspiciousLink)
			}
		}
	}

	return score, tags
}

// Classifies a single URL against the link policy. Unparseable URLs are
// suspicious: obfuscation is exactly the case this guards against.
func suspiciousURL(raw string, lp *policy.LinkPolicy) bool {
	// scheme-less matches ("bit.ly/xyz") would otherwise parse as bare paths
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	normalized, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy)
	if err != nil {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Hostname() == "" {
		return true
	}
	domain := strings.ToLower(u.Hostname())

	for _, pat := range lp.BlockDomains {
		if matchDomain(domain, pat) {
			return true
		}
	}

	if len(lp.AllowDomains) > 0 {
		for _, pat := range lp.AllowDomains {
			if matchDomain(domain, pat) {
				return false
			}
		}
		return true
	}

	if lp.BlockURLShorteners {
		for _, short := range lp.ShortenerDomains {
			if matchDomain(domain, short) {
				return true
			}
		}
	}

	for _, tld := range lp.BlockSuspiciousTLDs {
		if strings.HasSuffix(domain, "."+strings.TrimPrefix(tld, ".")) {
			return true
		}
	}

	return false
}

// Matches a hostname against a policy domain pattern. A pattern matches itself
// and any subdomain; an explicit "*." prefix is accepted and means the same.
func matchDomain(domain, pattern string) bool {
	pattern = strings.ToLower(strings.TrimPrefix(pattern, "*."))
	return domain == pattern || strings.HasSuffix(domain, "."+pattern)
}
