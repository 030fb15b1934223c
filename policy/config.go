package policy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Severity buckets for violations, ordered low < medium < high.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Returns the escalation ordering of a severity string; unknown values rank lowest.
func SeverityRank(s string) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Enforcement action identifiers, as they appear in policy documents.
const (
	ActionWarn          = "dm_warning"
	ActionTimeout       = "timeout_10min"
	ActionTimeoutOrKick = "timeout_1hour_or_kick"
	ActionBanAndReport  = "ban_and_report"
)

// Versioned moderation policy document. Loaded once at startup and replaced
// atomically on reload; never mutated in place.
type Config struct {
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`

	Limits      Limits              `json:"limits"`
	BlockTerms  map[string][]string `json:"block_terms"`
	HardTerms   []string            `json:"hard_terms"`
	Detectors   map[string]string   `json:"format_detectors"`
	LinkPolicy  LinkPolicy          `json:"link_policy"`
	Weights     map[string]int      `json:"suspicion_weights"`
	SeverityMap SeverityMapping     `json:"severity_mapping"`
	Escalation  EscalationRules     `json:"escalation_rules"`
	Trust       TrustCriteria       `json:"trusted_user_criteria"`
	Exemptions  Exemptions          `json:"exemptions"`
	AntiRaid    AntiRaid            `json:"anti_raid"`
	Review      ReviewQueue         `json:"review_queues"`
	Actions     Actions             `json:"actions"`
	Retention   Retention           `json:"retention"`
}

type Limits struct {
	MinMessageLength   int     `json:"min_message_length"`
	MaxMessageLength   int     `json:"max_message_length"`
	MaxMessagesPer10s  int     `json:"max_messages_per_10s"`
	DuplicateWindowSec int     `json:"duplicate_message_window_sec"`
	DuplicateThreshold int     `json:"duplicate_message_threshold"`
	MaxMentions        int     `json:"max_mentions_per_message"`
	MaxEmojis          int     `json:"max_emojis_per_message"`
	MaxLines           int     `json:"max_lines_per_message"`
	CapsRatio          float64 `json:"capslock_ratio_warn"`
	SpoilerMaxRatio    float64 `json:"spoiler_max_ratio"`
	ZalgoThreshold     int     `json:"zalgo_threshold"`
	MaxReactionsPerMin int     `json:"max_reactions_per_min"`
	DailyAdvisorLimit  int     `json:"daily_advisor_limit"`
}

type LinkPolicy struct {
	BlockAllInvites        bool     `json:"block_all_invites"`
	AllowInvitesInChannels []string `json:"allow_invites_in_channels"`
	AllowDomains           []string `json:"allow_domains"`
	BlockDomains           []string `json:"block_domains"`
	BlockURLShorteners     bool     `json:"block_url_shorteners"`
	ShortenerDomains       []string `json:"shortener_domains"`
	BlockSuspiciousTLDs    []string `json:"block_suspicious_tlds"`
}

type SeverityMapping struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
}

type EscalationRules struct {
	Extreme ExtremeAction  `json:"extreme_action"`
	Severe  EscalationTier `json:"severe_action"`
	Medium  EscalationTier `json:"medium_action"`
	Light   EscalationTier `json:"light_action"`
	// scores at/above this act even without a severity-mapped tag
	ActionThreshold int `json:"action_threshold"`
}

type EscalationTier struct {
	Action      string `json:"action"`
	MinWarnings int    `json:"min_warnings"`
}

type ExtremeAction struct {
	Action     string          `json:"action"`
	Conditions map[string]bool `json:"conditions"`
}

type TrustCriteria struct {
	AccountAgeDays   int      `json:"account_age_days"`
	JoinAgeHours     int      `json:"server_join_age_hours"`
	MaxWarnings      int      `json:"warns_max_for_trust"`
	TrustedRoleNames []string `json:"trusted_role_names"`
}

type Exemptions struct {
	Channels []string `json:"whitelisted_channels"`
	Roles    []string `json:"roles_no_automod"`
}

type AntiRaid struct {
	Enabled               bool `json:"enabled"`
	BurstWindowSec        int  `json:"burst_window_seconds"`
	BurstJoinThreshold    int  `json:"burst_join_threshold"`
	AutoSlowmodeSec       int  `json:"auto_slowmode_seconds"`
	NewAccountMinAgeHours int  `json:"new_account_min_age_hours"`
}

type ReviewQueue struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"manual_review_required_threshold"`
}

type Actions struct {
	DeleteMessage     bool           `json:"delete_message"`
	TimeoutDurations  map[string]int `json:"timeout_durations"`
	KickAfterWarnings int            `json:"kick_after_warnings"`
	WarnTemplate      string         `json:"dm_warning_template"`
	PublicTemplate    string         `json:"public_warning_template"`
}

type Retention struct {
	WarningDays int `json:"store_user_history_days"`
}

// Returns a policy with every field at its declared default. The defaults
// track the shipped moderation.json, so a partial document behaves sanely.
func DefaultConfig() Config {
	return Config{
		Version: "unversioned",
		Enabled: true,
		Limits: Limits{
			MinMessageLength:   15,
			MaxMessageLength:   1000,
			MaxMessagesPer10s:  7,
			DuplicateWindowSec: 45,
			DuplicateThreshold: 3,
			MaxMentions:        5,
			MaxEmojis:          20,
			MaxLines:           12,
			CapsRatio:          0.7,
			SpoilerMaxRatio:    0.5,
			ZalgoThreshold:     6,
			MaxReactionsPerMin: 25,
			DailyAdvisorLimit:  500,
		},
		BlockTerms: map[string][]string{},
		HardTerms:  []string{},
		Detectors: map[string]string{
			"invite_regex": `(?i)(discord\.gg|discord\.com/invite)/[a-z0-9-]+`,
			// matches schemed URLs plus bare host.tld/path forms, so
			// scheme-less shortener links still reach the link policy
			"url_regex": `(?i)(?:https?://[^\s<>"']+|\b[a-z0-9][a-z0-9.-]*\.[a-z]{2,}/[^\s<>"']*)`,
			"email_regex":  `(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`,
			"phone_regex":  `\+?[0-9][0-9 ().-]{7,}[0-9]`,
			"zalgo_regex":  "[̀-ͯ҉]",
		},
		LinkPolicy: LinkPolicy{
			BlockAllInvites:    true,
			BlockURLShorteners: true,
			ShortenerDomains:   []string{"bit.ly", "tinyurl.com", "goo.gl", "t.co", "is.gd", "cutt.ly"},
			BlockSuspiciousTLDs: []string{"tk", "ml", "ga", "cf", "gq", "zip"},
		},
		Weights: map[string]int{
			"bad_word":           10,
			"invite_link":        7,
			"suspicious_link":    6,
			"personal_data_leak": 10,
			"zalgo_text":         3,
			"excessive_caps":     3,
			"emoji_spam":         3,
			"mention_spam":       3,
			"mass_spoiler":       3,
			"excessive_lines":    2,
		},
		SeverityMap: SeverityMapping{
			High:   []string{"hate_detected", "personal_data_leak"},
			Medium: []string{"suspicious_link", "invite_link", "mention_spam"},
		},
		Escalation: EscalationRules{
			Extreme: ExtremeAction{
				Action:     ActionBanAndReport,
				Conditions: map[string]bool{"hate_detected": true},
			},
			Severe:          EscalationTier{Action: ActionTimeoutOrKick, MinWarnings: 3},
			Medium:          EscalationTier{Action: ActionTimeout, MinWarnings: 2},
			Light:           EscalationTier{Action: ActionWarn},
			ActionThreshold: 20,
		},
		Trust: TrustCriteria{
			AccountAgeDays: 30,
			JoinAgeHours:   24,
			MaxWarnings:    0,
		},
		AntiRaid: AntiRaid{
			Enabled:               true,
			BurstWindowSec:        30,
			BurstJoinThreshold:    8,
			AutoSlowmodeSec:       10,
			NewAccountMinAgeHours: 12,
		},
		Review: ReviewQueue{
			Enabled:   true,
			Threshold: 12,
		},
		Actions: Actions{
			DeleteMessage: true,
			TimeoutDurations: map[string]int{
				"medium":   600,
				"high":     3600,
				"spam":     300,
				"reaction": 120,
			},
			KickAfterWarnings: 5,
			WarnTemplate:      "Hey {user}, your message in {channel} broke our community rules ({reason}). Please keep it civil.",
			PublicTemplate:    "{user}, please follow the rules. Reason: {reason}",
		},
		Retention: Retention{
			WarningDays: 90,
		},
	}
}

// Parses a policy document from a JSON file. Unset fields fall back to
// defaults; out-of-range values are clamped and logged, never fatal.
func LoadConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	cfg.clamp()
	return &cfg, nil
}

// Pulls out-of-range numeric fields back to their defaults, once at load time,
// so call sites never need to re-validate.
func (c *Config) clamp() {
	def := DefaultConfig()

	clampInt := func(field string, v *int, min int, fallback int) {
		if *v < min {
			slog.Warn("clamping out-of-range policy value", "field", field, "value", *v, "fallback", fallback)
			*v = fallback
		}
	}
	clampRatio := func(field string, v *float64, fallback float64) {
		if *v <= 0 || *v > 1 {
			slog.Warn("clamping out-of-range policy ratio", "field", field, "value", *v, "fallback", fallback)
			*v = fallback
		}
	}

	clampInt("limits.min_message_length", &c.Limits.MinMessageLength, 0, def.Limits.MinMessageLength)
	clampInt("limits.max_message_length", &c.Limits.MaxMessageLength, 1, def.Limits.MaxMessageLength)
	clampInt("limits.max_messages_per_10s", &c.Limits.MaxMessagesPer10s, 1, def.Limits.MaxMessagesPer10s)
	clampInt("limits.duplicate_message_window_sec", &c.Limits.DuplicateWindowSec, 1, def.Limits.DuplicateWindowSec)
	clampInt("limits.duplicate_message_threshold", &c.Limits.DuplicateThreshold, 2, def.Limits.DuplicateThreshold)
	clampInt("limits.max_mentions_per_message", &c.Limits.MaxMentions, 1, def.Limits.MaxMentions)
	clampInt("limits.max_emojis_per_message", &c.Limits.MaxEmojis, 1, def.Limits.MaxEmojis)
	clampInt("limits.max_lines_per_message", &c.Limits.MaxLines, 1, def.Limits.MaxLines)
	clampInt("limits.zalgo_threshold", &c.Limits.ZalgoThreshold, 1, def.Limits.ZalgoThreshold)
	clampInt("limits.max_reactions_per_min", &c.Limits.MaxReactionsPerMin, 1, def.Limits.MaxReactionsPerMin)
	clampInt("limits.daily_advisor_limit", &c.Limits.DailyAdvisorLimit, 0, def.Limits.DailyAdvisorLimit)
	clampRatio("limits.capslock_ratio_warn", &c.Limits.CapsRatio, def.Limits.CapsRatio)
	clampRatio("limits.spoiler_max_ratio", &c.Limits.SpoilerMaxRatio, def.Limits.SpoilerMaxRatio)
	clampInt("escalation_rules.action_threshold", &c.Escalation.ActionThreshold, 1, def.Escalation.ActionThreshold)
	clampInt("anti_raid.burst_window_seconds", &c.AntiRaid.BurstWindowSec, 1, def.AntiRaid.BurstWindowSec)
	clampInt("anti_raid.burst_join_threshold", &c.AntiRaid.BurstJoinThreshold, 2, def.AntiRaid.BurstJoinThreshold)
	clampInt("anti_raid.auto_slowmode_seconds", &c.AntiRaid.AutoSlowmodeSec, 1, def.AntiRaid.AutoSlowmodeSec)
	clampInt("review_queues.manual_review_required_threshold", &c.Review.Threshold, 1, def.Review.Threshold)
	clampInt("actions.kick_after_warnings", &c.Actions.KickAfterWarnings, 1, def.Actions.KickAfterWarnings)
	clampInt("retention.store_user_history_days", &c.Retention.WarningDays, 1, def.Retention.WarningDays)
}

// Suspicion weight for a violation tag, with a shared default for block-term categories.
func (c *Config) Weight(tag string) int {
	if w, ok := c.Weights[tag]; ok {
		return w
	}
	if w, ok := c.Weights["bad_word"]; ok {
		return w
	}
	return 10
}

func (c *Config) WarningRetention() time.Duration {
	return time.Duration(c.Retention.WarningDays) * 24 * time.Hour
}

func (c *Config) TimeoutDuration(kind string) time.Duration {
	def := DefaultConfig().Actions.TimeoutDurations
	secs, ok := c.Actions.TimeoutDurations[kind]
	if !ok || secs <= 0 {
		secs = def[kind]
	}
	if secs <= 0 {
		secs = 600
	}
	return time.Duration(secs) * time.Second
}
