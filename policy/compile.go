package policy

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/chatwarden/warden/keyword"
)

// Executable form of a policy document: compiled pattern matchers plus
// normalized term lists. Owned by the compiler, rebuilt wholesale on every
// reload, and never mutated after construction.
type RuleSet struct {
	// compiled block-term matchers, keyed by category name
	Categories map[string][]*regexp.Regexp
	// compiled format detectors (invite_regex, url_regex, email_regex, phone_regex, zalgo_regex)
	Detectors map[string]*regexp.Regexp
	// hard block terms, already passed through keyword.Normalize
	HardTerms []string
}

// Immutable pairing of a config and its compiled rules, published atomically
// by the engine. Rules always derive from exactly this Config.
type Snapshot struct {
	Config *Config
	Rules  *RuleSet
}

// Compiles a policy document into an executable rule set. Pure and total: a
// malformed pattern is logged and skipped, never fatal, so one bad category
// entry cannot take the whole policy down with it.
func Compile(cfg *Config, logger *slog.Logger) *RuleSet {
	if logger == nil {
		logger = slog.Default()
	}

	rs := &RuleSet{
		Categories: make(map[string][]*regexp.Regexp, len(cfg.BlockTerms)),
		Detectors:  make(map[string]*regexp.Regexp, len(cfg.Detectors)),
		HardTerms:  make([]string, 0, len(cfg.HardTerms)),
	}

	for category, patterns := range cfg.BlockTerms {
		compiled := []*regexp.Regexp{}
		for _, pat := range patterns {
			rx, err := regexp.Compile("(?im)" + pat)
			if err != nil {
				logger.Warn("skipping invalid block-term pattern", "category", category, "pattern", pat, "err", err)
				continue
			}
			compiled = append(compiled, rx)
		}
		rs.Categories[category] = compiled
	}

	for name, pat := range cfg.Detectors {
		rx, err := regexp.Compile(pat)
		if err != nil {
			logger.Warn("skipping invalid format detector", "detector", name, "pattern", pat, "err", err)
			continue
		}
		rs.Detectors[name] = rx
	}

	for _, term := range cfg.HardTerms {
		norm := keyword.Normalize(term)
		if norm == "" {
			logger.Warn("skipping hard term that normalizes to empty", "term", term)
			continue
		}
		rs.HardTerms = append(rs.HardTerms, norm)
	}

	return rs
}

// Total number of compiled matchers, for operator statistics.
func (rs *RuleSet) PatternCount() int {
	n := len(rs.Detectors)
	for _, pats := range rs.Categories {
		n += len(pats)
	}
	return n
}

// Checks normalized text against the hard block-term list. The input must
// already be passed through keyword.Normalize.
func (rs *RuleSet) MatchesHardTerm(normalized string) bool {
	for _, term := range rs.HardTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// Reports whether any block-term category matches the raw text. Used for the
// short-message gate, where length alone should not exempt a message.
func (rs *RuleSet) MatchesAnyBlockTerm(raw string) bool {
	for _, pats := range rs.Categories {
		for _, rx := range pats {
			if rx.MatchString(raw) {
				return true
			}
		}
	}
	return rs.MatchesHardTerm(keyword.Normalize(raw))
}
