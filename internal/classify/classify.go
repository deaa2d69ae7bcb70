// Package classify decides whether an article belongs to the pharma
// distribution beat at all. It is rule-table driven: exclusion lists
// reject off-topic verticals, domain keywords establish relevance, and
// homonym handling keeps constraint-sense uses of 제약 from smuggling in
// unrelated coverage.
package classify

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
)

// Classifier applies the noise and relevance rules. Safe for concurrent
// use; all state is the immutable ruleset.
type Classifier struct {
	rules  *rules.Ruleset
	logger zerolog.Logger
}

func New(rs *rules.Ruleset, logger zerolog.Logger) *Classifier {
	return &Classifier{
		rules:  rs,
		logger: logger.With().Str("component", "classify").Logger(),
	}
}

// IsNoise reports whether text should be discarded, with a short reason
// for run logs. text is the concatenated title and summary (or body for
// the deep pass).
func (c *Classifier) IsNoise(text string) (bool, string) {
	if kw := firstMatch(text, c.rules.ExcludedKeywords); kw != "" {
		return true, "excluded:" + kw
	}
	if !c.IsDomainRelevant(text) {
		return true, "off-domain"
	}
	return false, ""
}

// IsDomainRelevant reports whether text carries real pharma evidence.
// Homonym terms only count when a context keyword co-occurs; generic
// business terms never count on their own.
func (c *Classifier) IsDomainRelevant(text string) bool {
	for _, kw := range c.rules.DomainKeywords {
		if !strings.Contains(text, kw) {
			continue
		}
		if h := c.homonymFor(kw); h != nil {
			if c.homonymAccepted(text, h) {
				return true
			}
			continue
		}
		return true
	}
	// Known entities (distributors, clients, brands) are evidence on
	// their own; company news rarely spells out the industry.
	for _, ck := range c.rules.CategoryKeywords {
		if firstMatch(text, ck.Keywords) != "" {
			return true
		}
	}
	// Generic terms (계약, 인수, ...) are admissible evidence only with a
	// pharma-context keyword alongside.
	if firstMatch(text, c.rules.GenericKeywords) != "" &&
		c.contextMatch(text, "") {
		return true
	}
	return false
}

func (c *Classifier) homonymFor(term string) *rules.Homonym {
	for i := range c.rules.Homonyms {
		if c.rules.Homonyms[i].Term == term {
			return &c.rules.Homonyms[i]
		}
	}
	return nil
}

// homonymAccepted applies the co-occurrence rule. Occurrences inside an
// ambiguous phrasing (시간 제약, ...) never count; an occurrence outside
// them still needs an independent context keyword, since a bare 제약 is
// more often the constraint sense than the industry.
func (c *Classifier) homonymAccepted(text string, h *rules.Homonym) bool {
	stripped := text
	for _, p := range h.AmbiguousPhrases {
		stripped = strings.ReplaceAll(stripped, p, " ")
	}
	if !strings.Contains(stripped, h.Term) {
		return false
	}
	return c.contextMatch(text, h.Term)
}

// contextMatch reports whether a context keyword other than skip appears.
func (c *Classifier) contextMatch(text, skip string) bool {
	for _, kw := range c.rules.ContextKeywords {
		if kw == skip {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Reclassify moves an article to the highest-priority category whose
// keyword list matches its text. Source categories reflect which search
// pulled the article in, not what it is about, so content wins.
func (c *Classifier) Reclassify(art *article.Article) {
	text := art.Text()
	for _, ck := range c.rules.CategoryKeywords {
		if kw := firstMatch(text, ck.Keywords); kw != "" {
			if art.Category != ck.Category {
				c.logger.Debug().
					Str("title", art.Title).
					Str("from", string(art.Category)).
					Str("to", string(ck.Category)).
					Str("keyword", kw).
					Msg("reclassified")
				art.Category = ck.Category
				art.DomainScore = article.DomainScoreFor(ck.Category)
			}
			return
		}
	}
}

func firstMatch(text string, terms []string) string {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return t
		}
	}
	return ""
}
