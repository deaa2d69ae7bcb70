// Package score computes the strategic rule score: an additive,
// inspectable counterpart to the learned probability. The tables live in
// the ruleset so commercial priorities change without a release.
package score

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
)

const (
	commercialBonus = 3.0
	marketBonus     = 2.0
	// A purely scientific item (clinical terms, no commercial angle) is
	// outside the distribution beat; one with a commercial angle is only
	// slightly discounted.
	clinicalPenaltyPure  = 10.0
	clinicalPenaltySoft  = 2.0
	hardExclusionPenalty = 20.0
)

// Scorer is safe for concurrent use.
type Scorer struct {
	rules  *rules.Ruleset
	logger zerolog.Logger
}

func NewScorer(rs *rules.Ruleset, logger zerolog.Logger) *Scorer {
	return &Scorer{
		rules:  rs,
		logger: logger.With().Str("component", "score").Logger(),
	}
}

// Strategic returns the rule score for art, never below zero.
func (s *Scorer) Strategic(art *article.Article) float64 {
	text := art.Text()
	score := s.rules.BaseScore(art.Category)

	commercial := containsAny(text, s.rules.CommercialTerms)
	if commercial {
		score += commercialBonus
	}
	if containsAny(text, s.rules.MarketTerms) {
		score += marketBonus
	}
	if containsAny(text, s.rules.ClinicalTerms) {
		if commercial {
			score -= clinicalPenaltySoft
		} else {
			score -= clinicalPenaltyPure
		}
	}
	if containsAny(text, s.rules.HardExcludedEntities) {
		score -= hardExclusionPenalty
	}
	for _, ce := range s.rules.ConditionalExclusions {
		if art.Category == ce.Category && containsAny(text, ce.Triggers) {
			score -= hardExclusionPenalty
			break
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// IsVIP reports whether art mentions a safety-net keyword.
func (s *Scorer) IsVIP(art *article.Article) bool {
	return containsAny(art.Text(), s.rules.VIPKeywords)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}
