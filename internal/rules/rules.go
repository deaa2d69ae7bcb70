// Package rules loads the keyword and scoring tables that drive curation.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Homonym describes a term that only counts as domain evidence when a
// pharma-context keyword co-occurs. Its ambiguous phrasings are treated
// as negative evidence on their own.
type Homonym struct {
	Term             string   `yaml:"term"`
	AmbiguousPhrases []string `yaml:"ambiguous_phrases"`
}

// CategoryKeywords binds a category to the keyword list that claims it
// during content-priority reclassification. Order in the ruleset is
// priority order.
type CategoryKeywords struct {
	Category article.Category `yaml:"category"`
	Keywords []string         `yaml:"keywords"`
}

// ConditionalExclusion drops articles of one category when a trigger term
// appears, regardless of other scores.
type ConditionalExclusion struct {
	Category article.Category `yaml:"category"`
	Triggers []string         `yaml:"triggers"`
}

// TopicCap limits how many articles about one recurring topic survive a
// single run. An article matches when it contains a trigger, one of AnyOf
// and one of ContextAny.
type TopicCap struct {
	Name       string   `yaml:"name"`
	Triggers   []string `yaml:"triggers"`
	AnyOf      []string `yaml:"any_of"`
	ContextAny []string `yaml:"context_any"`
	Max        int      `yaml:"max"`
}

// Ruleset is the full curation rule table. Zero values are not usable;
// construct via Default or Load.
type Ruleset struct {
	DomainKeywords   []string `yaml:"domain_keywords"`
	ExcludedKeywords []string `yaml:"excluded_keywords"`
	GenericKeywords  []string `yaml:"generic_keywords"`
	ContextKeywords  []string `yaml:"context_keywords"`

	Homonyms         []Homonym          `yaml:"homonyms"`
	CategoryKeywords []CategoryKeywords `yaml:"category_keywords"`
	CompoundBigrams  []string           `yaml:"compound_bigrams"`

	CategoryBaseScores    map[string]float64     `yaml:"category_base_scores"`
	CommercialTerms       []string               `yaml:"commercial_terms"`
	MarketTerms           []string               `yaml:"market_terms"`
	ClinicalTerms         []string               `yaml:"clinical_terms"`
	HardExcludedEntities  []string               `yaml:"hard_excluded_entities"`
	ConditionalExclusions []ConditionalExclusion `yaml:"conditional_exclusions"`

	VIPKeywords []string   `yaml:"vip_keywords"`
	TopicCaps   []TopicCap `yaml:"topic_caps"`

	PriorityCategories []article.Category `yaml:"priority_categories"`
	OtherCategoryQuota int                `yaml:"other_category_quota"`
}

// Default returns the embedded ruleset.
func Default() (*Ruleset, error) {
	return parse(defaultRules)
}

// Load reads a ruleset from path, falling back to the embedded default
// when path is empty.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rs, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rs, nil
}

func parse(raw []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate rejects rulesets that would silently disable whole pipeline
// stages.
func (rs *Ruleset) Validate() error {
	if len(rs.DomainKeywords) == 0 {
		return fmt.Errorf("rules: domain_keywords is empty")
	}
	if len(rs.ContextKeywords) == 0 {
		return fmt.Errorf("rules: context_keywords is empty")
	}
	if len(rs.CategoryBaseScores) == 0 {
		return fmt.Errorf("rules: category_base_scores is empty")
	}
	if _, ok := rs.CategoryBaseScores["default"]; !ok {
		return fmt.Errorf("rules: category_base_scores missing default entry")
	}
	for _, ck := range rs.CategoryKeywords {
		if ck.Category == "" || len(ck.Keywords) == 0 {
			return fmt.Errorf("rules: category_keywords entry incomplete")
		}
	}
	for _, tc := range rs.TopicCaps {
		if tc.Name == "" {
			return fmt.Errorf("rules: topic cap missing name")
		}
		if tc.Max < 0 {
			return fmt.Errorf("rules: topic cap %s has negative max", tc.Name)
		}
	}
	for _, h := range rs.Homonyms {
		if h.Term == "" {
			return fmt.Errorf("rules: homonym missing term")
		}
	}
	return nil
}

// BaseScore returns the strategic base score for a category.
func (rs *Ruleset) BaseScore(c article.Category) float64 {
	if s, ok := rs.CategoryBaseScores[string(c)]; ok {
		return s
	}
	return rs.CategoryBaseScores["default"]
}
