// Package rank combines the learned and strategic scores and picks the
// final shortlist. Selection is category-balanced so one noisy beat
// cannot crowd out the rest, with a safety net for must-see entities.
package rank

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/score"
)

const (
	// Blend weights. The rule score dominates: the learned model ranks
	// within a beat well but under-weights commercial context.
	learnedWeight   = 0.4
	strategicWeight = 0.6
	// probScale lifts the model probability onto the same 0..10 range
	// as the category prior.
	probScale = 10

	defaultQuota   = 4
	defaultCap     = 20
	vipSafetyLimit = 5
	// defaultVIPFloor keeps the safety net from rescuing stories whose
	// score clamped to nothing, such as hard-excluded entities.
	defaultVIPFloor = 0.01
)

// Combine sets FinalScore from the article's component scores. Without a
// model probability the learned half degrades to the category prior
// alone.
func Combine(art *article.Article) {
	learned := float64(art.DomainScore)
	if art.EmbeddingScore != nil {
		learned = 0.5*(*art.EmbeddingScore*probScale) + 0.5*float64(art.DomainScore)
	}
	art.FinalScore = learnedWeight*learned + strategicWeight*art.StrategicScore
}

// Selector picks the shortlist. Safe for concurrent use.
type Selector struct {
	rules  *rules.Ruleset
	scorer *score.Scorer
	logger zerolog.Logger
	quota  int
	cap    int

	// VIPFloor is the minimum final score a VIP mention needs before the
	// safety net will rescue it.
	VIPFloor float64
}

// NewSelector builds a selector; non-positive quota or cap select the
// defaults.
func NewSelector(rs *rules.Ruleset, sc *score.Scorer, quota, cap int, logger zerolog.Logger) *Selector {
	if quota <= 0 {
		quota = defaultQuota
	}
	if cap <= 0 {
		cap = defaultCap
	}
	return &Selector{
		rules:    rs,
		scorer:   sc,
		logger:   logger.With().Str("component", "rank").Logger(),
		quota:    quota,
		cap:      cap,
		VIPFloor: defaultVIPFloor,
	}
}

// Select marks the chosen survivors with IsSelected and returns them in
// final-score order. Three passes: per-category quotas, score-order
// backfill up to the cap, then the VIP safety net which may evict the
// weakest non-VIP picks to stay within the cap.
func (s *Selector) Select(arts []*article.Article) []*article.Article {
	var pool []*article.Article
	for _, a := range arts {
		if a.Survivor() {
			pool = append(pool, a)
		}
	}
	sortByScore(pool)

	// Quota pass. Each priority category contributes its quota of
	// top-scored survivors first, then the remaining categories add a
	// reduced quota each. When the union overflows the cap, the lowest
	// scoring non-priority picks are dropped.
	var picks []*article.Article
	for _, c := range s.rules.PriorityCategories {
		n := 0
		for _, a := range pool {
			if n >= s.quota {
				break
			}
			if a.Category == c {
				picks = append(picks, a)
				n++
			}
		}
	}
	otherQuota := s.rules.OtherCategoryQuota
	if otherQuota <= 0 {
		otherQuota = 1
	}
	taken := map[article.Category]int{}
	for _, a := range pool {
		if s.isPriority(a.Category) {
			continue
		}
		if taken[a.Category] >= otherQuota {
			continue
		}
		taken[a.Category]++
		picks = append(picks, a)
	}
	if len(picks) > s.cap {
		picks = picks[:s.cap]
	}

	selected := map[*article.Article]struct{}{}
	for _, a := range picks {
		selected[a] = struct{}{}
	}

	// Backfill pass, pure score order.
	for _, a := range pool {
		if len(selected) >= s.cap {
			break
		}
		selected[a] = struct{}{}
	}

	// Safety net: a bounded number of VIP mentions must make the list
	// even when their scores fall short.
	rescued := 0
	for _, a := range pool {
		if rescued >= vipSafetyLimit {
			break
		}
		if _, ok := selected[a]; ok {
			continue
		}
		if !s.scorer.IsVIP(a) || a.FinalScore < s.VIPFloor {
			continue
		}
		if victim := weakestNonVIP(selected, s.scorer); victim != nil && len(selected) >= s.cap {
			delete(selected, victim)
			s.logger.Debug().Str("evicted", victim.Title).Str("rescued", a.Title).Msg("vip safety net")
		}
		selected[a] = struct{}{}
		rescued++
	}

	// The list can exceed the cap only through rescues that found no
	// non-VIP pick to evict, bounded by vipSafetyLimit.
	out := make([]*article.Article, 0, len(selected))
	for _, a := range pool {
		if _, ok := selected[a]; ok {
			a.IsSelected = true
			out = append(out, a)
		}
	}
	return out
}

func (s *Selector) isPriority(c article.Category) bool {
	for _, p := range s.rules.PriorityCategories {
		if p == c {
			return true
		}
	}
	return false
}

func weakestNonVIP(selected map[*article.Article]struct{}, sc *score.Scorer) *article.Article {
	var weakest *article.Article
	for a := range selected {
		if sc.IsVIP(a) {
			continue
		}
		if weakest == nil || a.FinalScore < weakest.FinalScore ||
			(a.FinalScore == weakest.FinalScore && a.PublishedAt.Before(weakest.PublishedAt)) {
			weakest = a
		}
	}
	return weakest
}

// sortByScore orders by final score descending, newest first on ties.
func sortByScore(arts []*article.Article) {
	sort.SliceStable(arts, func(i, j int) bool {
		if arts[i].FinalScore != arts[j].FinalScore {
			return arts[i].FinalScore > arts[j].FinalScore
		}
		return arts[i].PublishedAt.After(arts[j].PublishedAt)
	})
}
