// Package pipeline runs the full curation pass: normalize, dedup,
// classify, enrich, score, select. It owns stage ordering and the
// per-run state; the stages themselves live in their own packages.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/classify"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/dedup"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/enrich"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/feature"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/globaltime"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/langdetect"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/normalize"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rank"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/score"
)

const defaultEnrichPool = 20

// Options wires a Service. Rules is required; a nil Extractor or
// Enricher disables that stage (the run is then reported as degraded or
// un-enriched respectively).
type Options struct {
	Rules     *rules.Ruleset
	Extractor *feature.Extractor
	Enricher  *enrich.Enricher
	Selector  *rank.Selector
	Scorer    *score.Scorer

	DedupWindow int
	EnrichPool  int

	// Labels maps article URL to a historical feedback label, merged into
	// the output for display.
	Labels map[string]string

	Logger zerolog.Logger
}

// Service executes curation runs. Safe for concurrent runs: all per-run
// state lives in Run.
type Service struct {
	opts       Options
	classifier *classify.Classifier
	logger     zerolog.Logger
}

// Result summarizes one run. Articles holds every input with its flags
// and scores; Shortlist is the selected subset in rank order.
type Result struct {
	Processed  int
	Duplicates int
	Noise      int
	Selected   int
	Degraded   bool
	Elapsed    time.Duration

	Articles  []*article.Article
	Shortlist []*article.Article
}

func New(opts Options) *Service {
	logger := opts.Logger.With().Str("component", "pipeline").Logger()
	if opts.Scorer == nil {
		opts.Scorer = score.NewScorer(opts.Rules, opts.Logger)
	}
	if opts.Selector == nil {
		opts.Selector = rank.NewSelector(opts.Rules, opts.Scorer, 0, 0, opts.Logger)
	}
	if opts.EnrichPool <= 0 {
		opts.EnrichPool = defaultEnrichPool
	}
	return &Service{
		opts:       opts,
		classifier: classify.New(opts.Rules, opts.Logger),
		logger:     logger,
	}
}

// Run curates one batch. The input slice is annotated in place; the
// returned Result references the same articles.
func (s *Service) Run(ctx context.Context, arts []*article.Article) (*Result, error) {
	start := globaltime.UTC()
	result := &Result{
		Processed: len(arts),
		Articles:  arts,
		Degraded:  s.opts.Extractor == nil,
	}

	detector := dedup.NewDetector(s.opts.Rules, s.opts.DedupWindow, s.logger)

	for _, a := range arts {
		a.Title = normalize.Clean(a.Title)
		a.Summary = normalize.Clean(a.Summary)
		if a.Language == "" {
			a.Language = langdetect.DetectISO6391(a.Text())
		}
		s.classifier.Reclassify(a)
	}

	for _, a := range arts {
		if detector.IsDuplicate(a) {
			a.IsDuplicate = true
			continue
		}
		if noise, reason := s.classifier.IsNoise(a.Text()); noise {
			a.IsNoise = true
			s.logger.Debug().Str("title", a.Title).Str("reason", reason).Msg("noise")
		}
	}

	detector.Collapse(arts)

	for _, a := range arts {
		if a.Survivor() {
			a.StrategicScore = s.opts.Scorer.Strategic(a)
		}
	}

	if s.opts.Enricher != nil {
		pool := s.enrichmentPool(arts)
		n := s.opts.Enricher.Enrich(ctx, pool)
		s.logger.Info().Int("pool", len(pool)).Int("enriched", n).Msg("enrichment done")

		// Deep pass: a headline can look on-beat while the body reveals an
		// off-topic story.
		for _, a := range pool {
			if a.Body == "" || !a.Survivor() {
				continue
			}
			if noise, reason := s.classifier.IsNoise(a.FullText()); noise {
				a.IsNoise = true
				s.logger.Debug().Str("title", a.Title).Str("reason", reason).Msg("deep noise")
			}
		}
	}

	var survivors []*article.Article
	for _, a := range arts {
		if a.Survivor() {
			survivors = append(survivors, a)
		}
	}

	if err := s.opts.Extractor.Score(ctx, survivors); err != nil {
		// Scoring failure degrades the run to rule-only ranking instead of
		// failing it.
		result.Degraded = true
		s.logger.Warn().Err(err).Msg("feature scoring unavailable, running degraded")
	}

	for _, a := range survivors {
		rank.Combine(a)
	}

	result.Shortlist = s.opts.Selector.Select(arts)

	for _, a := range arts {
		if label, ok := s.opts.Labels[a.URL]; ok {
			a.Reward = label
		}
		if a.IsDuplicate {
			result.Duplicates++
		} else if a.IsNoise {
			result.Noise++
		}
	}
	result.Selected = len(result.Shortlist)
	result.Elapsed = globaltime.Since(start)

	s.logger.Info().
		Int("processed", result.Processed).
		Int("duplicates", result.Duplicates).
		Int("noise", result.Noise).
		Int("selected", result.Selected).
		Bool("degraded", result.Degraded).
		Dur("elapsed", result.Elapsed).
		Msg("run complete")
	return result, nil
}

// enrichmentPool picks the provisional top candidates worth a body
// fetch: survivors ordered by strategic score, capped at the pool size.
func (s *Service) enrichmentPool(arts []*article.Article) []*article.Article {
	var pool []*article.Article
	for _, a := range arts {
		if a.Survivor() {
			pool = append(pool, a)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].StrategicScore != pool[j].StrategicScore {
			return pool[i].StrategicScore > pool[j].StrategicScore
		}
		return pool[i].PublishedAt.After(pool[j].PublishedAt)
	})
	if len(pool) > s.opts.EnrichPool {
		pool = pool[:s.opts.EnrichPool]
	}
	return pool
}
