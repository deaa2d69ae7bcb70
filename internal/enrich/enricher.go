package enrich

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

const defaultWorkers = 20

// Enricher fills Article.Body for a pool of candidates with a bounded
// worker group. Fetch failures leave the summary in place; enrichment is
// best effort.
type Enricher struct {
	workers int
	opts    FetchOptions
	logger  zerolog.Logger
}

func NewEnricher(workers int, opts FetchOptions, logger zerolog.Logger) *Enricher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Enricher{
		workers: workers,
		opts:    opts,
		logger:  logger.With().Str("component", "enrich").Logger(),
	}
}

// Enrich fetches bodies for every article in arts that still lacks one.
// Returns the number of articles that gained a body.
func (e *Enricher) Enrich(ctx context.Context, arts []*article.Article) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	enriched := make([]bool, len(arts))
	for i, a := range arts {
		if a.Body != "" || a.URL == "" {
			continue
		}
		g.Go(func() error {
			body, err := FetchBodyWithOptions(ctx, a.URL, e.opts)
			if err != nil {
				e.logger.Warn().Err(err).Str("url", a.URL).Msg("body fetch failed")
				return nil
			}
			a.Body = body
			enriched[i] = true
			return nil
		})
	}
	// Workers never return errors; Wait only propagates ctx cancellation.
	_ = g.Wait()

	n := 0
	for _, ok := range enriched {
		if ok {
			n++
		}
	}
	return n
}
