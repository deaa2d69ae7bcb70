package feature

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

// Extractor scores survivors with the frozen model. A nil *Extractor is
// valid and scores nothing, which is how the pipeline runs degraded when
// artifacts fail to load.
type Extractor struct {
	client    *EmbedClient
	artifacts *Artifacts
	logger    zerolog.Logger
	batchSize int
}

func NewExtractor(client *EmbedClient, artifacts *Artifacts, logger zerolog.Logger) *Extractor {
	return &Extractor{
		client:    client,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "feature").Logger(),
		batchSize: DefaultEmbedBatchSize,
	}
}

// Score fills EmbeddingScore for every article in arts. Articles keep a
// nil score on failure, so downstream combination falls back to the
// category prior.
func (e *Extractor) Score(ctx context.Context, arts []*article.Article) error {
	if e == nil || e.artifacts == nil {
		return nil
	}

	for start := 0; start < len(arts); start += e.batchSize {
		end := min(start+e.batchSize, len(arts))
		batch := arts[start:end]

		texts := make([]string, 0, len(batch))
		for _, a := range batch {
			texts = append(texts, a.FullText())
		}

		vectors, err := e.client.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("score batch %d..%d: %w", start, end, err)
		}

		for i, a := range batch {
			prob, err := e.artifacts.Probability(vectors[i], a.DomainScore, a.Category)
			if err != nil {
				return fmt.Errorf("score %q: %w", a.Title, err)
			}
			p := prob
			a.EmbeddingScore = &p
			e.logger.Debug().Str("title", a.Title).Float64("prob", prob).Msg("scored")
		}
	}
	return nil
}
