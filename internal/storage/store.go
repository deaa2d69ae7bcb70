// Package storage persists run history and feedback labels. The engine
// runs fine without a database; callers only construct a Store when one
// is configured.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/db"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/globaltime"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/pipeline"
)

type Store struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func New(pool *db.Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pool.GORM().WithContext(ctx).AutoMigrate(&Run{}, &RankedArticle{}, &FeedbackLabel{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveRun persists a pipeline result and returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, result *pipeline.Result, startedAt time.Time) (string, error) {
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		FinishedAt: globaltime.UTC(),
		Processed:  result.Processed,
		Duplicates: result.Duplicates,
		Noise:      result.Noise,
		Selected:   result.Selected,
		Degraded:   result.Degraded,
	}
	for _, a := range result.Articles {
		run.Articles = append(run.Articles, toRow(a))
	}

	if err := s.pool.GORM().WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	s.logger.Info().Str("run_id", run.ID).Int("articles", len(run.Articles)).Msg("run saved")
	return run.ID, nil
}

func toRow(a *article.Article) RankedArticle {
	return RankedArticle{
		URL:            a.URL,
		Title:          a.Title,
		Summary:        a.Summary,
		Category:       string(a.Category),
		SearchKeyword:  a.SearchKeyword,
		Language:       a.Language,
		PublishedAt:    a.PublishedAt,
		DomainScore:    a.DomainScore,
		EmbeddingScore: a.EmbeddingScore,
		StrategicScore: a.StrategicScore,
		FinalScore:     a.FinalScore,
		Reward:         a.Reward,
		IsDuplicate:    a.IsDuplicate,
		IsNoise:        a.IsNoise,
		IsSelected:     a.IsSelected,
	}
}

// Runs returns recent runs, newest first, without their article rows.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.pool.GORM().WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run, or db.ErrNoRows when none
// exists.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.pool.GORM().WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrNoRows
		}
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	return &run, nil
}

// Shortlist returns the selected articles of a run in rank order.
func (s *Store) Shortlist(ctx context.Context, runID string) ([]RankedArticle, error) {
	var rows []RankedArticle
	err := s.pool.GORM().WithContext(ctx).
		Where("run_id = ? AND is_selected", runID).
		Order("final_score DESC, published_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load shortlist for run %s: %w", runID, err)
	}
	return rows, nil
}

// LoadLabels returns the feedback labels keyed by article URL.
func (s *Store) LoadLabels(ctx context.Context) (map[string]string, error) {
	var labels []FeedbackLabel
	if err := s.pool.GORM().WithContext(ctx).Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("load feedback labels: %w", err)
	}
	out := make(map[string]string, len(labels))
	for _, l := range labels {
		out[l.URL] = l.Label
	}
	return out, nil
}

// SaveLabel upserts one feedback label.
func (s *Store) SaveLabel(ctx context.Context, url, label string) error {
	row := FeedbackLabel{URL: url, Label: label, UpdatedAt: globaltime.UTC()}
	err := s.pool.GORM().WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("save feedback label: %w", err)
	}
	return nil
}
