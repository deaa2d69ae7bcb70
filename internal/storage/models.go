package storage

import "time"

// Run is one curation pass. Article rows hang off it so history stays
// queryable per run.
type Run struct {
	ID         string    `gorm:"primaryKey;size:36"`
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time

	Processed  int
	Duplicates int
	Noise      int
	Selected   int
	Degraded   bool

	Articles []RankedArticle `gorm:"foreignKey:RunID"`
}

// RankedArticle is one input article with its final flags and scores.
type RankedArticle struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"index;size:36"`

	URL           string `gorm:"size:2048"`
	Title         string `gorm:"size:1024"`
	Summary       string
	Category      string `gorm:"size:32;index"`
	SearchKeyword string `gorm:"size:256"`
	Language      string `gorm:"size:2"`
	PublishedAt   time.Time

	DomainScore    int
	EmbeddingScore *float64
	StrategicScore float64
	FinalScore     float64
	Reward         string `gorm:"size:64"`

	IsDuplicate bool
	IsNoise     bool
	IsSelected  bool `gorm:"index"`
}

// FeedbackLabel is a reviewer verdict on an article URL, merged into
// later runs for display.
type FeedbackLabel struct {
	URL       string `gorm:"primaryKey;size:2048"`
	Label     string `gorm:"size:64"`
	UpdatedAt time.Time
}
