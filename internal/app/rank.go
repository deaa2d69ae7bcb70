package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/cli"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/config"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/db"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/enrich"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/feature"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/globaltime"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/ingest"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/logging"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/metrics"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/pipeline"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rank"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/score"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/storage"
)

func runRank(args []string) int {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Input file with crawled articles (.csv or .json)")
	output := fs.String("output", "", "Write the annotated batch as CSV to this path")
	shortlistOut := fs.String("shortlist", "", "Write the shortlist as JSON to this path")
	noEnrich := fs.Bool("no-enrich", false, "Skip body enrichment")
	saveDB := fs.Bool("save-db", false, "Persist the run to the configured database")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall run timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load rules")
		return 1
	}

	// Artifact load failure is not fatal: the run proceeds degraded on
	// rule scores and category priors alone.
	var extractor *feature.Extractor
	artifacts, err := feature.LoadArtifacts(cfg.ModelDir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", cfg.ModelDir).Msg("model artifacts unavailable, ranking degraded")
	} else {
		client := feature.NewEmbedClient(cfg.EmbedEndpoint, 0)
		extractor = feature.NewExtractor(client, artifacts, logger)
	}

	var enricher *enrich.Enricher
	if !*noEnrich {
		enricher = enrich.NewEnricher(cfg.EnrichWorkers, enrich.FetchOptions{}, logger)
	}

	var pool *db.Pool
	var store *storage.Store
	labels := map[string]string{}
	if *saveDB {
		if err := cfg.RequireDatabase(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("database connection failed")
			return 1
		}
		defer pool.Close()

		store = storage.New(pool, logger)
		if err := store.Migrate(ctx); err != nil {
			logger.Error().Err(err).Msg("schema migration failed")
			return 1
		}
		if labels, err = store.LoadLabels(ctx); err != nil {
			logger.Warn().Err(err).Msg("feedback labels unavailable")
			labels = map[string]string{}
		}
	}

	reader := ingest.NewReader(logger)
	arts, err := reader.ReadFile(*input)
	if err != nil {
		logger.Error().Err(err).Str("input", *input).Msg("failed to read input")
		return 1
	}
	if len(arts) == 0 {
		logger.Warn().Str("input", *input).Msg("input is empty, nothing to rank")
		return 0
	}

	scorer := score.NewScorer(rs, logger)
	selector := rank.NewSelector(rs, scorer, cfg.QuotaPerCategory, cfg.TotalCap, logger)
	selector.VIPFloor = cfg.VIPScoreFloor
	svc := pipeline.New(pipeline.Options{
		Rules:       rs,
		Extractor:   extractor,
		Enricher:    enricher,
		Scorer:      scorer,
		Selector:    selector,
		DedupWindow: cfg.DedupWindow,
		Labels:      labels,
		Logger:      logger,
	})

	startedAt := globaltime.UTC()
	result, err := svc.Run(ctx, arts)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return 1
	}
	metrics.ObserveRun(result)

	if store != nil {
		runID, err := store.SaveRun(ctx, result, startedAt)
		if err != nil {
			logger.Error().Err(err).Msg("failed to persist run")
			return 1
		}
		fmt.Printf("run saved: %s\n", runID)
	}

	if *output != "" {
		if err := writeAnnotatedCSV(*output, result.Articles); err != nil {
			logger.Error().Err(err).Str("path", *output).Msg("failed to write output")
			return 1
		}
	}
	if *shortlistOut != "" {
		if err := writeShortlistJSON(*shortlistOut, result.Shortlist); err != nil {
			logger.Error().Err(err).Str("path", *shortlistOut).Msg("failed to write shortlist")
			return 1
		}
	}

	printShortlist(result)
	return 0
}

func printShortlist(result *pipeline.Result) {
	fmt.Printf("processed=%d duplicates=%d noise=%d selected=%d degraded=%v\n",
		result.Processed, result.Duplicates, result.Noise, result.Selected, result.Degraded)
	for i, a := range result.Shortlist {
		fmt.Printf("%2d. [%5.2f] %-13s %s\n", i+1, a.FinalScore, a.Category, a.Title)
	}
}

func writeAnnotatedCSV(path string, arts []*article.Article) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	rows := make([]*article.Article, len(arts))
	copy(rows, arts)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FinalScore != rows[j].FinalScore {
			return rows[i].FinalScore > rows[j].FinalScore
		}
		return rows[i].PublishedAt.After(rows[j].PublishedAt)
	})

	w := csv.NewWriter(f)
	header := []string{
		"url", "title", "summary", "category", "search_keyword", "keywords",
		"published_at", "language",
		"domain_score", "embedding_score", "strategic_score", "final_score",
		"reward", "is_duplicate", "is_noise", "is_selected",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range rows {
		published := ""
		if !a.PublishedAt.IsZero() {
			published = a.PublishedAt.Format(time.RFC3339)
		}
		embedding := ""
		if a.EmbeddingScore != nil {
			embedding = strconv.FormatFloat(*a.EmbeddingScore, 'f', 6, 64)
		}
		row := []string{
			a.URL, a.Title, a.Summary, string(a.Category), a.SearchKeyword, a.Keywords,
			published, a.Language,
			strconv.Itoa(a.DomainScore), embedding,
			strconv.FormatFloat(a.StrategicScore, 'f', 2, 64),
			strconv.FormatFloat(a.FinalScore, 'f', 4, 64),
			a.Reward,
			strconv.FormatBool(a.IsDuplicate),
			strconv.FormatBool(a.IsNoise),
			strconv.FormatBool(a.IsSelected),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeShortlistJSON(path string, shortlist []*article.Article) error {
	type item struct {
		Rank        int      `json:"rank"`
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		Summary     string   `json:"summary,omitempty"`
		Category    string   `json:"category"`
		PublishedAt string   `json:"published_at,omitempty"`
		Final       float64  `json:"final_score"`
		Strategic   float64  `json:"strategic_score"`
		Embedding   *float64 `json:"embedding_score,omitempty"`
		Reward      string   `json:"reward,omitempty"`
	}

	items := make([]item, 0, len(shortlist))
	for i, a := range shortlist {
		published := ""
		if !a.PublishedAt.IsZero() {
			published = a.PublishedAt.Format(time.RFC3339)
		}
		items = append(items, item{
			Rank:        i + 1,
			URL:         a.URL,
			Title:       a.Title,
			Summary:     a.Summary,
			Category:    string(a.Category),
			PublishedAt: published,
			Final:       a.FinalScore,
			Strategic:   a.StrategicScore,
			Embedding:   a.EmbeddingScore,
			Reward:      a.Reward,
		})
	}

	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal shortlist: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write shortlist: %w", err)
	}
	return nil
}
