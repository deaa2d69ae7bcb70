// Package ingest loads crawled articles from CSV exports or validated
// JSON payloads into pipeline records.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	payloadschema "github.com/Lilyleeyaa/zp-market-monitoring-v3-share/schema"
)

// Reader decodes crawler output. Rows with a missing title are skipped
// and counted, not fatal: a single mangled row must not kill a batch.
type Reader struct {
	logger zerolog.Logger
}

func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{logger: logger.With().Str("component", "ingest").Logger()}
}

// ReadFile dispatches on the file extension. CSV is the crawler's native
// export; JSON is the schema-validated payload form.
func (r *Reader) ReadFile(path string) ([]*article.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.ReadCSV(f)
	case ".json":
		return r.ReadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

// ReadCSV decodes a header-mapped CSV export. Unknown columns are
// ignored; known columns may appear in any order.
func (r *Reader) ReadCSV(src io.Reader) ([]*article.Article, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pick := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var out []*article.Article
	skipped := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		title := pick(row, "title", "제목")
		if title == "" {
			skipped++
			continue
		}
		cat := article.ParseCategory(pick(row, "category", "분류"))
		out = append(out, &article.Article{
			URL:           pick(row, "url", "link", "originallink"),
			Title:         title,
			Summary:       pick(row, "summary", "description", "요약"),
			PublishedAt:   r.parseWhen(pick(row, "published_at", "pub_date", "pubdate", "date")),
			Category:      cat,
			SearchKeyword: pick(row, "search_keyword", "keyword"),
			Keywords:      pick(row, "keywords"),
			DomainScore:   article.DomainScoreFor(cat),
		})
	}
	if skipped > 0 {
		r.logger.Warn().Int("skipped", skipped).Msg("csv rows without a title")
	}
	return out, nil
}

// ReadJSON decodes an array of payloads, validating each against the
// article schema. Unlike CSV, JSON input is machine-produced; a bad
// element is an error, not a skip.
func (r *Reader) ReadJSON(src io.Reader) ([]*article.Article, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read json input: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("json input must be an array: %w", err)
	}

	out := make([]*article.Article, 0, len(elements))
	for i, el := range elements {
		item, err := payloadschema.ValidateArticlePayload(el)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		out = append(out, r.fromPayload(item))
	}
	return out, nil
}

func (r *Reader) fromPayload(item *payloadschema.RawArticle) *article.Article {
	art := &article.Article{
		Title:       item.Title,
		DomainScore: article.DomainScoreFor(article.CategoryGeneral),
		Category:    article.CategoryGeneral,
	}
	if item.URL != nil {
		art.URL = strings.TrimSpace(*item.URL)
	}
	if item.Summary != nil {
		art.Summary = *item.Summary
	}
	if item.PublishedAt != nil {
		art.PublishedAt = r.parseWhen(*item.PublishedAt)
	}
	if item.Category != nil {
		art.Category = article.ParseCategory(*item.Category)
		art.DomainScore = article.DomainScoreFor(art.Category)
	}
	if item.SearchKeyword != nil {
		art.SearchKeyword = *item.SearchKeyword
	}
	if len(item.Keywords) > 0 {
		art.Keywords = strings.Join(item.Keywords, ",")
	}
	if item.Language != nil {
		art.Language = *item.Language
	}
	return art
}

// parseWhen accepts the zoo of date formats portals emit. Unparseable
// input becomes the zero time rather than an error; ranking treats it as
// "oldest".
func (r *Reader) parseWhen(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		r.logger.Debug().Str("value", raw).Msg("unparseable published_at")
		return time.Time{}
	}
	return t
}
