// Package article defines the unit of work flowing through the curation
// pipeline. An Article is created at ingestion, enriched in place by each
// stage, and either emitted in the final shortlist or discarded when the run
// completes.
package article

import (
	"strings"
	"time"
)

// Category is the fixed source-category enumeration. Unknown inputs map to
// CategoryGeneral rather than failing.
type Category string

const (
	CategoryDistribution  Category = "Distribution"
	CategoryBD            Category = "BD"
	CategoryClient        Category = "Client"
	CategoryZuellig       Category = "Zuellig"
	CategoryApproval      Category = "Approval"
	CategoryReimbursement Category = "Reimbursement"
	CategoryTherapeutic   Category = "Therapeutic"
	CategorySupply        Category = "Supply"
	CategoryGeneral       Category = "General"
)

// Categories returns the enumeration in its fixed order. One-hot feature
// encoding and quota selection both index into this slice, so the order is
// part of the model contract and must not change between training and
// inference.
func Categories() []Category {
	return []Category{
		CategoryDistribution,
		CategoryBD,
		CategoryClient,
		CategoryZuellig,
		CategoryApproval,
		CategoryReimbursement,
		CategoryTherapeutic,
		CategorySupply,
		CategoryGeneral,
	}
}

// ParseCategory maps free-form input to the enumeration, defaulting to
// General. Legacy aliases from older crawler exports are accepted.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "distribution", "유통", "유통업체_동향", "의약품유통":
		return CategoryDistribution
	case "bd", "사업개발", "영업_및_사업개발":
		return CategoryBD
	case "client", "partner", "거래처", "거래처_동향":
		return CategoryClient
	case "zuellig", "쥴릭", "쥴릭파마", "쥴릭파마_관련":
		return CategoryZuellig
	case "approval", "product approval", "인허가":
		return CategoryApproval
	case "reimbursement", "급여", "약가":
		return CategoryReimbursement
	case "therapeutic", "therapeutic areas", "치료영역":
		return CategoryTherapeutic
	case "supply", "supply issues", "수급", "공급":
		return CategorySupply
	default:
		return CategoryGeneral
	}
}

// Article is the pipeline record. Fields are added as stages run, never
// removed; the derived booleans are owned by the pipeline and must not be set
// by callers.
type Article struct {
	URL     string
	Title   string
	Summary string

	// Body holds enriched full-page text when available. It is used for the
	// deep noise pass only and is not part of the tabular output.
	Body string

	// PublishedAt is zero when the source date was absent or unparseable.
	PublishedAt time.Time

	Category      Category
	SearchKeyword string
	Keywords      string
	Language      string

	// DomainScore is the coarse per-category prior assigned at ingestion.
	DomainScore int

	// EmbeddingScore is the frozen classifier's probability. Nil until the
	// feature extractor runs, and nil for the whole run in degraded mode.
	EmbeddingScore *float64

	StrategicScore float64
	FinalScore     float64

	// Reward is the historical feedback label merged from the label store,
	// empty when no label exists. Display-only; never a ranking input.
	Reward string

	IsDuplicate bool
	IsNoise     bool
	IsSelected  bool
}

// Text returns the title+summary blob every keyword rule and similarity
// measure operates on.
func (a *Article) Text() string {
	return strings.TrimSpace(a.Title + " " + a.Summary)
}

// FullText includes the enriched body when present, for the deep noise pass.
func (a *Article) FullText() string {
	if a.Body == "" {
		return a.Text()
	}
	return strings.TrimSpace(a.Title + " " + a.Body)
}

// Survivor reports whether the article passed both the duplicate and noise
// gates. Only survivors carry a meaningful FinalScore.
func (a *Article) Survivor() bool {
	return !a.IsDuplicate && !a.IsNoise
}

// Richer reports whether a carries more content than b. Used as the
// duplicate tie-break: bodies are fetched independently and vary in
// completeness, so the longer summary wins over first-seen.
func (a *Article) Richer(b *Article) bool {
	return len(a.Summary) > len(b.Summary)
}

// DomainScoreFor returns the per-category prior. The table mirrors the
// rebalanced crawler weights; anything unlisted scores 3.
func DomainScoreFor(c Category) int {
	switch c {
	case CategoryDistribution:
		return 6
	case CategoryClient, CategoryZuellig:
		return 5
	case CategoryBD:
		return 4
	default:
		return 3
	}
}
