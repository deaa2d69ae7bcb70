package score

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	rs, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default: %v", err)
	}
	return NewScorer(rs, zerolog.Nop())
}

func TestStrategic(t *testing.T) {
	t.Parallel()

	s := newScorer(t)
	cases := []struct {
		name string
		art  article.Article
		want float64
	}{
		{
			name: "base only",
			art:  article.Article{Title: "업계 동향 브리핑", Category: article.CategoryGeneral},
			want: 3,
		},
		{
			name: "distribution with commercial bonus",
			art:  article.Article{Title: "독점판매 계약 맺은 중소 도매상", Category: article.CategoryDistribution},
			want: 9,
		},
		{
			name: "commercial and market stack",
			art: article.Article{
				Title:    "지오영 인수 후 독점판매 체제 구축",
				Category: article.CategoryDistribution,
			},
			want: 11,
		},
		{
			name: "pure clinical floors at zero",
			art: article.Article{
				Title:    "임상3상 후보물질 중간 결과 발표",
				Category: article.CategoryTherapeutic,
			},
			want: 0,
		},
		{
			name: "clinical with commercial angle",
			art: article.Article{
				Title:    "임상3상 성공으로 출시 앞당겨",
				Category: article.CategoryClient,
			},
			want: 6,
		},
		{
			name: "hard exclusion floors at zero",
			art: article.Article{
				Title:    "새마을금고 의약품 도매 지원 사업",
				Category: article.CategoryDistribution,
			},
			want: 0,
		},
		{
			name: "conditional trap for distribution",
			art: article.Article{
				Title:    "병원 입찰 공고에 도매상 몰려",
				Category: article.CategoryDistribution,
			},
			want: 0,
		},
		{
			name: "same trigger harmless for other category",
			art: article.Article{
				Title:    "병원 입찰 공고에 도매상 몰려",
				Category: article.CategoryGeneral,
			},
			want: 3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Strategic(&tc.art); got != tc.want {
				t.Fatalf("Strategic(%q) = %v, want %v", tc.art.Title, got, tc.want)
			}
		})
	}
}

func TestIsVIP(t *testing.T) {
	t.Parallel()

	s := newScorer(t)
	vip := &article.Article{Title: "쥴릭파마, 신규 물류 투자"}
	if !s.IsVIP(vip) {
		t.Fatal("쥴릭 mention must be VIP")
	}
	plain := &article.Article{Title: "중소 도매상 합병 논의"}
	if s.IsVIP(plain) {
		t.Fatal("no safety-net keyword, must not be VIP")
	}
}
