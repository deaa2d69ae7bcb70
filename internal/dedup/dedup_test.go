package dedup

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/rules"
)

func newDetector(t *testing.T, window int) *Detector {
	t.Helper()
	rs, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default: %v", err)
	}
	return NewDetector(rs, window, zerolog.Nop())
}

func TestIsDuplicateExactURL(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	a := &article.Article{URL: "https://news.example/1", Title: "한독 신약 급여 등재"}
	b := &article.Article{URL: "https://news.example/1", Title: "완전히 다른 제목의 기사"}
	if d.IsDuplicate(a) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.IsDuplicate(b) {
		t.Fatal("same URL must be a duplicate regardless of title")
	}
}

func TestIsDuplicateTitleKey(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	a := &article.Article{URL: "https://a.example/1", Title: "[속보] 지오영, 물류센터 '확장'!"}
	b := &article.Article{URL: "https://b.example/2", Title: "지오영 물류센터 확장"}
	if d.IsDuplicate(a) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.IsDuplicate(b) {
		t.Fatal("canonicalized titles must collide")
	}
}

func TestExactURLKeepsRicherSummary(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	short := &article.Article{
		URL:     "https://r.example/1",
		Title:   "쥴릭 콜드체인 투자",
		Summary: "짧은 요약",
	}
	rich := &article.Article{
		URL:     "https://r.example/1",
		Title:   "쥴릭 콜드체인 투자 확대",
		Summary: "훨씬 더 길고 상세한 내용을 담은 요약문",
	}
	if d.IsDuplicate(short) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if d.IsDuplicate(rich) {
		t.Fatal("richer copy of the same url must replace the earlier record")
	}
	if !short.IsDuplicate {
		t.Fatal("earlier, shorter record must be flagged in place")
	}
}

func TestTitleKeyKeepsRicherSummary(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	short := &article.Article{
		URL:     "https://a.example/1",
		Title:   "[속보] 한독 신약 허가",
		Summary: "짧게",
	}
	rich := &article.Article{
		URL:     "https://b.example/2",
		Title:   "한독 신약 허가",
		Summary: "식약처 허가 배경까지 담은 긴 요약",
	}
	if d.IsDuplicate(short) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if d.IsDuplicate(rich) {
		t.Fatal("richer copy of the same story must replace the earlier record")
	}
	if !short.IsDuplicate {
		t.Fatal("earlier, shorter record must be flagged in place")
	}
}

func TestIsDuplicateTokenOverlap(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	a := &article.Article{URL: "https://a.example/1", Title: "쥴릭파마 코리아 의약품 유통계약 체결 발표"}
	b := &article.Article{URL: "https://b.example/2", Title: "쥴릭파마 코리아 의약품 유통계약 체결"}
	c := &article.Article{URL: "https://c.example/3", Title: "식약처 백신 국가출하승인 절차 개편"}
	if d.IsDuplicate(a) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.IsDuplicate(b) {
		t.Fatal("high token overlap must be a duplicate")
	}
	if d.IsDuplicate(c) {
		t.Fatal("unrelated headline must survive")
	}
}

func TestTokenLayerUsesSummary(t *testing.T) {
	t.Parallel()

	// Agency copy under two unrelated headlines: the titles share no
	// token, only the summaries give the story away.
	d := newDetector(t, 0)
	a := &article.Article{
		URL:     "https://a.example/1",
		Title:   "유통 단신",
		Summary: "지오영이 수도권 의약품 물류센터를 새로 착공했다고 이날 발표했다",
	}
	b := &article.Article{
		URL:     "https://b.example/2",
		Title:   "지오영 투자",
		Summary: "지오영이 수도권 의약품 물류센터를 새로 착공했다고 이날 발표했다",
	}
	if d.IsDuplicate(a) {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.IsDuplicate(b) {
		t.Fatal("matching summaries must collide even under different titles")
	}
}

func TestRecencyWindowEviction(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 2)
	titles := []string{
		"첫번째 제약 유통 기사입니다 하나",
		"두번째 완전히 다른 병원 소식 둘",
		"세번째 새로운 바이오 투자 셋",
	}
	for i, title := range titles {
		art := &article.Article{URL: "https://w.example/" + string(rune('a'+i)), Title: title}
		if d.IsDuplicate(art) {
			t.Fatalf("unique title %d flagged", i)
		}
	}
	// The first entry has been evicted, so its near-copy passes the token
	// layer and is caught only by the title-key map.
	again := &article.Article{URL: "https://w.example/z", Title: "첫번째 제약 유통 기사군요 하나"}
	if d.IsDuplicate(again) {
		t.Fatal("evicted window entry must no longer match on tokens")
	}
}

func TestTopicCap(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	first := &article.Article{
		URL:     "https://cap.example/a",
		Title:   "지오영 감기약 차량 광고 공개",
		Summary: "지오영이 감기약 브랜드 랩핑 차량을 선보였다",
	}
	second := &article.Article{
		URL:     "https://cap.example/b",
		Title:   "약국 앞 이색 배송 트럭 화제",
		Summary: "지오영 감기약 광고를 입힌 배송 차량이 눈길을 끌었다",
	}
	if d.IsDuplicate(first) {
		t.Fatal("first capped-topic article must pass")
	}
	if !d.IsDuplicate(second) {
		t.Fatal("second capped-topic article must be dropped")
	}
}

func TestCollapseKeepsLongerSummary(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	short := &article.Article{
		URL:     "https://a.example/1",
		Title:   "한독 MSD 공동판매 계약 체결 발표",
		Summary: "한독과 MSD가 공동판매 계약을 체결했다",
	}
	long := &article.Article{
		URL:     "https://b.example/2",
		Title:   "한독 MSD 공동판매 계약 체결 발표했다",
		Summary: "한독과 MSD가 공동판매 계약을 체결했다고 밝혔다",
	}
	arts := []*article.Article{short, long}
	d.Collapse(arts)
	if !short.IsDuplicate {
		t.Fatal("shorter summary should be collapsed")
	}
	if long.IsDuplicate {
		t.Fatal("longer summary must survive")
	}
}

func TestCollapseComparesSummaries(t *testing.T) {
	t.Parallel()

	// Identical headline over two different stories: the summaries keep
	// the ratio below the bar, so neither side collapses.
	d := newDetector(t, 0)
	a := &article.Article{
		URL:     "https://a.example/1",
		Title:   "제약업계 주간 동향",
		Summary: "지오영 물류센터 착공 소식",
	}
	b := &article.Article{
		URL:     "https://b.example/2",
		Title:   "제약업계 주간 동향",
		Summary: "위고비 공급 재개 경쟁 구도",
	}
	arts := []*article.Article{a, b}
	d.Collapse(arts)
	if a.IsDuplicate || b.IsDuplicate {
		t.Fatal("different summaries under the same headline must not collapse")
	}
}

func TestCollapseLeavesDistinctAlone(t *testing.T) {
	t.Parallel()

	d := newDetector(t, 0)
	a := &article.Article{URL: "https://a.example/1", Title: "식약처 허가 절차 단축", Summary: "x"}
	b := &article.Article{URL: "https://b.example/2", Title: "지오영 물류센터 착공", Summary: "y"}
	arts := []*article.Article{a, b}
	d.Collapse(arts)
	if a.IsDuplicate || b.IsDuplicate {
		t.Fatal("distinct stories must not collapse")
	}
}

func TestSequenceRatio(t *testing.T) {
	t.Parallel()

	if r := sequenceRatio([]rune("abcdef"), []rune("abcdef")); r != 1 {
		t.Fatalf("identical ratio = %v, want 1", r)
	}
	if r := sequenceRatio([]rune("abcd"), []rune("wxyz")); r != 0 {
		t.Fatalf("disjoint ratio = %v, want 0", r)
	}
	// "abcde" vs "abde": blocks "ab" and "de", M=4, T=9.
	if r := sequenceRatio([]rune("abcde"), []rune("abde")); r < 0.88 || r > 0.89 {
		t.Fatalf("ratio = %v, want 8/9", r)
	}
}
