package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   line\r\n\r\nSecond\tline  \n\n\n Third line "
	want := "First line\n\nSecond line\n\nThird line"
	if got := CleanText(input); got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestFetchBodyPlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("지오영이 물류센터를  확장한다\n\n본문 둘째 문단"))
	}))
	defer srv.Close()

	got, err := FetchBody(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchBody: %v", err)
	}
	want := "지오영이 물류센터를 확장한다\n\n본문 둘째 문단"
	if got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestFetchBodyErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := FetchBody(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestEnrichFillsBodies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("기사 본문"))
	}))
	defer srv.Close()

	arts := []*article.Article{
		{URL: srv.URL + "/a", Summary: "요약 a"},
		{URL: srv.URL + "/broken", Summary: "요약 b"},
		{URL: "", Summary: "요약 c"},
		{URL: srv.URL + "/d", Body: "이미 있음"},
	}

	e := NewEnricher(4, FetchOptions{}, zerolog.Nop())
	if got := e.Enrich(context.Background(), arts); got != 1 {
		t.Fatalf("enriched = %d, want 1", got)
	}
	if arts[0].Body != "기사 본문" {
		t.Fatalf("body = %q", arts[0].Body)
	}
	if arts[1].Body != "" || arts[2].Body != "" {
		t.Fatal("failed or URL-less articles must keep empty bodies")
	}
	if arts[3].Body != "이미 있음" {
		t.Fatal("existing body must be preserved")
	}
}
