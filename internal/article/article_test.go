package article

import "testing"

func TestParseCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Category
	}{
		{"distribution", CategoryDistribution},
		{"유통업체_동향", CategoryDistribution},
		{" Zuellig ", CategoryZuellig},
		{"쥴릭파마_관련", CategoryZuellig},
		{"거래처_동향", CategoryClient},
		{"영업_및_사업개발", CategoryBD},
		{"", CategoryGeneral},
		{"뭔지모름", CategoryGeneral},
	}
	for _, tc := range cases {
		if got := ParseCategory(tc.in); got != tc.want {
			t.Fatalf("ParseCategory(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCategoriesOrderIsStable(t *testing.T) {
	t.Parallel()

	// The one-hot feature layout depends on this exact order.
	want := []Category{
		CategoryDistribution, CategoryBD, CategoryClient, CategoryZuellig,
		CategoryApproval, CategoryReimbursement, CategoryTherapeutic,
		CategorySupply, CategoryGeneral,
	}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Categories()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDomainScoreFor(t *testing.T) {
	t.Parallel()

	if got := DomainScoreFor(CategoryDistribution); got != 6 {
		t.Fatalf("Distribution = %d, want 6", got)
	}
	if got := DomainScoreFor(CategoryZuellig); got != 5 {
		t.Fatalf("Zuellig = %d, want 5", got)
	}
	if got := DomainScoreFor(CategoryBD); got != 4 {
		t.Fatalf("BD = %d, want 4", got)
	}
	if got := DomainScoreFor(CategorySupply); got != 3 {
		t.Fatalf("Supply = %d, want 3", got)
	}
}

func TestSurvivorAndRicher(t *testing.T) {
	t.Parallel()

	a := &Article{Summary: "긴 요약문입니다 아주 깁니다"}
	b := &Article{Summary: "짧음"}
	if !a.Richer(b) || b.Richer(a) {
		t.Fatal("longer summary must be richer")
	}

	if !(&Article{}).Survivor() {
		t.Fatal("fresh article is a survivor")
	}
	if (&Article{IsDuplicate: true}).Survivor() {
		t.Fatal("duplicate is not a survivor")
	}
	if (&Article{IsNoise: true}).Survivor() {
		t.Fatal("noise is not a survivor")
	}
}
