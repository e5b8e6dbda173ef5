package query

import (
	"testing"
	"time"

	"github.com/matten-rd/finaid/internal/core"
)

func sample() []core.Transaction {
	mk := func(id string, cents int64, cat string, y, m, d int, memo string) core.Transaction {
		return core.Transaction{
			ID:       id,
			Memo:     memo,
			Amount:   core.Money{Cents: cents},
			Category: core.CategorySnapshot{ID: cat, Name: cat},
			Date:     core.NewDate(y, m, d),
		}
	}
	trashed := mk("t5", -999, "rent", 2024, 3, 15, "trashed rent")
	trashed.Deleted = true
	return []core.Transaction{
		mk("t1", 500, "groceries", 2024, 3, 5, "weekly shop"),
		mk("t2", -120, "transport", 2024, 3, 20, "bus card"),
		mk("t3", 2500, "salary", 2024, 4, 1, "april salary"),
		mk("t4", -80, "groceries", 2023, 12, 24, "christmas shop"),
		trashed,
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func TestTrashedNeverAppear(t *testing.T) {
	got := Apply(sample(), Filter{Period: Period{Kind: PeriodTotal}}, SortDateDesc)
	for _, tx := range got {
		if tx.ID == "t5" {
			t.Fatal("trashed transaction appeared in results")
		}
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
}

func TestPeriodFilters(t *testing.T) {
	cases := []struct {
		name   string
		period Period
		want   []string
	}{
		{"month", Period{Kind: PeriodMonth, Year: 2024, Month: time.March}, []string{"t2", "t1"}},
		{"year", Period{Kind: PeriodYear, Year: 2024}, []string{"t3", "t2", "t1"}},
		{"total", Period{Kind: PeriodTotal}, []string{"t3", "t2", "t1", "t4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(sample(), Filter{Period: tc.period}, SortDateDesc))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestPeriodBoundariesAreHalfOpen(t *testing.T) {
	p := Period{Kind: PeriodMonth, Year: 2024, Month: time.March}
	if !p.Contains(core.NewDate(2024, 3, 1)) {
		t.Fatal("start of month must be included")
	}
	if !p.Contains(core.NewDate(2024, 3, 31)) {
		t.Fatal("last day of month must be included")
	}
	if p.Contains(core.NewDate(2024, 4, 1)) {
		t.Fatal("start of next month must be excluded")
	}

	y := Period{Kind: PeriodYear, Year: 2024}
	if !y.Contains(core.NewDate(2024, 1, 1)) || y.Contains(core.NewDate(2025, 1, 1)) {
		t.Fatal("year boundaries wrong")
	}
}

func TestCategoryFilter(t *testing.T) {
	f := Filter{Categories: []string{"groceries"}, Period: Period{Kind: PeriodTotal}}
	got := ids(Apply(sample(), f, SortDateDesc))
	if len(got) != 2 || got[0] != "t1" || got[1] != "t4" {
		t.Fatalf("got %v, want [t1 t4]", got)
	}
}

func TestMemoSearch(t *testing.T) {
	f := Filter{Search: "SHOP", Period: Period{Kind: PeriodTotal}}
	got := ids(Apply(sample(), f, SortDateDesc))
	if len(got) != 2 || got[0] != "t1" || got[1] != "t4" {
		t.Fatalf("got %v, want [t1 t4]", got)
	}
}

func TestSorts(t *testing.T) {
	all := Filter{Period: Period{Kind: PeriodTotal}}

	byAmount := ids(Apply(sample(), all, SortAmountDesc))
	want := []string{"t3", "t1", "t2", "t4"} // by |amount|
	for i := range want {
		if byAmount[i] != want[i] {
			t.Fatalf("amount sort got %v, want %v", byAmount, want)
		}
	}

	byMemo := Apply(sample(), all, SortMemoAsc)
	for i := 1; i < len(byMemo); i++ {
		if byMemo[i-1].Memo > byMemo[i].Memo {
			t.Fatalf("memo sort out of order: %q before %q", byMemo[i-1].Memo, byMemo[i].Memo)
		}
	}
}

func TestGroupByMonth(t *testing.T) {
	got := Apply(sample(), Filter{Period: Period{Kind: PeriodTotal}}, SortDateDesc)
	groups := GroupByMonth(got)

	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if groups[0].Label != "April 2024" {
		t.Fatalf("first label = %q, want %q", groups[0].Label, "April 2024")
	}
	if groups[1].Label != "March 2024" || len(groups[1].Items) != 2 {
		t.Fatalf("march group wrong: %+v", groups[1])
	}
	if groups[2].Label != "December 2023" {
		t.Fatalf("last label = %q", groups[2].Label)
	}
}

func TestParseSort(t *testing.T) {
	if ParseSort("amount") != SortAmountDesc {
		t.Fatal("amount not parsed")
	}
	if ParseSort("bogus") != SortDateDesc {
		t.Fatal("unknown sort must default to date")
	}
}
