// Package query is the read-side façade: filtering, sorting and grouping of
// live transactions for presentation. It never consults or recomputes bucket
// figures; summary totals come from the ledger's bucket reads.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matten-rd/finaid/internal/core"
)

const (
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
	PeriodTotal PeriodKind = "total"
)

const (
	SortDateDesc   Sort = "date"
	SortAmountDesc Sort = "amount"
	SortMemoAsc    Sort = "memo"
)

type (
	PeriodKind string

	// Period selects transactions whose date falls in a half-open range:
	// [startOfMonth, +1 month), [startOfYear, +1 year), or everything.
	Period struct {
		Kind  PeriodKind
		Year  int
		Month time.Month
	}

	Sort string

	Filter struct {
		// Categories restricts to the given category ids; empty means all.
		Categories []string
		Period     Period
		// Search is a case-insensitive substring match against the memo.
		Search string
	}

	// MonthGroup is a display group of transactions sharing a (month, year).
	MonthGroup struct {
		Year  int                `json:"year"`
		Month time.Month         `json:"month"`
		Label string             `json:"label"`
		Items []core.Transaction `json:"items"`
	}
)

// Contains reports whether the date falls inside the period.
func (p Period) Contains(d core.Date) bool {
	switch p.Kind {
	case PeriodMonth:
		start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
		return !d.Before(start) && d.Before(start.AddDate(0, 1, 0))
	case PeriodYear:
		start := time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		return !d.Before(start) && d.Before(start.AddDate(1, 0, 0))
	default:
		return true
	}
}

// Apply filters the live transactions and sorts the result. Trashed
// transactions never appear regardless of filter.
func Apply(txs []core.Transaction, f Filter, s Sort) []core.Transaction {
	var catSet map[string]struct{}
	if len(f.Categories) > 0 {
		catSet = make(map[string]struct{}, len(f.Categories))
		for _, id := range f.Categories {
			catSet[id] = struct{}{}
		}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Deleted {
			continue
		}
		if catSet != nil {
			if _, ok := catSet[t.Category.ID]; !ok {
				continue
			}
		}
		if !f.Period.Contains(t.Date) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Memo), search) {
			continue
		}
		out = append(out, t)
	}

	sortTransactions(out, s)
	return out
}

func sortTransactions(txs []core.Transaction, s Sort) {
	switch s {
	case SortAmountDesc:
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Amount.Abs() > txs[j].Amount.Abs()
		})
	case SortMemoAsc:
		sort.SliceStable(txs, func(i, j int) bool {
			return strings.ToLower(txs[i].Memo) < strings.ToLower(txs[j].Memo)
		})
	default:
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Date.After(txs[j].Date.Time)
		})
	}
}

// GroupByMonth buckets already-sorted transactions into display groups,
// preserving the incoming order both across and within groups.
func GroupByMonth(txs []core.Transaction) []MonthGroup {
	var groups []MonthGroup
	index := make(map[string]int)

	for _, t := range txs {
		key := t.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{
				Year:  t.Date.Year(),
				Month: t.Date.Month(),
				Label: fmt.Sprintf("%s %d", t.Date.Month(), t.Date.Year()),
			})
		}
		groups[i].Items = append(groups[i].Items, t)
	}
	return groups
}

// ParseSort maps a query-string value to a Sort, defaulting to date.
func ParseSort(v string) Sort {
	switch Sort(v) {
	case SortAmountDesc, SortMemoAsc, SortDateDesc:
		return Sort(v)
	default:
		return SortDateDesc
	}
}
