package core

// Summary is an aggregate bucket document: running sums over the live
// transactions attributed to one scope (AllTime or a calendar month).
// Buckets are created lazily by the ledger's increments and never deleted.
type Summary struct {
	Scope      string           `json:"scope,omitempty"`
	Net        int64            `json:"net"`
	Income     int64            `json:"income"`
	Expense    int64            `json:"expense"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// Consistent reports whether the bucket invariant holds:
// net == income + expense == sum of the per-category figures.
func (s Summary) Consistent() bool {
	var byCat int64
	for _, v := range s.ByCategory {
		byCat += v
	}
	return s.Net == s.Income+s.Expense && s.Net == byCat
}
