package ledger

import (
	"fmt"

	"github.com/matten-rd/finaid/internal/docstore"
)

// Bucket updates are plain increments on possibly-nonexistent documents; the
// store creates the bucket lazily on first touch and buckets are never
// deleted, so the set of scopes only grows.

// signField routes an amount to its income/expense column. Zero is income.
func signField(cents int64) string {
	if cents >= 0 {
		return "income"
	}
	return "expense"
}

// addContribution applies one transaction's full contribution to a bucket.
// dir is +1 to add it and -1 to remove it; income/expense routing follows
// the sign of the amount itself, not of the applied delta.
func addContribution(tx docstore.Tx, scope, categoryID string, amount, dir int64) error {
	delta := amount * dir
	if err := inc(tx, scope, "net", delta); err != nil {
		return err
	}
	if err := inc(tx, scope, signField(amount), delta); err != nil {
		return err
	}
	return inc(tx, scope, "byCategory."+categoryID, delta)
}

// applyDelta reconciles a bucket for an upsert whose previous and new states
// land in the same scope (or for AllTime, which both always land in). With no
// previous record prevAmount is zero and only the new amount's column moves.
func applyDelta(tx docstore.Tx, scope string, prevAmount, newAmount int64, prevCat, newCat string, hasPrev bool) error {
	if err := inc(tx, scope, "net", newAmount-prevAmount); err != nil {
		return err
	}

	// 4-way sign split: the old amount moves out of its own column, the new
	// amount moves into its own.
	switch {
	case prevAmount >= 0 && newAmount >= 0:
		if err := inc(tx, scope, "income", newAmount-prevAmount); err != nil {
			return err
		}
	case prevAmount >= 0 && newAmount < 0:
		if err := inc(tx, scope, "income", -prevAmount); err != nil {
			return err
		}
		if err := inc(tx, scope, "expense", newAmount); err != nil {
			return err
		}
	case prevAmount < 0 && newAmount >= 0:
		if err := inc(tx, scope, "expense", -prevAmount); err != nil {
			return err
		}
		if err := inc(tx, scope, "income", newAmount); err != nil {
			return err
		}
	default:
		if err := inc(tx, scope, "expense", newAmount-prevAmount); err != nil {
			return err
		}
	}

	if hasPrev && prevCat != newCat {
		// Category move: two independent increments.
		if err := inc(tx, scope, "byCategory."+prevCat, -prevAmount); err != nil {
			return err
		}
		return inc(tx, scope, "byCategory."+newCat, newAmount)
	}
	return inc(tx, scope, "byCategory."+newCat, newAmount-prevAmount)
}

func inc(tx docstore.Tx, scope, field string, delta int64) error {
	if err := tx.Increment(docstore.CollectionBuckets, scope, field, delta); err != nil {
		return fmt.Errorf("increment bucket %s %s: %w", scope, field, err)
	}
	return nil
}
