// Package ledger maintains the derived aggregate buckets (AllTime and one per
// calendar month) kept consistent with the live set of non-deleted
// transactions. Every operation runs as a single atomic store transaction:
// the read of the previous record and all bucket increments commit together
// or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/log"
	"github.com/matten-rd/finaid/internal/metrics"
)

// Config holds the optimistic-retry tuning for ledger operations.
type Config struct {
	// MaxAttempts is the total number of tries per operation (default: 3)
	MaxAttempts int

	// RetryBackoff is the base delay between attempts; the actual delay
	// doubles per attempt with jitter (default: 25ms)
	RetryBackoff time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		RetryBackoff: 25 * time.Millisecond,
	}
}

// Ledger is the only writer of bucket documents.
type Ledger struct {
	store docstore.Store
	cfg   Config
	now   func() time.Time
}

func New(store docstore.Store, cfg Config) *Ledger {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	return &Ledger{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Upsert creates or updates a transaction and reconciles every affected
// bucket in the same atomic run. The previous record is read inside the
// transaction so two concurrent upserts of the same id cannot both compute
// deltas against a stale state.
func (l *Ledger) Upsert(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	return l.run(ctx, log.OpUpsert, func(tx docstore.Tx) error {
		var prev core.Transaction
		hasPrev := true
		err := tx.Get(docstore.CollectionTransactions, t.ID, &prev)
		if errors.Is(err, docstore.ErrNotFound) {
			hasPrev = false
		} else if err != nil {
			return fmt.Errorf("read previous transaction: %w", err)
		}
		if hasPrev && prev.Deleted {
			// Trashed records are immutable until restored.
			return core.ErrTransactionTrashed
		}

		var (
			prevAmount int64
			prevCat    string
			prevMonth  string
		)
		if hasPrev {
			prevAmount = prev.Amount.Cents
			prevCat = prev.Category.ID
			prevMonth = prev.Date.MonthKey()
		}
		newAmount := t.Amount.Cents
		newCat := t.Category.ID
		newMonth := t.Date.MonthKey()

		if hasPrev && prevMonth != newMonth {
			// The old contribution leaves its month entirely; the new one
			// enters its own month as a plain addition.
			if err := addContribution(tx, prevMonth, prevCat, prevAmount, -1); err != nil {
				return err
			}
			if err := addContribution(tx, newMonth, newCat, newAmount, +1); err != nil {
				return err
			}
		} else {
			if err := applyDelta(tx, newMonth, prevAmount, newAmount, prevCat, newCat, hasPrev); err != nil {
				return err
			}
		}

		// AllTime always takes the combined delta regardless of months.
		if err := applyDelta(tx, core.ScopeAllTime, prevAmount, newAmount, prevCat, newCat, hasPrev); err != nil {
			return err
		}

		t.Deleted = false
		t.LastModified = l.now()
		if err := tx.Set(docstore.CollectionTransactions, t.ID, t); err != nil {
			return fmt.Errorf("write transaction: %w", err)
		}
		return nil
	})
}

// MoveToTrash soft-deletes a transaction and removes its contribution from
// its month and AllTime buckets atomically, so the record is never flagged
// deleted while still counted.
func (l *Ledger) MoveToTrash(ctx context.Context, id string) error {
	return l.run(ctx, log.OpTrash, func(tx docstore.Tx) error {
		t, err := l.readTransaction(tx, id)
		if err != nil {
			return err
		}
		if t.Deleted {
			return core.ErrAlreadyTrashed
		}

		if err := addContribution(tx, t.Date.MonthKey(), t.Category.ID, t.Amount.Cents, -1); err != nil {
			return err
		}
		if err := addContribution(tx, core.ScopeAllTime, t.Category.ID, t.Amount.Cents, -1); err != nil {
			return err
		}

		t.Deleted = true
		t.LastModified = l.now()
		if err := tx.Set(docstore.CollectionTransactions, id, t); err != nil {
			return fmt.Errorf("write transaction: %w", err)
		}
		return nil
	})
}

// RestoreFromTrash is the exact mirror of MoveToTrash. The amount, category
// and date are taken as stored at trash time; the record cannot have been
// mutated while trashed.
func (l *Ledger) RestoreFromTrash(ctx context.Context, id string) error {
	return l.run(ctx, log.OpRestore, func(tx docstore.Tx) error {
		t, err := l.readTransaction(tx, id)
		if err != nil {
			return err
		}
		if !t.Deleted {
			return core.ErrNotTrashed
		}

		if err := addContribution(tx, t.Date.MonthKey(), t.Category.ID, t.Amount.Cents, +1); err != nil {
			return err
		}
		if err := addContribution(tx, core.ScopeAllTime, t.Category.ID, t.Amount.Cents, +1); err != nil {
			return err
		}

		t.Deleted = false
		t.LastModified = l.now()
		if err := tx.Set(docstore.CollectionTransactions, id, t); err != nil {
			return fmt.Errorf("write transaction: %w", err)
		}
		return nil
	})
}

// DeletePermanently removes the record of a trashed transaction. No bucket
// is touched: a trashed record contributes nothing. Deleting a live record
// is a programming error and is rejected.
func (l *Ledger) DeletePermanently(ctx context.Context, id string) error {
	return l.run(ctx, log.OpDelete, func(tx docstore.Tx) error {
		t, err := l.readTransaction(tx, id)
		if err != nil {
			return err
		}
		if !t.Deleted {
			return core.ErrNotTrashed
		}
		if err := tx.Delete(docstore.CollectionTransactions, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
}

// Get returns a single transaction record, trashed or live.
func (l *Ledger) Get(ctx context.Context, id string) (core.Transaction, error) {
	var t core.Transaction
	err := l.store.Get(ctx, docstore.CollectionTransactions, id, &t)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Summary reads a bucket document. A scope without a bucket reads as all
// zeros: buckets are created lazily on first contribution.
func (l *Ledger) Summary(ctx context.Context, scope string) (core.Summary, error) {
	var s core.Summary
	err := l.store.Get(ctx, docstore.CollectionBuckets, scope, &s)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.Summary{Scope: scope, ByCategory: map[string]int64{}}, nil
	}
	if err != nil {
		return core.Summary{}, fmt.Errorf("read bucket %s: %w", scope, err)
	}
	s.Scope = scope
	if s.ByCategory == nil {
		s.ByCategory = map[string]int64{}
	}
	return s, nil
}

func (l *Ledger) readTransaction(tx docstore.Tx, id string) (core.Transaction, error) {
	var t core.Transaction
	err := tx.Get(docstore.CollectionTransactions, id, &t)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read transaction: %w", err)
	}
	return t, nil
}

// run executes op atomically with bounded optimistic retry. Only transient
// aborts are retried; precondition failures surface immediately and nothing
// has been written in either case.
func (l *Ledger) run(ctx context.Context, op string, fn func(tx docstore.Tx) error) error {
	var err error
	for attempt := 1; attempt <= l.cfg.MaxAttempts; attempt++ {
		err = l.store.RunAtomic(ctx, fn)
		if err == nil {
			metrics.LedgerOperations.WithLabelValues(op, "ok").Inc()
			return nil
		}
		if !docstore.IsTransient(err) {
			metrics.LedgerOperations.WithLabelValues(op, "rejected").Inc()
			return err
		}

		metrics.LedgerRetries.WithLabelValues(op).Inc()
		slog.WarnContext(ctx, "Ledger operation aborted, retrying",
			log.FieldOperation, op,
			log.FieldAttempt, attempt,
			log.FieldMaxAttempts, l.cfg.MaxAttempts,
			log.FieldError, err)

		if attempt == l.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff(attempt)):
		}
	}

	metrics.LedgerOperations.WithLabelValues(op, "exhausted").Inc()
	return fmt.Errorf("%s: retry attempts exhausted: %w", op, err)
}

func (l *Ledger) backoff(attempt int) time.Duration {
	d := l.cfg.RetryBackoff << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(l.cfg.RetryBackoff)))
	return d + jitter
}
