// Package propagation pushes edited category display fields into the
// denormalized snapshots on live transactions. The fan-out is best effort:
// a failed item leaves a stale snapshot until the next edit, and aggregates
// are never touched since no amount changes.
package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/matten-rd/finaid/internal/amqp"
	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/log"
	"github.com/matten-rd/finaid/internal/metrics"
)

type Propagator struct {
	store   docstore.Store
	workers int
}

func New(store docstore.Store, workers int) *Propagator {
	if workers < 1 {
		workers = 1
	}
	return &Propagator{store: store, workers: workers}
}

// HandleCategoryUpdated rewrites the category snapshot on every live
// transaction referencing the category. Each transaction is updated in its
// own atomic run, guarded against concurrent edits by re-reading inside it.
func (p *Propagator) HandleCategoryUpdated(ctx context.Context, msg *amqp.CategoryUpdatedMessage) error {
	var txs []core.Transaction
	if err := p.store.List(ctx, docstore.CollectionTransactions, &txs); err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	var updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, t := range txs {
		if t.Deleted || t.Category.ID != msg.CategoryID {
			continue
		}
		if t.Category.Name == msg.Name && t.Category.Color == msg.Color {
			continue
		}

		id := t.ID
		g.Go(func() error {
			err := p.store.RunAtomic(gctx, func(tx docstore.Tx) error {
				var cur core.Transaction
				if err := tx.Get(docstore.CollectionTransactions, id, &cur); err != nil {
					return err
				}
				if cur.Deleted || cur.Category.ID != msg.CategoryID {
					// Edited or trashed since listing; skip.
					return nil
				}
				cur.Category.Name = msg.Name
				cur.Category.Color = msg.Color
				return tx.Set(docstore.CollectionTransactions, id, cur)
			})
			if err != nil {
				failed.Add(1)
				metrics.PropagationUpdates.WithLabelValues("failed").Inc()
				slog.WarnContext(gctx, "Failed to propagate category snapshot",
					log.FieldTransactionID, id,
					log.FieldCategoryID, msg.CategoryID,
					log.FieldError, err)
				// Best effort: never abort the fan-out.
				return nil
			}
			updated.Add(1)
			metrics.PropagationUpdates.WithLabelValues("updated").Inc()
			return nil
		})
	}
	g.Wait()

	slog.InfoContext(ctx, "Category propagation completed",
		log.FieldCategoryID, msg.CategoryID,
		"updated", updated.Load(),
		"failed", failed.Load())

	return nil
}
