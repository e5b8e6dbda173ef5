// Package catalog owns the category and savings-account documents. Category
// display edits are pushed to the propagation queue; the ledger never reads
// this package, transactions carry their own category snapshot.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matten-rd/finaid/internal/amqp"
	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/log"
)

type Service struct {
	store      docstore.Store
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewService(store docstore.Store, amqpClient *amqp.Client) *Service {
	return &Service{
		store:      store,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// CreateCategory stores a new category, assigning an id when absent.
func (s *Service) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}
	c.Deleted = false

	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		return tx.Set(docstore.CollectionCategories, c.ID, c)
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", log.FieldCategoryID, c.ID, log.FieldName, c.Name)
	return c, nil
}

// UpdateCategory overwrites a category's display fields and publishes the
// change for the propagation worker. Propagation is best effort; a publish
// failure leaves stale snapshots until the next edit, never a wrong ledger.
func (s *Service) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}

	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		var cur core.Category
		if err := tx.Get(docstore.CollectionCategories, c.ID, &cur); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return core.ErrCategoryNotFound
			}
			return err
		}
		cur.Name = c.Name
		cur.Color = c.Color
		cur.Kind = c.Kind
		c = cur
		return tx.Set(docstore.CollectionCategories, c.ID, c)
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	s.publishCategoryUpdated(ctx, c)
	return c, nil
}

// DeleteCategory soft-flags the category document. Existing transactions
// keep their denormalized snapshot.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		var cur core.Category
		if err := tx.Get(docstore.CollectionCategories, id, &cur); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return core.ErrCategoryNotFound
			}
			return err
		}
		cur.Deleted = true
		return tx.Set(docstore.CollectionCategories, id, cur)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	return nil
}

// GetCategory returns a single category, including deleted ones.
func (s *Service) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := s.store.Get(ctx, docstore.CollectionCategories, id, &c)
	if errors.Is(err, docstore.ErrNotFound) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all non-deleted categories.
func (s *Service) ListCategories(ctx context.Context) ([]core.Category, error) {
	var all []core.Category
	if err := s.store.List(ctx, docstore.CollectionCategories, &all); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := all[:0]
	for _, c := range all {
		if !c.Deleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) publishCategoryUpdated(ctx context.Context, c core.Category) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping category propagation",
			log.FieldCategoryID, c.ID)
		return
	}

	msg := amqp.NewCategoryUpdatedMessage(c.ID, c.Name, c.Color)
	if err := s.amqpClient.PublishCategoryUpdated(ctx, msg); err != nil {
		// Don't fail the request: the category itself is saved and snapshots
		// are eventually consistent.
		slog.ErrorContext(ctx, "Failed to publish category updated message",
			log.FieldCategoryID, c.ID, log.FieldError, err)
	}
}
