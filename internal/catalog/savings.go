package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/log"
)

// Savings accounts are plain CRUD documents; balances are edited directly
// and never flow through the aggregation ledger.

func (s *Service) CreateAccount(ctx context.Context, a core.SavingsAccount) (core.SavingsAccount, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := a.Validate(); err != nil {
		return core.SavingsAccount{}, fmt.Errorf("validate savings account: %w", err)
	}
	a.LastModified = s.now()

	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		return tx.Set(docstore.CollectionSavings, a.ID, a)
	})
	if err != nil {
		return core.SavingsAccount{}, fmt.Errorf("create savings account: %w", err)
	}

	slog.InfoContext(ctx, "Savings account created", log.FieldAccountID, a.ID, log.FieldName, a.Name)
	return a, nil
}

func (s *Service) UpdateAccount(ctx context.Context, a core.SavingsAccount) (core.SavingsAccount, error) {
	if err := a.Validate(); err != nil {
		return core.SavingsAccount{}, fmt.Errorf("validate savings account: %w", err)
	}

	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		var cur core.SavingsAccount
		if err := tx.Get(docstore.CollectionSavings, a.ID, &cur); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return core.ErrAccountNotFound
			}
			return err
		}
		a.LastModified = s.now()
		return tx.Set(docstore.CollectionSavings, a.ID, a)
	})
	if err != nil {
		return core.SavingsAccount{}, fmt.Errorf("update savings account: %w", err)
	}
	return a, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	err := s.store.RunAtomic(ctx, func(tx docstore.Tx) error {
		var cur core.SavingsAccount
		if err := tx.Get(docstore.CollectionSavings, id, &cur); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return core.ErrAccountNotFound
			}
			return err
		}
		return tx.Delete(docstore.CollectionSavings, id)
	})
	if err != nil {
		return fmt.Errorf("delete savings account: %w", err)
	}
	return nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]core.SavingsAccount, error) {
	var out []core.SavingsAccount
	if err := s.store.List(ctx, docstore.CollectionSavings, &out); err != nil {
		return nil, fmt.Errorf("list savings accounts: %w", err)
	}
	return out, nil
}
