package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/docstore/memory"
)

// flakyStore fails the first failures atomic runs with a transient abort and
// delegates to the in-memory store afterwards.
type flakyStore struct {
	*memory.Store
	failures int
	runs     int
}

func (s *flakyStore) RunAtomic(ctx context.Context, fn func(tx docstore.Tx) error) error {
	s.runs++
	if s.failures > 0 {
		s.failures--
		return docstore.Transient(errors.New("write conflict"))
	}
	return s.Store.RunAtomic(ctx, fn)
}

func TestRunRetriesTransientAborts(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 2}
	l := New(store, Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	ctx := context.Background()

	if err := l.Upsert(ctx, tx("t1", 500, "groceries", 2024, 3, 5)); err != nil {
		t.Fatalf("upsert after transient aborts: %v", err)
	}
	if store.runs != 3 {
		t.Fatalf("runs = %d, want 3", store.runs)
	}

	got := summary(t, l, "2024-03")
	if got.Net != 500 || got.Income != 500 {
		t.Fatalf("bucket wrong after recovery: %+v", got)
	}
	checkInvariants(t, l, "2024-03")
}

func TestRunExhaustsRetriesOnPersistentContention(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 99}
	l := New(store, Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})

	err := l.Upsert(context.Background(), tx("t1", 500, "groceries", 2024, 3, 5))
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !docstore.IsTransient(err) {
		t.Fatalf("exhausted error lost its transient classification: %v", err)
	}
	if store.runs != 3 {
		t.Fatalf("runs = %d, want 3", store.runs)
	}

	// Every attempt aborted before commit, so nothing may be visible.
	if got := summary(t, l, "2024-03"); got.Net != 0 {
		t.Fatalf("bucket written despite aborts: %+v", got)
	}
	if _, err := l.Get(context.Background(), "t1"); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("transaction written despite aborts: %v", err)
	}
}

func TestRunDoesNotRetryPreconditionFailures(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	l := New(store, Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})

	if err := l.MoveToTrash(context.Background(), "missing"); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("got %v, want ErrTransactionNotFound", err)
	}
	if store.runs != 1 {
		t.Fatalf("runs = %d, want 1 for a non-transient failure", store.runs)
	}
}
