// Package docstore defines the transactional document store boundary the
// ledger runs against. Implementations must make RunAtomic all-or-nothing,
// read-your-own-writes within the callback, and serializable with respect to
// other atomic runs touching the same documents.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Collections used by the application.
const (
	CollectionTransactions = "transactions"
	CollectionBuckets      = "buckets"
	CollectionCategories   = "categories"
	CollectionSavings      = "savings"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

type (
	// Store is the remote transactional document store.
	Store interface {
		// RunAtomic executes fn against a transaction handle and commits all
		// of its writes or none. A non-nil error from fn aborts the run.
		RunAtomic(ctx context.Context, fn func(tx Tx) error) error

		// Get decodes a single committed document into out.
		Get(ctx context.Context, collection, id string, out any) error

		// List decodes every committed document in a collection into out,
		// which must be a pointer to a slice.
		List(ctx context.Context, collection string, out any) error

		Close() error
	}

	// Tx is the handle passed to RunAtomic callbacks.
	Tx interface {
		Get(collection, id string, out any) error
		Set(collection, id string, v any) error

		// Increment adds delta to a numeric field, creating the document and
		// any intermediate objects when absent. Field accepts dotted paths
		// such as "byCategory.<id>".
		Increment(collection, id, field string, delta int64) error

		Delete(collection, id string) error
	}
)

// TransientError wraps a retryable store failure (contention, network).
// The whole atomic run was rolled back; the caller may retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
