package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/danthegoodman1/icecatalog/metrics"
)

type transactionKind int

const (
	txCreate transactionKind = iota
	txReplace
	txCreateOrReplace
)

// Transaction holds prepared metadata and the base version it was conditioned
// on, deferring the single atomic submission to Commit.
type Transaction struct {
	catalog    *Catalog
	identifier TableIdentifier
	kind       transactionKind
	base       *TableMetadata
	pending    *TableMetadata
	committed  bool
}

// Metadata returns the prepared (uncommitted) metadata version.
func (t *Transaction) Metadata() *TableMetadata {
	return t.pending
}

// Commit performs the atomic conditional submission. For creates a store
// conflict is reported as AlreadyExistsError; for replaces the conflict
// surfaces as ErrCommitConflict so the caller can re-read and retry.
func (t *Transaction) Commit(ctx context.Context) (*Table, error) {
	if t.committed {
		return nil, fmt.Errorf("transaction already committed for %s", t.identifier)
	}

	err := t.catalog.store.CommitMetadata(ctx, t.identifier, t.base, t.pending)
	if errors.Is(err, ErrCommitConflict) {
		metrics.CommitConflicts.Inc()
		if t.kind == txCreate || (t.kind == txCreateOrReplace && t.base == nil) {
			return nil, &AlreadyExistsError{Identifier: t.identifier, Err: err}
		}
		return nil, fmt.Errorf("commit failed for %s: %w", t.identifier, err)
	} else if err != nil {
		return nil, fmt.Errorf("error in CommitMetadata: %w", err)
	}

	t.committed = true
	if t.base == nil {
		metrics.TablesCreated.Inc()
	}

	return &Table{
		Identifier: t.identifier,
		FullName:   FullTableName(t.catalog.name, t.identifier),
		Metadata:   t.pending,
	}, nil
}
