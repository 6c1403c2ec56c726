package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/danthegoodman1/icecatalog/metrics"
)

// TableBuilder accumulates the pieces of a table definition before a terminal
// create/replace call. Not safe for concurrent use, but terminal calls may be
// repeated: each re-reads the store's current state.
type TableBuilder struct {
	catalog    *Catalog
	identifier TableIdentifier
	schema     Schema
	spec       PartitionSpec
	order      SortOrder
	location   string
	properties map[string]string
}

// BuildTable starts a builder for the identifier, failing immediately when
// the identifier does not pass the catalog's validity policy.
func (c *Catalog) BuildTable(identifier TableIdentifier, schema Schema) (*TableBuilder, error) {
	if !c.isValid(identifier) {
		return nil, &InvalidIdentifierError{Identifier: identifier}
	}

	return &TableBuilder{
		catalog:    c,
		identifier: identifier,
		schema:     schema,
		spec:       UnpartitionedSpec(),
		order:      UnsortedOrder(),
		properties: make(map[string]string),
	}, nil
}

// WithPartitionSpec sets the partition spec, the zero value means
// unpartitioned.
func (b *TableBuilder) WithPartitionSpec(spec PartitionSpec) *TableBuilder {
	b.spec = spec
	return b
}

// WithSortOrder sets the sort order, the zero value means unsorted.
func (b *TableBuilder) WithSortOrder(order SortOrder) *TableBuilder {
	b.order = order
	return b
}

func (b *TableBuilder) WithLocation(location string) *TableBuilder {
	b.location = location
	return b
}

// WithProperty sets a single property, overwriting an earlier value for the
// same key.
func (b *TableBuilder) WithProperty(key, value string) *TableBuilder {
	b.properties[key] = value
	return b
}

// WithProperties merges properties in bulk, later keys win.
func (b *TableBuilder) WithProperties(properties map[string]string) *TableBuilder {
	for k, v := range properties {
		b.properties[k] = v
	}
	return b
}

// Create submits an unconditional atomic create. A store conflict (another
// caller created the table between the existence check and the commit) is
// reported as AlreadyExistsError, never as the raw conflict.
func (b *TableBuilder) Create(ctx context.Context) (*Table, error) {
	metadata, err := b.newCreateMetadata(ctx)
	if err != nil {
		return nil, err
	}

	err = b.catalog.store.CommitMetadata(ctx, b.identifier, nil, metadata)
	if errors.Is(err, ErrCommitConflict) {
		metrics.CommitConflicts.Inc()
		return nil, &AlreadyExistsError{Identifier: b.identifier, Err: err}
	} else if err != nil {
		return nil, fmt.Errorf("error in CommitMetadata: %w", err)
	}

	metrics.TablesCreated.Inc()
	return &Table{
		Identifier: b.identifier,
		FullName:   FullTableName(b.catalog.name, b.identifier),
		Metadata:   metadata,
	}, nil
}

// CreateTransaction prepares the same metadata as Create but defers the
// atomic submission to the transaction's Commit.
func (b *TableBuilder) CreateTransaction(ctx context.Context) (*Transaction, error) {
	metadata, err := b.newCreateMetadata(ctx)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		catalog:    b.catalog,
		identifier: b.identifier,
		kind:       txCreate,
		pending:    metadata,
	}, nil
}

func (b *TableBuilder) ReplaceTransaction(ctx context.Context) (*Transaction, error) {
	return b.newReplaceTransaction(ctx, false)
}

func (b *TableBuilder) CreateOrReplaceTransaction(ctx context.Context) (*Transaction, error) {
	return b.newReplaceTransaction(ctx, true)
}

func (b *TableBuilder) newCreateMetadata(ctx context.Context) (*TableMetadata, error) {
	current, err := b.catalog.store.CurrentMetadata(ctx, b.identifier)
	if err != nil {
		return nil, fmt.Errorf("error in CurrentMetadata: %w", err)
	}
	if current != nil {
		return nil, &AlreadyExistsError{Identifier: b.identifier}
	}

	location := b.location
	if location == "" {
		location = b.catalog.defaultLocation(b.identifier)
	}

	return NewTableMetadata(b.schema, b.spec, b.order, location, b.properties), nil
}

func (b *TableBuilder) newReplaceTransaction(ctx context.Context, orCreate bool) (*Transaction, error) {
	current, err := b.catalog.store.CurrentMetadata(ctx, b.identifier)
	if err != nil {
		return nil, fmt.Errorf("error in CurrentMetadata: %w", err)
	}
	if !orCreate && current == nil {
		return nil, &NoSuchTableError{Identifier: b.identifier}
	}

	var metadata *TableMetadata
	if current != nil {
		location := b.location
		if location == "" {
			location = current.Location
		}
		metadata = current.BuildReplacement(b.schema, b.spec, b.order, location, b.properties)
	} else {
		location := b.location
		if location == "" {
			location = b.catalog.defaultLocation(b.identifier)
		}
		metadata = NewTableMetadata(b.schema, b.spec, b.order, location, b.properties)
	}

	kind := txReplace
	if orCreate {
		kind = txCreateOrReplace
	}

	return &Transaction{
		catalog:    b.catalog,
		identifier: b.identifier,
		kind:       kind,
		base:       current,
		pending:    metadata,
	}, nil
}
