package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/rs/zerolog"
)

type (
	// MetadataStore holds the current metadata pointer per table identity and
	// performs the atomic conditional update the mutation protocol relies on.
	MetadataStore interface {
		// CurrentMetadata returns the current version, or (nil, nil) when the
		// table does not exist.
		CurrentMetadata(ctx context.Context, identifier TableIdentifier) (*TableMetadata, error)
		// CommitMetadata atomically replaces the current pointer with next,
		// conditioned on it still being base (nil base means "must not
		// exist"). Returns ErrCommitConflict when the condition fails.
		CommitMetadata(ctx context.Context, identifier TableIdentifier, base, next *TableMetadata) error
		// DropTable removes the pointer and returns the last metadata, or a
		// NoSuchTableError when the table does not exist.
		DropTable(ctx context.Context, identifier TableIdentifier) (*TableMetadata, error)
		ListTables(ctx context.Context, namespace []string) ([]TableIdentifier, error)
		Shutdown(ctx context.Context) error
	}

	// ManifestReader opens a manifest file as a lazy, finite sequence of
	// entries, and resolves a manifest list into the manifests it indexes.
	ManifestReader interface {
		Open(ctx context.Context, manifest ManifestFile) (ManifestEntryIterator, error)
		ReadManifestList(ctx context.Context, path string) ([]ManifestFile, error)
	}

	ManifestEntryIterator interface {
		Next() bool
		Entry() ManifestEntry
		Err() error
		Close() error
	}

	// Table is a live handle over loaded metadata. ViewType is empty for base
	// tables; for metadata views Metadata is the base table's metadata.
	Table struct {
		Identifier TableIdentifier
		FullName   string
		Metadata   *TableMetadata
		ViewType   MetadataViewType
	}

	Catalog struct {
		name      string
		store     MetadataStore
		files     filestore.FileStore
		manifests ManifestReader

		isValid         func(TableIdentifier) bool
		defaultLocation func(TableIdentifier) string
		deleteWorkers   int
		dedupeCapacity  int
	}

	Option func(*Catalog)
)

// WithIdentifierValidator overrides the identifier validity policy (default
// allows all identifiers).
func WithIdentifierValidator(isValid func(TableIdentifier) bool) Option {
	return func(c *Catalog) {
		c.isValid = isValid
	}
}

// WithDefaultLocation overrides how a storage location is computed when the
// builder does not supply one.
func WithDefaultLocation(defaultLocation func(TableIdentifier) string) Option {
	return func(c *Catalog) {
		c.defaultLocation = defaultLocation
	}
}

// WithDeleteWorkers sets the worker pool size used by DropTableData.
func WithDeleteWorkers(workers int) Option {
	return func(c *Catalog) {
		c.deleteWorkers = workers
	}
}

// WithDedupeCapacity bounds the deleted-path dedup set used by DropTableData.
func WithDedupeCapacity(capacity int) Option {
	return func(c *Catalog) {
		c.dedupeCapacity = capacity
	}
}

func NewCatalog(name, warehouseLocation string, store MetadataStore, files filestore.FileStore, manifests ManifestReader, opts ...Option) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("nil MetadataStore")
	}

	c := &Catalog{
		name:      name,
		store:     store,
		files:     files,
		manifests: manifests,
		isValid: func(TableIdentifier) bool {
			return true
		},
		defaultLocation: func(identifier TableIdentifier) string {
			return strings.TrimSuffix(warehouseLocation, "/") + "/" + strings.Join(identifier.Levels(), "/")
		},
		deleteWorkers:  defaultDeleteWorkers,
		dedupeCapacity: defaultDedupeCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Catalog) Name() string {
	return c.name
}

func (c *Catalog) resolver() resolver {
	return resolver{isValid: c.isValid}
}

// LoadTable returns a live handle for a base table, or a metadata view handle
// when the identifier addresses one. Fails with NoSuchTableError when neither
// interpretation resolves.
func (c *Catalog) LoadTable(ctx context.Context, identifier TableIdentifier) (*Table, error) {
	logger := zerolog.Ctx(ctx)

	var result *Table
	if c.isValid(identifier) {
		current, err := c.store.CurrentMetadata(ctx, identifier)
		if err != nil {
			return nil, fmt.Errorf("error in CurrentMetadata: %w", err)
		}
		if current == nil {
			// the identifier may be valid for both tables and metadata views
			if _, _, ok := c.resolver().viewIdentifier(identifier); ok {
				result, err = c.loadMetadataView(ctx, identifier)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, &NoSuchTableError{Identifier: identifier}
			}
		} else {
			result = &Table{
				Identifier: identifier,
				FullName:   FullTableName(c.name, identifier),
				Metadata:   current,
			}
		}
	} else if _, _, ok := c.resolver().viewIdentifier(identifier); ok {
		var err error
		result, err = c.loadMetadataView(ctx, identifier)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, &NoSuchTableError{Identifier: identifier, Reason: "invalid table identifier"}
	}

	logger.Debug().Str("table", result.FullName).Msg("table loaded by catalog")
	return result, nil
}

func (c *Catalog) loadMetadataView(ctx context.Context, identifier TableIdentifier) (*Table, error) {
	base, viewType, ok := c.resolver().viewIdentifier(identifier)
	if !ok {
		return nil, &NoSuchTableError{Identifier: identifier}
	}

	current, err := c.store.CurrentMetadata(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("error in CurrentMetadata: %w", err)
	}
	if current == nil {
		return nil, &NoSuchTableError{Identifier: base}
	}

	return &Table{
		Identifier: identifier,
		FullName:   FullTableName(c.name, identifier),
		Metadata:   current,
		ViewType:   viewType,
	}, nil
}

// TableExists reports whether the store has current metadata for the
// identifier.
func (c *Catalog) TableExists(ctx context.Context, identifier TableIdentifier) (bool, error) {
	current, err := c.store.CurrentMetadata(ctx, identifier)
	if err != nil {
		return false, fmt.Errorf("error in CurrentMetadata: %w", err)
	}
	return current != nil, nil
}

// CreateTable builds and atomically creates a table in one call.
func (c *Catalog) CreateTable(ctx context.Context, identifier TableIdentifier, schema Schema, spec PartitionSpec, order SortOrder, location string, properties map[string]string) (*Table, error) {
	b, err := c.BuildTable(identifier, schema)
	if err != nil {
		return nil, err
	}
	return b.
		WithPartitionSpec(spec).
		WithSortOrder(order).
		WithLocation(location).
		WithProperties(properties).
		Create(ctx)
}

// NewCreateTableTransaction prepares a create and defers the atomic
// submission to the returned transaction's Commit.
func (c *Catalog) NewCreateTableTransaction(ctx context.Context, identifier TableIdentifier, schema Schema, spec PartitionSpec, order SortOrder, location string, properties map[string]string) (*Transaction, error) {
	b, err := c.BuildTable(identifier, schema)
	if err != nil {
		return nil, err
	}
	return b.
		WithPartitionSpec(spec).
		WithSortOrder(order).
		WithLocation(location).
		WithProperties(properties).
		CreateTransaction(ctx)
}

// NewReplaceTableTransaction prepares a replace (or create-or-replace when
// orCreate is set) and defers the atomic submission to the returned
// transaction's Commit.
func (c *Catalog) NewReplaceTableTransaction(ctx context.Context, identifier TableIdentifier, schema Schema, spec PartitionSpec, order SortOrder, location string, properties map[string]string, orCreate bool) (*Transaction, error) {
	b, err := c.BuildTable(identifier, schema)
	if err != nil {
		return nil, err
	}
	b = b.
		WithPartitionSpec(spec).
		WithSortOrder(order).
		WithLocation(location).
		WithProperties(properties)

	if orCreate {
		return b.CreateOrReplaceTransaction(ctx)
	}
	return b.ReplaceTransaction(ctx)
}

// ListTables lists the base tables under a namespace.
func (c *Catalog) ListTables(ctx context.Context, namespace []string) ([]TableIdentifier, error) {
	return c.store.ListTables(ctx, namespace)
}
