package metastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danthegoodman1/icecatalog/catalog"
)

type (
	memoryEntry struct {
		identifier catalog.TableIdentifier
		metadata   *catalog.TableMetadata
	}

	// MemoryMetaStore keeps the current metadata pointers in a mutex-guarded
	// map. The compare-and-swap compares metadata file locations, which
	// uniquely tag versions.
	MemoryMetaStore struct {
		mu     sync.Mutex
		tables map[string]memoryEntry
	}
)

func NewMemoryMetaStore() *MemoryMetaStore {
	return &MemoryMetaStore{
		tables: make(map[string]memoryEntry),
	}
}

func (mms *MemoryMetaStore) CurrentMetadata(_ context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	mms.mu.Lock()
	defer mms.mu.Unlock()

	entry, ok := mms.tables[identifier.String()]
	if !ok {
		return nil, nil
	}
	return entry.metadata, nil
}

func (mms *MemoryMetaStore) CommitMetadata(_ context.Context, identifier catalog.TableIdentifier, base, next *catalog.TableMetadata) error {
	mms.mu.Lock()
	defer mms.mu.Unlock()

	key := identifier.String()
	entry, exists := mms.tables[key]

	if base == nil {
		if exists {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}
	} else {
		if !exists || entry.metadata.MetadataFileLocation != base.MetadataFileLocation {
			return fmt.Errorf("table %s: %w", identifier, catalog.ErrCommitConflict)
		}
	}

	mms.tables[key] = memoryEntry{identifier: identifier, metadata: next}
	return nil
}

func (mms *MemoryMetaStore) DropTable(_ context.Context, identifier catalog.TableIdentifier) (*catalog.TableMetadata, error) {
	mms.mu.Lock()
	defer mms.mu.Unlock()

	key := identifier.String()
	entry, ok := mms.tables[key]
	if !ok {
		return nil, &catalog.NoSuchTableError{Identifier: identifier}
	}
	delete(mms.tables, key)
	return entry.metadata, nil
}

func (mms *MemoryMetaStore) ListTables(_ context.Context, namespace []string) ([]catalog.TableIdentifier, error) {
	mms.mu.Lock()
	defer mms.mu.Unlock()

	prefix := strings.Join(namespace, ".")
	var identifiers []catalog.TableIdentifier
	for _, entry := range mms.tables {
		if strings.Join(entry.identifier.Namespace, ".") == prefix {
			identifiers = append(identifiers, entry.identifier)
		}
	}
	sort.Slice(identifiers, func(i, j int) bool {
		return identifiers[i].Name < identifiers[j].Name
	})
	return identifiers, nil
}

func (mms *MemoryMetaStore) Shutdown(_ context.Context) error {
	return nil
}
