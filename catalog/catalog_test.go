package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/danthegoodman1/icecatalog/manifest"
	"github.com/danthegoodman1/icecatalog/metastore"
)

func testSchema() catalog.Schema {
	return catalog.Schema{
		Type: "struct",
		Fields: []catalog.Field{
			{ID: 1, Name: "id", Type: "long", Required: true},
		},
	}
}

func newTestCatalog(t *testing.T, opts ...catalog.Option) (*catalog.Catalog, *metastore.MemoryMetaStore, filestore.FileStore) {
	t.Helper()
	store := metastore.NewMemoryMetaStore()
	files := filestore.NewMemFileStore()
	cat, err := catalog.NewCatalog("prod", "warehouse", store, files, manifest.NewReader(files), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return cat, store, files
}

func TestCreateThenCreateFails(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "t")

	if _, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil); err != nil {
		t.Fatal(err)
	}

	_, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
	if !catalog.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "race")

	const n = 16
	var ok, exists int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
			if err == nil {
				atomic.AddInt64(&ok, 1)
			} else if catalog.IsAlreadyExists(err) {
				atomic.AddInt64(&exists, 1)
			} else {
				t.Error(err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok != 1 || exists != n-1 {
		t.Fatalf("expected exactly one winner, got ok=%d exists=%d", ok, exists)
	}

	// the winner's version must be loadable
	table, err := cat.LoadTable(ctx, ident)
	if err != nil {
		t.Fatal(err)
	}
	if table.Metadata == nil || table.FullName != "prod.db.race" {
		t.Fatalf("got %+v", table)
	}
}

func TestReplaceRequiresExistingTable(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "missing")

	_, err := cat.NewReplaceTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil, false)
	if !catalog.IsNoSuchTable(err) {
		t.Fatalf("expected NoSuchTable, got %v", err)
	}

	// createOrReplace on an absent table behaves like create
	tx, err := cat.NewReplaceTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	table, err := tx.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if table.Metadata.Location != "warehouse/db/missing" {
		t.Fatalf("got %s", table.Metadata.Location)
	}
}

func TestLocationResolution(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "located")

	// create without a location uses the computed default
	created, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if created.Metadata.Location != "warehouse/db/located" {
		t.Fatalf("got %s", created.Metadata.Location)
	}

	// replace without a location keeps the existing one
	ident2 := catalog.NewTableIdentifier("db", "custom")
	if _, err := cat.CreateTable(ctx, ident2, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "s3://bucket/custom", nil); err != nil {
		t.Fatal(err)
	}
	tx, err := cat.NewReplaceTableTransaction(ctx, ident2, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	replaced, err := tx.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if replaced.Metadata.Location != "s3://bucket/custom" {
		t.Fatalf("got %s", replaced.Metadata.Location)
	}
}

func TestReplaceConflictSurfacesRaw(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "contended")

	if _, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil); err != nil {
		t.Fatal(err)
	}

	tx1, err := cat.NewReplaceTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", map[string]string{"v": "1"}, false)
	if err != nil {
		t.Fatal(err)
	}
	tx2, err := cat.NewReplaceTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", map[string]string{"v": "2"}, false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tx1.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	_, err = tx2.Commit(ctx)
	if !errors.Is(err, catalog.ErrCommitConflict) {
		t.Fatalf("expected ErrCommitConflict, got %v", err)
	}
}

func TestCreateTransactionRace(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "txrace")

	tx1, err := cat.NewCreateTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	tx2, err := cat.NewCreateTableTransaction(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tx1.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	// the losing transactional create reports AlreadyExists, not a raw conflict
	_, err = tx2.Commit(ctx)
	if !catalog.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestLoadMetadataView(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.NewTableIdentifier("db", "t")

	// view over a non-existent base table
	_, err := cat.LoadTable(ctx, catalog.NewTableIdentifier("db", "t", "history"))
	if !catalog.IsNoSuchTable(err) {
		t.Fatalf("expected NoSuchTable, got %v", err)
	}

	created, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	view, err := cat.LoadTable(ctx, catalog.NewTableIdentifier("db", "t", "snapshots"))
	if err != nil {
		t.Fatal(err)
	}
	if view.ViewType != catalog.MetadataViewSnapshots {
		t.Fatalf("got %s", view.ViewType)
	}
	if view.Metadata.TableUUID != created.Metadata.TableUUID {
		t.Fatal("view must expose the base table's metadata")
	}

	// loading a view must not mutate store state
	base, err := cat.LoadTable(ctx, ident)
	if err != nil {
		t.Fatal(err)
	}
	if base.Metadata.MetadataFileLocation != created.Metadata.MetadataFileLocation {
		t.Fatal("store state changed")
	}
}

func TestLoadInvalidIdentifier(t *testing.T) {
	cat, _, _ := newTestCatalog(t, catalog.WithIdentifierValidator(func(ident catalog.TableIdentifier) bool {
		return len(ident.Namespace) == 1
	}))
	ctx := context.Background()

	_, err := cat.LoadTable(ctx, catalog.NewTableIdentifier("a", "b", "c", "t"))
	if !catalog.IsNoSuchTable(err) {
		t.Fatalf("expected NoSuchTable for an invalid identifier, got %v", err)
	}

	// invalid as a base table but valid as a view resolves through the view
	ident := catalog.NewTableIdentifier("db", "t")
	if _, err := cat.CreateTable(ctx, ident, testSchema(), catalog.UnpartitionedSpec(), catalog.UnsortedOrder(), "", nil); err != nil {
		t.Fatal(err)
	}
	view, err := cat.LoadTable(ctx, catalog.NewTableIdentifier("db", "t", "history"))
	if err != nil {
		t.Fatal(err)
	}
	if view.ViewType != catalog.MetadataViewHistory {
		t.Fatalf("got %s", view.ViewType)
	}
}

func TestBuilderInvalidIdentifier(t *testing.T) {
	cat, _, _ := newTestCatalog(t, catalog.WithIdentifierValidator(func(ident catalog.TableIdentifier) bool {
		return ident.Name != "bad"
	}))

	_, err := cat.BuildTable(catalog.NewTableIdentifier("db", "bad"), testSchema())
	if !catalog.IsInvalidIdentifier(err) {
		t.Fatalf("expected InvalidIdentifier, got %v", err)
	}
}

func TestBuilderProperties(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	ctx := context.Background()

	b, err := cat.BuildTable(catalog.NewTableIdentifier("db", "props"), testSchema())
	if err != nil {
		t.Fatal(err)
	}
	table, err := b.
		WithProperty("owner", "a").
		WithProperties(map[string]string{"owner": "b", "ttl": "7d"}).
		WithProperty("ttl", "30d").
		Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if table.Metadata.Properties["owner"] != "b" || table.Metadata.Properties["ttl"] != "30d" {
		t.Fatalf("bad property merge: %+v", table.Metadata.Properties)
	}
}
