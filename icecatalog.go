package main

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/danthegoodman1/icecatalog/manifest"
	"github.com/danthegoodman1/icecatalog/metastore"
	"github.com/danthegoodman1/icecatalog/utils"
)

// buildCatalog wires a Catalog from the env-selected metastore and filestore
// backends. The returned shutdown func releases both stores.
func buildCatalog(ctx context.Context) (*catalog.Catalog, func(ctx context.Context), error) {
	var store catalog.MetadataStore
	var err error
	switch utils.METASTORE {
	case "memory":
		store = metastore.NewMemoryMetaStore()
	case "redis":
		store, err = metastore.NewRedisMetaStore(ctx)
	case "crdb":
		store, err = metastore.NewCRDBMetaStore(ctx)
	default:
		return nil, nil, fmt.Errorf("unknown METASTORE '%s'", utils.METASTORE)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error creating metastore: %w", err)
	}

	var files filestore.FileStore
	switch utils.FILESTORE {
	case "disk":
		files = filestore.NewDiskFileStore(utils.DISK_ROOT)
	case "s3":
		files, err = filestore.NewS3FileStore(ctx)
	default:
		return nil, nil, fmt.Errorf("unknown FILESTORE '%s'", utils.FILESTORE)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error creating filestore: %w", err)
	}

	cat, err := catalog.NewCatalog(
		utils.CATALOG_NAME,
		utils.WAREHOUSE_LOCATION,
		store,
		files,
		manifest.NewReader(files),
		catalog.WithDeleteWorkers(int(utils.DELETE_WORKERS)),
		catalog.WithDedupeCapacity(int(utils.DELETE_DEDUPE_CAP)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error in NewCatalog: %w", err)
	}

	shutdown := func(ctx context.Context) {
		if err := store.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("error shutting down metastore")
		}
		if err := files.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("error shutting down filestore")
		}
	}

	return cat, shutdown, nil
}
