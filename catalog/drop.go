package catalog

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/danthegoodman1/icecatalog/metrics"
	"github.com/danthegoodman1/icecatalog/tasks"
	"github.com/rs/zerolog"
)

const (
	defaultDeleteWorkers  = 8
	defaultDedupeCapacity = 1 << 20
)

// DropTable removes the table's catalog entry. With purge set, the last
// metadata version is handed to DropTableData for best-effort file
// reclamation.
func (c *Catalog) DropTable(ctx context.Context, identifier TableIdentifier, purge bool) error {
	metadata, err := c.store.DropTable(ctx, identifier)
	if err != nil {
		return err
	}

	metrics.TablesDropped.Inc()
	if purge && metadata != nil {
		c.DropTableData(ctx, metadata)
	}
	return nil
}

// DropTableData deletes every file referenced by the dropped table's full
// snapshot history: the data and delete files listed in its manifests, the
// manifests themselves, the manifest lists, and the metadata files. Cleanup
// is best-effort and one-pass: each per-item failure is logged and counted,
// never propagated, and nothing is retried.
func (c *Catalog) DropTableData(ctx context.Context, metadata *TableMetadata) {
	DropTableData(ctx, c.files, c.manifests, metadata, c.deleteWorkers, c.dedupeCapacity)
}

// DropTableData is the standalone form for dropTable implementations that
// manage their own catalog entry removal.
func DropTableData(ctx context.Context, files filestore.FileStore, manifests ManifestReader, metadata *TableMetadata, workers, dedupeCapacity int) {
	logger := zerolog.Ctx(ctx)
	if workers < 1 {
		workers = defaultDeleteWorkers
	}
	if dedupeCapacity < 1 {
		dedupeCapacity = defaultDedupeCapacity
	}

	// union over the whole history, distinct by path: manifests and manifest
	// lists shared between snapshots are collected once
	manifestSet := make(map[string]ManifestFile)
	listSet := make(map[string]struct{})
	for _, snap := range metadata.Snapshots {
		for _, m := range snap.AllManifests() {
			manifestSet[m.Path] = m
		}
		if snap.ManifestList != "" {
			listSet[snap.ManifestList] = struct{}{}
		}
	}

	// snapshots tracked through a manifest list reference their manifests
	// indirectly, resolve those too
	for list := range listSet {
		listed, err := manifests.ReadManifestList(ctx, list)
		if err != nil {
			metrics.DeleteFailures.WithLabelValues("manifest").Inc()
			logger.Warn().Err(err).Str("manifestList", list).Msg("failed to read manifest list, this may cause orphaned files")
			continue
		}
		for _, m := range listed {
			manifestSet[m.Path] = m
		}
	}

	logger.Debug().
		Str("tableUUID", metadata.TableUUID).
		Int("manifests", len(manifestSet)).
		Int("manifestLists", len(listSet)).
		Msg("reclaiming files for dropped table")

	allManifests := make([]ManifestFile, 0, len(manifestSet))
	for _, m := range manifestSet {
		allManifests = append(allManifests, m)
	}

	deleteReferencedFiles(ctx, files, manifests, allManifests, workers, dedupeCapacity)

	tasks.Foreach(ctx, allManifests, workers, func(m ManifestFile, err error) {
		metrics.DeleteFailures.WithLabelValues("manifest").Inc()
		logger.Warn().Err(err).Str("manifest", m.Path).Msg("delete failed for manifest")
	}, func(ctx context.Context, m ManifestFile) error {
		if err := files.DeleteFile(ctx, m.Path); err != nil {
			return fmt.Errorf("error in DeleteFile: %w", err)
		}
		metrics.FilesDeleted.WithLabelValues("manifest").Inc()
		return nil
	})

	lists := make([]string, 0, len(listSet))
	for list := range listSet {
		lists = append(lists, list)
	}
	tasks.Foreach(ctx, lists, workers, func(list string, err error) {
		metrics.DeleteFailures.WithLabelValues("manifest_list").Inc()
		logger.Warn().Err(err).Str("manifestList", list).Msg("delete failed for manifest list")
	}, func(ctx context.Context, list string) error {
		if err := files.DeleteFile(ctx, list); err != nil {
			return fmt.Errorf("error in DeleteFile: %w", err)
		}
		metrics.FilesDeleted.WithLabelValues("manifest_list").Inc()
		return nil
	})

	tasks.Foreach(ctx, metadata.AllMetadataFiles(), workers, func(file string, err error) {
		metrics.DeleteFailures.WithLabelValues("metadata").Inc()
		logger.Warn().Err(err).Str("metadataFile", file).Msg("delete failed for metadata file")
	}, func(ctx context.Context, file string) error {
		if err := files.DeleteFile(ctx, file); err != nil {
			return fmt.Errorf("error in DeleteFile: %w", err)
		}
		metrics.FilesDeleted.WithLabelValues("metadata").Inc()
		return nil
	})
}

// deleteReferencedFiles enumerates every manifest across a bounded worker
// pool and deletes each distinct referenced file once. The dedup set is
// capacity-bounded, so under extreme histories a path can be evicted and
// deleted redundantly; that delete failing is expected and non-fatal.
func deleteReferencedFiles(ctx context.Context, files filestore.FileStore, manifests ManifestReader, allManifests []ManifestFile, workers, dedupeCapacity int) {
	logger := zerolog.Ctx(ctx)
	deleted := newPathSet(dedupeCapacity)

	tasks.Foreach(ctx, allManifests, workers, func(m ManifestFile, err error) {
		metrics.DeleteFailures.WithLabelValues("data").Inc()
		logger.Warn().Err(err).Str("manifest", m.Path).Msg("failed to enumerate manifest, this may cause orphaned data files")
	}, func(ctx context.Context, m ManifestFile) error {
		it, err := manifests.Open(ctx, m)
		if err != nil {
			return fmt.Errorf("error opening manifest %s: %w", m.Path, err)
		}
		defer it.Close()

		metrics.ManifestsRead.Inc()
		for it.Next() {
			path := it.Entry().FilePath
			if !deleted.InsertIfAbsent(path) {
				continue
			}
			if err := files.DeleteFile(ctx, path); err != nil {
				// can happen when the dedup set evicted this path and it was
				// already deleted by an earlier pass
				metrics.DeleteFailures.WithLabelValues("data").Inc()
				logger.Warn().Err(err).Str("path", path).Msg("delete failed for data file")
				continue
			}
			metrics.FilesDeleted.WithLabelValues("data").Inc()
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("error reading manifest %s: %w", m.Path, err)
		}
		return nil
	})
}
