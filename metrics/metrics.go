package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TablesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icecatalog_tables_created_total",
		Help: "Total number of tables created through the catalog.",
	})

	TablesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icecatalog_tables_dropped_total",
		Help: "Total number of tables dropped through the catalog.",
	})

	CommitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icecatalog_commit_conflicts_total",
		Help: "Total number of metadata commits rejected by the metastore compare-and-swap.",
	})

	FilesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icecatalog_files_deleted_total",
		Help: "Total number of files deleted during table data cleanup.",
	}, []string{"kind"})

	DeleteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icecatalog_delete_failures_total",
		Help: "Total number of per-file delete or manifest read failures during cleanup.",
	}, []string{"kind"})

	ManifestsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icecatalog_manifests_read_total",
		Help: "Total number of manifest files enumerated during cleanup.",
	})
)
