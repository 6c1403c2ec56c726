package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

type (
	Schema struct {
		Type   string  `json:"type"`
		Fields []Field `json:"fields"`
	}

	Field struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
		Doc      string `json:"doc,omitempty"`
	}

	PartitionSpec struct {
		SpecID int              `json:"spec-id"`
		Fields []PartitionField `json:"fields,omitempty"`
	}

	PartitionField struct {
		SourceID  int    `json:"source-id"`
		FieldID   int    `json:"field-id"`
		Name      string `json:"name"`
		Transform string `json:"transform"`
	}

	SortOrder struct {
		OrderID int         `json:"order-id"`
		Fields  []SortField `json:"fields,omitempty"`
	}

	SortField struct {
		SourceID  int    `json:"source-id"`
		Transform string `json:"transform"`
		Direction string `json:"direction"`
		NullOrder string `json:"null-order"`
	}

	// ManifestFile describes a manifest, a file that indexes data and delete
	// files.
	ManifestFile struct {
		Path            string `json:"manifest_path"`
		Length          int64  `json:"manifest_length"`
		PartitionSpecID int    `json:"partition_spec_id"`
		AddedSnapshotID int64  `json:"added_snapshot_id"`
	}

	// ManifestEntry references a single data or delete file within a manifest.
	ManifestEntry struct {
		Status      string `json:"status"`
		Content     string `json:"content"`
		FilePath    string `json:"file_path"`
		FileSize    int64  `json:"file_size_in_bytes"`
		RecordCount int64  `json:"record_count"`
	}

	// Snapshot is a point-in-time table state. ManifestList may be empty for
	// metadata-only snapshots.
	Snapshot struct {
		SnapshotID   int64             `json:"snapshot-id"`
		TimestampMs  int64             `json:"timestamp-ms"`
		SchemaID     int               `json:"schema-id"`
		ManifestList string            `json:"manifest-list,omitempty"`
		Manifests    []ManifestFile    `json:"manifests,omitempty"`
		Summary      map[string]string `json:"summary,omitempty"`
	}

	MetadataLogEntry struct {
		TimestampMs  int64  `json:"timestamp-ms"`
		MetadataFile string `json:"metadata-file"`
	}

	// TableMetadata is an immutable versioned definition of a table. A new
	// version is always derived from the previous one (or created fresh) and
	// never mutated in place.
	TableMetadata struct {
		FormatVersion     int                `json:"format-version"`
		TableUUID         string             `json:"table-uuid"`
		Location          string             `json:"location"`
		LastUpdatedMs     int64              `json:"last-updated-ms"`
		Schema            Schema             `json:"schema"`
		PartitionSpec     PartitionSpec      `json:"partition-spec"`
		SortOrder         SortOrder          `json:"sort-order"`
		Properties        map[string]string  `json:"properties,omitempty"`
		CurrentSnapshotID int64              `json:"current-snapshot-id,omitempty"`
		Snapshots         []Snapshot         `json:"snapshots,omitempty"`
		MetadataLog       []MetadataLogEntry `json:"metadata-log,omitempty"`

		// MetadataFileLocation is where this version's metadata document lives,
		// it doubles as the version tag for compare-and-swap commits.
		MetadataFileLocation string `json:"metadata-file-location"`
	}
)

const formatVersion = 2

func UnpartitionedSpec() PartitionSpec {
	return PartitionSpec{SpecID: 0}
}

func UnsortedOrder() SortOrder {
	return SortOrder{OrderID: 0}
}

func (s PartitionSpec) IsUnpartitioned() bool {
	return len(s.Fields) == 0
}

func (s SortOrder) IsUnsorted() bool {
	return len(s.Fields) == 0
}

// AllManifests returns every manifest reachable from the snapshot.
func (s Snapshot) AllManifests() []ManifestFile {
	return s.Manifests
}

// NewTableMetadata builds a fresh first metadata version.
func NewTableMetadata(schema Schema, spec PartitionSpec, order SortOrder, location string, properties map[string]string) *TableMetadata {
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}

	return &TableMetadata{
		FormatVersion:        formatVersion,
		TableUUID:            uuid.NewString(),
		Location:             location,
		LastUpdatedMs:        time.Now().UnixMilli(),
		Schema:               schema,
		PartitionSpec:        spec,
		SortOrder:            order,
		Properties:           props,
		MetadataFileLocation: newMetadataFileLocation(location),
	}
}

// BuildReplacement derives the successor version for a replace: schema, spec,
// sort order, and location are taken from the overrides, properties are merged
// over the existing ones, the snapshot history is carried over, and the
// predecessor's metadata file is appended to the metadata log.
func (m *TableMetadata) BuildReplacement(schema Schema, spec PartitionSpec, order SortOrder, location string, properties map[string]string) *TableMetadata {
	props := make(map[string]string, len(m.Properties)+len(properties))
	for k, v := range m.Properties {
		props[k] = v
	}
	for k, v := range properties {
		props[k] = v
	}

	log := make([]MetadataLogEntry, 0, len(m.MetadataLog)+1)
	log = append(log, m.MetadataLog...)
	log = append(log, MetadataLogEntry{
		TimestampMs:  m.LastUpdatedMs,
		MetadataFile: m.MetadataFileLocation,
	})

	return &TableMetadata{
		FormatVersion:        formatVersion,
		TableUUID:            m.TableUUID,
		Location:             location,
		LastUpdatedMs:        time.Now().UnixMilli(),
		Schema:               schema,
		PartitionSpec:        spec,
		SortOrder:            order,
		Properties:           props,
		CurrentSnapshotID:    m.CurrentSnapshotID,
		Snapshots:            m.Snapshots,
		MetadataLog:          log,
		MetadataFileLocation: newMetadataFileLocation(location),
	}
}

// WithSnapshot derives a new version with the snapshot appended and made
// current.
func (m *TableMetadata) WithSnapshot(snap Snapshot) *TableMetadata {
	next := *m
	next.LastUpdatedMs = time.Now().UnixMilli()
	next.Snapshots = append(append([]Snapshot{}, m.Snapshots...), snap)
	next.CurrentSnapshotID = snap.SnapshotID
	next.MetadataLog = append(append([]MetadataLogEntry{}, m.MetadataLog...), MetadataLogEntry{
		TimestampMs:  m.LastUpdatedMs,
		MetadataFile: m.MetadataFileLocation,
	})
	next.MetadataFileLocation = newMetadataFileLocation(m.Location)
	return &next
}

// AllMetadataFiles returns the current metadata file location plus every
// location recorded in the metadata log.
func (m *TableMetadata) AllMetadataFiles() []string {
	files := make([]string, 0, len(m.MetadataLog)+1)
	for _, entry := range m.MetadataLog {
		files = append(files, entry.MetadataFile)
	}
	return append(files, m.MetadataFileLocation)
}

func newMetadataFileLocation(location string) string {
	// ksuids are k-sorted so metadata files list in creation order
	return strings.TrimSuffix(location, "/") + "/metadata/" + ksuid.New().String() + ".metadata.json"
}
