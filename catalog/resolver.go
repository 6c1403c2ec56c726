package catalog

import "strings"

// MetadataViewType names a virtual read-only table derived from a base
// table's internal metadata, addressed by a reserved name suffix.
type MetadataViewType string

const (
	MetadataViewHistory    MetadataViewType = "history"
	MetadataViewSnapshots  MetadataViewType = "snapshots"
	MetadataViewFiles      MetadataViewType = "files"
	MetadataViewManifests  MetadataViewType = "manifests"
	MetadataViewPartitions MetadataViewType = "partitions"
	MetadataViewRefs       MetadataViewType = "refs"
)

var metadataViewTypes = map[string]MetadataViewType{
	"history":    MetadataViewHistory,
	"snapshots":  MetadataViewSnapshots,
	"files":      MetadataViewFiles,
	"manifests":  MetadataViewManifests,
	"partitions": MetadataViewPartitions,
	"refs":       MetadataViewRefs,
}

// MetadataViewTypeFrom matches a table name component against the known
// metadata view suffixes.
func MetadataViewTypeFrom(name string) (MetadataViewType, bool) {
	t, ok := metadataViewTypes[strings.ToLower(name)]
	return t, ok
}

type Classification int

const (
	ClassInvalid Classification = iota
	ClassBaseTable
	ClassMetadataView
)

type resolver struct {
	isValid func(TableIdentifier) bool
}

// viewIdentifier reinterprets an identifier whose name matches a view suffix:
// the namespace levels become the base table identifier. Returns ok=false when
// the name is not a view suffix, there are no levels to form a base from, or
// the base identifier fails the validity policy.
func (r resolver) viewIdentifier(identifier TableIdentifier) (TableIdentifier, MetadataViewType, bool) {
	viewType, ok := MetadataViewTypeFrom(identifier.Name)
	if !ok || len(identifier.Namespace) == 0 {
		return TableIdentifier{}, "", false
	}
	base := NewTableIdentifier(identifier.Namespace...)
	if !r.isValid(base) {
		return TableIdentifier{}, "", false
	}
	return base, viewType, true
}

// Classify determines whether the identifier addresses a base table, a
// metadata view over a base table, or neither. An identifier can be valid for
// both interpretations, in which case base table wins.
func (r resolver) Classify(identifier TableIdentifier) (Classification, TableIdentifier, MetadataViewType) {
	if r.isValid(identifier) {
		return ClassBaseTable, identifier, ""
	}
	if base, viewType, ok := r.viewIdentifier(identifier); ok {
		return ClassMetadataView, base, viewType
	}
	return ClassInvalid, TableIdentifier{}, ""
}
