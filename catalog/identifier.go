package catalog

import "strings"

type (
	// TableIdentifier addresses a table by its namespace levels plus a final
	// name component. Values are immutable by convention.
	TableIdentifier struct {
		Namespace []string
		Name      string
	}
)

// NewTableIdentifier builds an identifier from ordered levels, the last level
// is the table name.
func NewTableIdentifier(levels ...string) TableIdentifier {
	if len(levels) == 0 {
		return TableIdentifier{}
	}
	return TableIdentifier{
		Namespace: levels[:len(levels)-1],
		Name:      levels[len(levels)-1],
	}
}

// ParseTableIdentifier splits a dotted identifier string (`db.table`,
// `a.b.table`) into levels.
func ParseTableIdentifier(s string) TableIdentifier {
	return NewTableIdentifier(strings.Split(s, ".")...)
}

func (t TableIdentifier) Levels() []string {
	levels := make([]string, 0, len(t.Namespace)+1)
	levels = append(levels, t.Namespace...)
	return append(levels, t.Name)
}

func (t TableIdentifier) Equals(other TableIdentifier) bool {
	if t.Name != other.Name || len(t.Namespace) != len(other.Namespace) {
		return false
	}
	for i := range t.Namespace {
		if t.Namespace[i] != other.Namespace[i] {
			return false
		}
	}
	return true
}

func (t TableIdentifier) String() string {
	return strings.Join(t.Levels(), ".")
}

// FullTableName derives the human-readable fully qualified name: URI-like
// catalog names (containing `/` or `:`) get a `/` separator so the result
// reads like thrift://host:port/db.table, everything else a `.` like
// prod.db.table.
func FullTableName(catalogName string, identifier TableIdentifier) string {
	var sb strings.Builder

	if strings.Contains(catalogName, "/") || strings.Contains(catalogName, ":") {
		sb.WriteString(catalogName)
		if !strings.HasSuffix(catalogName, "/") {
			sb.WriteString("/")
		}
	} else {
		sb.WriteString(catalogName)
		sb.WriteString(".")
	}

	for _, level := range identifier.Namespace {
		sb.WriteString(level)
		sb.WriteString(".")
	}

	sb.WriteString(identifier.Name)

	return sb.String()
}
