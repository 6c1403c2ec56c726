// Package metastore provides MetadataStore implementations: in-memory for
// tests and embedded use, Redis and CockroachDB for production. All of them
// enforce the compare-and-swap contract: a commit conditioned on a base
// version only applies while the stored pointer still matches it.
package metastore

import (
	"encoding/json"
	"fmt"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/gologger"
)

var (
	logger = gologger.NewLogger()
)

func marshalMetadata(metadata *catalog.TableMetadata) ([]byte, error) {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("error in json.Marshal: %w", err)
	}
	return jsonBytes, nil
}

func unmarshalMetadata(raw []byte) (*catalog.TableMetadata, error) {
	metadata := &catalog.TableMetadata{}
	if err := json.Unmarshal(raw, metadata); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	return metadata, nil
}
