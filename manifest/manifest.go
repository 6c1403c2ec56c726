// Package manifest reads and writes the catalog's manifest files (NDJSON,
// one entry per line) and manifest lists (a single JSON document indexing
// manifests) through a FileStore.
package manifest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/danthegoodman1/icecatalog/utils"
)

type (
	Reader struct {
		files filestore.FileStore
	}

	manifestList struct {
		Manifests []catalog.ManifestFile `json:"manifests"`
	}

	entryIterator struct {
		rc      io.ReadCloser
		scanner *bufio.Scanner
		entry   catalog.ManifestEntry
		err     error
	}
)

func NewReader(files filestore.FileStore) *Reader {
	return &Reader{files: files}
}

// Open returns a lazy iterator over the manifest's entries.
func (r *Reader) Open(ctx context.Context, m catalog.ManifestFile) (catalog.ManifestEntryIterator, error) {
	rc, err := r.files.OpenFile(ctx, m.Path)
	if err != nil {
		return nil, fmt.Errorf("error in OpenFile: %w", err)
	}

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &entryIterator{rc: rc, scanner: scanner}, nil
}

func (it *entryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.scanner.Scan() {
		line := bytes.TrimSpace(it.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry catalog.ManifestEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			it.err = fmt.Errorf("error in json.Unmarshal: %w", err)
			return false
		}
		it.entry = entry
		return true
	}
	it.err = it.scanner.Err()
	return false
}

func (it *entryIterator) Entry() catalog.ManifestEntry {
	return it.entry
}

func (it *entryIterator) Err() error {
	return it.err
}

func (it *entryIterator) Close() error {
	return it.rc.Close()
}

// ReadManifestList loads the manifests indexed by a manifest list file.
func (r *Reader) ReadManifestList(ctx context.Context, path string) ([]catalog.ManifestFile, error) {
	rc, err := r.files.OpenFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error in OpenFile: %w", err)
	}
	defer rc.Close()

	var list manifestList
	if err := json.NewDecoder(rc).Decode(&list); err != nil {
		return nil, fmt.Errorf("error in json.Decode: %w", err)
	}
	return list.Manifests, nil
}

type Writer struct {
	files filestore.FileStore
}

func NewWriter(files filestore.FileStore) *Writer {
	return &Writer{files: files}
}

// WriteManifest writes entries as an NDJSON manifest under the table
// location's metadata dir and returns its descriptor.
func (w *Writer) WriteManifest(ctx context.Context, location string, snapshotID int64, entries []catalog.ManifestEntry) (catalog.ManifestFile, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return catalog.ManifestFile{}, fmt.Errorf("error in json.Encode: %w", err)
		}
	}

	path := strings.TrimSuffix(location, "/") + "/metadata/" + utils.GenKSortedID("mf_") + ".ndjson"
	if err := w.files.WriteFile(ctx, path, bytes.NewReader(buf.Bytes())); err != nil {
		return catalog.ManifestFile{}, fmt.Errorf("error in WriteFile: %w", err)
	}

	return catalog.ManifestFile{
		Path:            path,
		Length:          int64(buf.Len()),
		AddedSnapshotID: snapshotID,
	}, nil
}

// WriteManifestList writes a manifest list indexing the given manifests and
// returns its path.
func (w *Writer) WriteManifestList(ctx context.Context, location string, snapshotID int64, manifests []catalog.ManifestFile) (string, error) {
	jsonBytes, err := json.Marshal(manifestList{Manifests: manifests})
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}

	path := fmt.Sprintf("%s/metadata/snap-%d-%s.json", strings.TrimSuffix(location, "/"), snapshotID, utils.GenRandomShortID())
	if err := w.files.WriteFile(ctx, path, bytes.NewReader(jsonBytes)); err != nil {
		return "", fmt.Errorf("error in WriteFile: %w", err)
	}
	return path, nil
}
