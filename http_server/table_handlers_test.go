package http_server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danthegoodman1/icecatalog/catalog"
	"github.com/danthegoodman1/icecatalog/filestore"
	"github.com/danthegoodman1/icecatalog/manifest"
	"github.com/danthegoodman1/icecatalog/metastore"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	files := filestore.NewMemFileStore()
	cat, err := catalog.NewCatalog("prod", "warehouse", metastore.NewMemoryMetaStore(), files, manifest.NewReader(files))
	if err != nil {
		t.Fatal(err)
	}
	return newServer(cat)
}

func doJSON(s *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"identifier": "db.events",
	"schema": {"type": "struct", "fields": [{"id": 1, "name": "id", "type": "long", "required": true}]}
}`

func TestCreateAndLoadTable(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/tables", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	var created TableRes
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.FullName != "prod.db.events" {
		t.Fatalf("got %s", created.FullName)
	}
	if created.Metadata.Location != "warehouse/db/events" {
		t.Fatalf("got %s", created.Metadata.Location)
	}

	rec = doJSON(s, http.MethodGet, "/tables/db/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var loaded TableRes
	if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Metadata.TableUUID != created.Metadata.TableUUID {
		t.Fatal("load returned a different table")
	}
}

func TestCreateConflict(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(s, http.MethodPost, "/tables", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(s, http.MethodPost, "/tables", createBody); rec.Code != http.StatusConflict {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateMissingIdentifier(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(s, http.MethodPost, "/tables", `{"schema": {"type": "struct", "fields": []}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoadUnknownTable(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(s, http.MethodGet, "/tables/db/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoadMetadataViewOverHTTP(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(s, http.MethodPost, "/tables", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(s, http.MethodGet, "/tables/db.events/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var view TableRes
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.ViewType != "history" {
		t.Fatalf("got viewType %q", view.ViewType)
	}
}

func TestReplaceTable(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(s, http.MethodPost, "/tables", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	replaceBody := `{
		"schema": {"type": "struct", "fields": [{"id": 1, "name": "id", "type": "long", "required": true}, {"id": 2, "name": "ts", "type": "timestamp", "required": false}]},
		"properties": {"owner": "pipeline"}
	}`
	rec := doJSON(s, http.MethodPost, "/tables/db/events/replace", replaceBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var replaced TableRes
	if err := json.Unmarshal(rec.Body.Bytes(), &replaced); err != nil {
		t.Fatal(err)
	}
	if len(replaced.Metadata.Schema.Fields) != 2 {
		t.Fatalf("got %d fields", len(replaced.Metadata.Schema.Fields))
	}
	if replaced.Metadata.Properties["owner"] != "pipeline" {
		t.Fatalf("got %+v", replaced.Metadata.Properties)
	}

	// replace of an absent table without orCreate is a 404
	rec = doJSON(s, http.MethodPost, "/tables/db/missing/replace", replaceBody)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDropTableHandler(t *testing.T) {
	s := newTestServer(t)

	if rec := doJSON(s, http.MethodPost, "/tables", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(s, http.MethodDelete, "/tables/db/events?purge=true", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(s, http.MethodDelete, "/tables/db/events", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListTablesHandler(t *testing.T) {
	s := newTestServer(t)

	for _, ident := range []string{"db.a", "db.b", "other.c"} {
		body := strings.Replace(createBody, "db.events", ident, 1)
		if rec := doJSON(s, http.MethodPost, "/tables", body); rec.Code != http.StatusCreated {
			t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(s, http.MethodGet, "/namespaces/db/tables", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var results []TableRes
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d tables", len(results))
	}
	if results[0].Identifier != "db.a" || results[1].Identifier != "db.b" {
		t.Fatalf("got %+v", results)
	}
}
